package ratingsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/slogsolutions/WebBuyer/internal/domain/rating"
)

const maxResponseBytes = 1 << 20

// Client reads community ratings from the ratings service. The
// endpoint predates this backend and answers in several historical
// shapes, so bodies go through the tolerant payload decoder instead of
// a typed response struct.
type Client struct {
	BaseURL     string
	Client      *http.Client
	Credentials CredentialSource
	Logger      *slog.Logger
}

var _ rating.Source = (*Client)(nil)

func (c *Client) FetchSpaceRatings(ctx context.Context, spaceID string) (rating.Payload, error) {
	var zero rating.Payload

	if c == nil || c.Client == nil {
		return zero, errors.New("ratingsapi: http client not configured")
	}
	if c.BaseURL == "" {
		return zero, errors.New("ratingsapi: base url not configured")
	}
	spaceID = strings.TrimSpace(spaceID)
	if spaceID == "" {
		return zero, errors.New("ratingsapi: space id is required")
	}

	endpoint := fmt.Sprintf("%s/api/ratings/parking/%s", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(spaceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Accept", "application/json")
	if c.Credentials != nil {
		token, err := c.Credentials.Token(ctx)
		if err != nil {
			c.logError("ratings credential mint failed", spaceID, err)
			return zero, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			err = fmt.Errorf("ratingsapi: ratings service timeout (%s)", c.BaseURL)
		}
		c.logError("ratings request failed", spaceID, err)
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("ratingsapi: ratings service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		c.logError("ratings returned error", spaceID, err)
		return zero, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logError("ratings body read failed", spaceID, err)
		return zero, err
	}
	payload, err := rating.DecodePayload(body)
	if err != nil {
		c.logError("ratings payload rejected", spaceID, err)
		return zero, err
	}
	return payload, nil
}

func (c *Client) logError(msg, spaceID string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error(msg, "space_id", spaceID, "error", err)
}
