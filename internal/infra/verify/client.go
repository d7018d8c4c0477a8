package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/app/policies"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

var ErrNotConfigured = errors.New("verify: provider not configured")

// Client starts phone confirmation challenges at the verification
// provider. Outcomes come back through the provider callback route,
// not this client.
type Client struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

var _ policies.PhoneVerifier = (*Client)(nil)

type startChallengeRequest struct {
	UserID string `json:"user_id"`
	Phone  string `json:"phone"`
}

type startChallengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Provider    string    `json:"provider"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (c *Client) StartChallenge(ctx context.Context, userID user.ID, phone string) (policies.Challenge, error) {
	var zero policies.Challenge

	if c == nil || c.BaseURL == "" {
		return zero, ErrNotConfigured
	}
	if c.Client == nil {
		return zero, errors.New("verify: http client not configured")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return zero, user.ErrPhoneRequired
	}

	body, err := json.Marshal(startChallengeRequest{UserID: string(userID), Phone: phone})
	if err != nil {
		return zero, err
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/api/verify/phone/start"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		c.logError("challenge request failed", userID, err)
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("verify: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		c.logError("challenge rejected", userID, err)
		return zero, err
	}

	var decoded startChallengeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logError("challenge decode failed", userID, err)
		return zero, err
	}
	if decoded.ChallengeID == "" {
		return zero, errors.New("verify: provider returned no challenge id")
	}
	return policies.Challenge{
		ID:        decoded.ChallengeID,
		Provider:  decoded.Provider,
		ExpiresAt: decoded.ExpiresAt,
	}, nil
}

func (c *Client) logError(msg string, userID user.ID, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error(msg, "user_id", userID, "error", err)
}
