package ginserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/slogsolutions/WebBuyer/internal/app/dto"
	"github.com/slogsolutions/WebBuyer/internal/app/idempotency"
	bookingsvc "github.com/slogsolutions/WebBuyer/internal/app/services/booking"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

// BookingHandler exposes the one-shot booking attempt. The route takes
// no auth guard on purpose: anonymous callers get the UNAUTHENTICATED
// decision in the body instead of a 401, so clients render the sign-in
// prompt from the same response shape as every other gate outcome.
type BookingHandler struct {
	Attempts    *bookingsvc.Service
	Idempotency idempotency.Store
	Logger      *slog.Logger
}

type attemptRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (h BookingHandler) Attempt(c *gin.Context) {
	if h.Attempts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking unavailable"})
		return
	}

	spaceID := strings.TrimSpace(c.Param("id"))
	if spaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "space id is required"})
		return
	}

	var req attemptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	if req.Start == "" {
		req.Start = c.Query("start")
	}
	if req.End == "" {
		req.End = c.Query("end")
	}

	var userID string
	if principal, ok := currentPrincipal(c); ok {
		userID = principal.ID
	}

	key := ""
	if userID != "" && h.Idempotency != nil {
		key = idempotency.Key(userID, c.GetHeader("Idempotency-Key"))
	}
	if key != "" {
		rec, found, err := h.Idempotency.Get(c.Request.Context(), key)
		if err != nil {
			// Without the record we cannot rule out an earlier dispatch,
			// so the retry must not run.
			h.logError(c, "idempotency lookup failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if found {
			c.Data(rec.Status, "application/json", rec.Body)
			return
		}
	}

	result, err := h.Attempts.Attempt(c.Request.Context(), bookingsvc.AttemptParams{
		SpaceID: space.SpaceID(spaceID),
		UserID:  user.ID(userID),
		Window:  timewindow.Parse(req.Start, req.End),
	})
	if err != nil {
		h.respondAttemptError(c, err)
		return
	}

	resp := dto.NewAttemptResponse(result.Decision, result.Challenge, result.Handoff)
	status := http.StatusOK
	if result.Handoff != nil {
		status = http.StatusAccepted
	}

	// Only dispatched handoffs are recorded. Decision-only responses
	// carry no side effects, and a retry after verification should
	// re-run the gate rather than replay the old refusal.
	if key != "" && result.Handoff != nil {
		if body, err := json.Marshal(resp); err == nil {
			rec := idempotency.Record{Key: key, Status: status, Body: body, OccurredAt: time.Now().UTC()}
			if err := h.Idempotency.Save(c.Request.Context(), rec); err != nil {
				h.logError(c, "idempotency save failed", err)
			}
		}
	}

	c.JSON(status, resp)
}

func (h BookingHandler) respondAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, space.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "space not found"})
	case errors.Is(err, bookingsvc.ErrSpaceUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "space is not open for booking"})
	default:
		h.logError(c, "booking attempt failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h BookingHandler) logError(c *gin.Context, msg string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.Error(msg, "error", err, "path", c.FullPath())
}

var _ BookingHTTP = BookingHandler{}
