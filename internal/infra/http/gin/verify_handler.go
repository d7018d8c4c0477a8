package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	authsvc "github.com/slogsolutions/WebBuyer/internal/app/services/auth"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
	"github.com/slogsolutions/WebBuyer/internal/infra/verify"
)

// VerificationHandler receives provider callbacks. The phone callback
// both persists the flag and fans the outcome out to live summary
// sessions so a waiting card can resume its booking attempt.
type VerificationHandler struct {
	Auth     *authsvc.Service
	Notifier *verify.Notifier
	Logger   *slog.Logger
}

type phoneCallbackRequest struct {
	UserID      string `json:"user_id"`
	ChallengeID string `json:"challenge_id"`
	Verified    bool   `json:"verified"`
}

type identityCallbackRequest struct {
	UserID   string `json:"user_id"`
	Verified bool   `json:"verified"`
}

func (h VerificationHandler) PhoneCallback(c *gin.Context) {
	if h.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification unavailable"})
		return
	}
	var req phoneCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if _, err := h.Auth.ConfirmPhone(c.Request.Context(), user.ID(req.UserID), req.Verified); err != nil {
		h.respondCallbackError(c, err)
		return
	}
	if h.Notifier != nil {
		h.Notifier.Publish(verify.Outcome{
			UserID:      user.ID(req.UserID),
			ChallengeID: req.ChallengeID,
			Verified:    req.Verified,
			OccurredAt:  time.Now().UTC(),
		})
	}
	c.Status(http.StatusNoContent)
}

func (h VerificationHandler) IdentityCallback(c *gin.Context) {
	if h.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification unavailable"})
		return
	}
	var req identityCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !req.Verified {
		// Identity checks only ever move forward; a failed check keeps
		// the account in its pending state.
		c.Status(http.StatusNoContent)
		return
	}
	if _, err := h.Auth.MarkIdentityVerified(c.Request.Context(), user.ID(req.UserID)); err != nil {
		h.respondCallbackError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h VerificationHandler) respondCallbackError(c *gin.Context, err error) {
	if errors.Is(err, user.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if h.Logger != nil {
		h.Logger.Error("verification callback failed", "error", err, "path", c.FullPath())
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

var _ VerificationHTTP = VerificationHandler{}
