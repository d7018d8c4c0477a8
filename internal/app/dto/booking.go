package dto

import (
	"time"

	"github.com/slogsolutions/WebBuyer/internal/app/policies"
	"github.com/slogsolutions/WebBuyer/internal/app/summary"
	"github.com/slogsolutions/WebBuyer/internal/domain/booking"
)

// AttemptResponse is the outcome of a booking attempt. Exactly one of
// Challenge or Handoff is set when the status calls for it: a phone
// challenge while the gate waits, a handoff once it cleared.
type AttemptResponse struct {
	Status    string           `json:"status"`
	Reason    string           `json:"reason,omitempty"`
	Challenge *ChallengeRecord `json:"challenge,omitempty"`
	Handoff   *HandoffRecord   `json:"handoff,omitempty"`
}

type ChallengeRecord struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type HandoffRecord struct {
	ID            string     `json:"id"`
	SpaceID       string     `json:"space_id"`
	Start         *time.Time `json:"start"`
	End           *time.Time `json:"end"`
	RatePerHour   float64    `json:"rate_per_hour"`
	DurationHours *float64   `json:"duration_hours"`
	Total         *float64   `json:"total"`
	RequestedAt   time.Time  `json:"requested_at"`
}

func MapAttempt(result summary.AttemptResult) AttemptResponse {
	return NewAttemptResponse(result.Decision, result.Challenge, result.Handoff)
}

// NewAttemptResponse assembles the response from the gate outcome
// pieces; the REST and websocket attempt paths both feed it.
func NewAttemptResponse(decision booking.GateDecision, challenge *policies.Challenge, handoff *booking.Handoff) AttemptResponse {
	return AttemptResponse{
		Status:    string(decision.Status),
		Reason:    decision.Reason,
		Challenge: mapChallenge(challenge),
		Handoff:   MapHandoff(handoff),
	}
}

func mapChallenge(ch *policies.Challenge) *ChallengeRecord {
	if ch == nil {
		return nil
	}
	return &ChallengeRecord{ID: ch.ID, Provider: ch.Provider, ExpiresAt: ch.ExpiresAt}
}

func MapHandoff(h *booking.Handoff) *HandoffRecord {
	if h == nil {
		return nil
	}
	return &HandoffRecord{
		ID:            string(h.ID),
		SpaceID:       string(h.SpaceID),
		Start:         h.Start,
		End:           h.End,
		RatePerHour:   h.RatePerHour,
		DurationHours: h.DurationHours,
		Total:         h.Total,
		RequestedAt:   h.RequestedAt,
	}
}
