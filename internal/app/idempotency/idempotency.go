package idempotency

import (
	"context"
	"strings"
	"time"
)

// Record replays the response of a completed mutation when the same
// Idempotency-Key is retried. Booking attempts store theirs keyed per
// user so a resent request cannot dispatch twice.
type Record struct {
	Key        string
	Status     int
	Body       []byte
	OccurredAt time.Time
}

type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
}

// Key scopes a client-supplied key to its user so keys cannot collide
// across accounts.
func Key(userID, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return userID + ":" + raw
}
