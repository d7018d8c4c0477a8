package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/app/policies"
	"github.com/slogsolutions/WebBuyer/internal/domain/booking"
)

// TopicHandoff carries cleared booking attempts to the booking
// pipeline. Keyed by space so per-space ordering survives partitioning.
const TopicHandoff = "booking.handoff.v1"

var (
	ErrRecordIDRequired = errors.New("outbox: record id is required")
	ErrTopicRequired    = errors.New("outbox: topic is required")
	ErrNotFound         = errors.New("outbox: record not found")
)

type State string

const (
	StateNew     State = "NEW"
	StateClaimed State = "CLAIMED"
	StateSent    State = "SENT"
	StateFailed  State = "FAILED"
)

// Record is one outbound message written in the same store as the
// state change that produced it. A worker drains records to the
// broker, so a broker outage delays delivery instead of losing it.
type Record struct {
	ID            string
	Topic         string
	Key           string
	Payload       []byte
	State         State
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Store interface {
	Add(ctx context.Context, rec Record) error
	// Claim moves due NEW records to CLAIMED and returns them, oldest
	// first, at most limit.
	Claim(ctx context.Context, now time.Time, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id string, now time.Time) error
	// Retry returns a claimed record to NEW with the next attempt time.
	Retry(ctx context.Context, id string, retryAt time.Time, cause string) error
	// Fail parks a record terminally after retries are exhausted.
	Fail(ctx context.Context, id string, now time.Time, cause string) error
}

type handoffMessage struct {
	HandoffID     string     `json:"handoff_id"`
	SpaceID       string     `json:"space_id"`
	DriverID      string     `json:"driver_id"`
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	RatePerHour   float64    `json:"rate_per_hour"`
	DurationHours *float64   `json:"duration_hours,omitempty"`
	Total         *float64   `json:"total,omitempty"`
	RequestedAt   time.Time  `json:"requested_at"`
}

// NewHandoffRecord encodes a handoff for the booking topic. The record
// id reuses the handoff id, so replays stay idempotent downstream.
func NewHandoffRecord(h *booking.Handoff, now time.Time) (Record, error) {
	if h == nil {
		return Record{}, errors.New("outbox: handoff is required")
	}
	payload, err := json.Marshal(handoffMessage{
		HandoffID:     string(h.ID),
		SpaceID:       string(h.SpaceID),
		DriverID:      string(h.DriverID),
		Start:         h.Start,
		End:           h.End,
		RatePerHour:   h.RatePerHour,
		DurationHours: h.DurationHours,
		Total:         h.Total,
		RequestedAt:   h.RequestedAt,
	})
	if err != nil {
		return Record{}, err
	}
	now = now.UTC()
	return Record{
		ID:            string(h.ID),
		Topic:         TopicHandoff,
		Key:           string(h.SpaceID),
		Payload:       payload,
		State:         StateNew,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Validate catches malformed records before they reach a store.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrRecordIDRequired
	}
	if strings.TrimSpace(r.Topic) == "" {
		return ErrTopicRequired
	}
	return nil
}

// Dispatcher satisfies the booking flow's dispatch port by writing
// records instead of talking to the broker inline.
type Dispatcher struct {
	Store Store
	Now   func() time.Time
}

var _ policies.HandoffDispatcher = (*Dispatcher)(nil)

func (d *Dispatcher) Dispatch(ctx context.Context, h *booking.Handoff) error {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	rec, err := NewHandoffRecord(h, now())
	if err != nil {
		return err
	}
	return d.Store.Add(ctx, rec)
}
