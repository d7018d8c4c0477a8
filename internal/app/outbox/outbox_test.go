package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/domain/booking"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
)

type fakeStore struct {
	records map[string]*Record
	order   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*Record)}
}

func (s *fakeStore) Add(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.records[rec.ID] = &rec
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *fakeStore) Claim(ctx context.Context, now time.Time, limit int) ([]Record, error) {
	var claimed []Record
	for _, id := range s.order {
		if len(claimed) >= limit {
			break
		}
		rec := s.records[id]
		if rec.State != StateNew || rec.NextAttemptAt.After(now) {
			continue
		}
		rec.State = StateClaimed
		claimed = append(claimed, *rec)
	}
	return claimed, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id string, now time.Time) error {
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.State = StateSent
	rec.UpdatedAt = now
	return nil
}

func (s *fakeStore) Retry(ctx context.Context, id string, retryAt time.Time, cause string) error {
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.State = StateNew
	rec.Attempts += 1
	rec.NextAttemptAt = retryAt
	rec.LastError = cause
	return nil
}

func (s *fakeStore) Fail(ctx context.Context, id string, now time.Time, cause string) error {
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.State = StateFailed
	rec.LastError = cause
	rec.UpdatedAt = now
	return nil
}

type flakyPublisher struct {
	failures int
	calls    int
	topics   []string
	keys     []string
}

func (p *flakyPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	p.calls += 1
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	if p.calls <= p.failures {
		return errors.New("broker down")
	}
	return nil
}

func testHandoff(t *testing.T) *booking.Handoff {
	t.Helper()
	win := timewindow.Parse("2026-03-01T10:00:00Z", "2026-03-01T12:00:00Z")
	h, err := booking.NewHandoff(booking.HandoffParams{
		ID:       "h-1",
		SpaceID:  "sp-1",
		DriverID: "d-1",
		Window:   win,
		Quote:    pricing.QuoteFor(50, pricing.DiscountPercent(10), win),
		Now:      time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return h
}

func TestNewHandoffRecordEncodesMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 59, 30, 0, time.UTC)
	rec, err := NewHandoffRecord(testHandoff(t), now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.ID != "h-1" || rec.Topic != TopicHandoff || rec.Key != "sp-1" {
		t.Fatalf("unexpected record envelope %+v", rec)
	}
	if rec.State != StateNew || !rec.NextAttemptAt.Equal(now) {
		t.Fatalf("expected due NEW record, got %+v", rec)
	}

	var msg map[string]any
	if err := json.Unmarshal(rec.Payload, &msg); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if msg["handoff_id"] != "h-1" || msg["space_id"] != "sp-1" || msg["driver_id"] != "d-1" {
		t.Fatalf("unexpected identity fields %v", msg)
	}
	if msg["rate_per_hour"] != 45.0 {
		t.Fatalf("expected discounted rate 45, got %v", msg["rate_per_hour"])
	}
	if msg["total"] != 90.0 {
		t.Fatalf("expected total 90, got %v", msg["total"])
	}
	if msg["start"] != "2026-03-01T10:00:00Z" {
		t.Fatalf("unexpected start %v", msg["start"])
	}
}

func TestDispatcherWritesRecord(t *testing.T) {
	store := newFakeStore()
	d := &Dispatcher{Store: store, Now: func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }}

	if err := d.Dispatch(context.Background(), testHandoff(t)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	rec, ok := store.records["h-1"]
	if !ok || rec.State != StateNew {
		t.Fatalf("expected queued record, got %+v", rec)
	}
}

func TestWorkerDrainPublishesAndMarks(t *testing.T) {
	store := newFakeStore()
	pub := &flakyPublisher{}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	worker := &Worker{
		Store:     store,
		Publisher: pub,
		Logger:    slog.New(slog.DiscardHandler),
		Now:       func() time.Time { return now },
	}

	rec, err := NewHandoffRecord(testHandoff(t), now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := store.Add(context.Background(), rec); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if sent := worker.DrainOnce(context.Background()); sent != 1 {
		t.Fatalf("expected one record sent, got %d", sent)
	}
	if store.records["h-1"].State != StateSent {
		t.Fatalf("expected SENT, got %s", store.records["h-1"].State)
	}
	if pub.topics[0] != TopicHandoff || pub.keys[0] != "sp-1" {
		t.Fatalf("unexpected publish envelope %v %v", pub.topics, pub.keys)
	}

	// Drained records are not claimed again.
	if sent := worker.DrainOnce(context.Background()); sent != 0 {
		t.Fatalf("expected empty drain, got %d", sent)
	}
}

func TestWorkerRetriesWithBackoffThenParks(t *testing.T) {
	store := newFakeStore()
	pub := &flakyPublisher{failures: 100}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	worker := &Worker{
		Store:       store,
		Publisher:   pub,
		Logger:      slog.New(slog.DiscardHandler),
		MaxAttempts: 3,
		Now:         func() time.Time { return now },
	}

	rec, err := NewHandoffRecord(testHandoff(t), now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := store.Add(context.Background(), rec); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if sent := worker.DrainOnce(context.Background()); sent != 0 {
		t.Fatalf("expected failed drain, got %d", sent)
	}
	got := store.records["h-1"]
	if got.State != StateNew || got.Attempts != 1 {
		t.Fatalf("expected re-queued record, got %+v", got)
	}
	if !got.NextAttemptAt.Equal(now.Add(Backoff(1))) {
		t.Fatalf("expected backoff schedule, got %v", got.NextAttemptAt)
	}

	// Not due yet: the next drain skips it.
	if sent := worker.DrainOnce(context.Background()); sent != 0 {
		t.Fatalf("expected skip before retry time, got %d", sent)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected no extra attempt, got %d", got.Attempts)
	}

	// Advance past each retry until the attempts run out.
	now = now.Add(Backoff(1))
	worker.DrainOnce(context.Background())
	if got.State != StateNew || got.Attempts != 2 {
		t.Fatalf("expected second retry, got %+v", got)
	}

	now = now.Add(Backoff(2))
	worker.DrainOnce(context.Background())
	if got.State != StateFailed {
		t.Fatalf("expected parked record, got %s", got.State)
	}
	if got.LastError == "" {
		t.Fatalf("expected recorded cause")
	}
}

func TestBackoffDoublesToCap(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{7, 5 * time.Minute},
		{20, 5 * time.Minute},
	}
	for _, tc := range cases {
		if got := Backoff(tc.attempts); got != tc.want {
			t.Fatalf("Backoff(%d): expected %v, got %v", tc.attempts, got, tc.want)
		}
	}
}
