package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "github.com/slogsolutions/WebBuyer/internal/app/outbox"
)

// OutboxStore queues outbound records in memory. Delivery guarantees
// end with the process; mongo mode is the durable one.
type OutboxStore struct {
	mu    sync.Mutex
	items map[string]*appoutbox.Record
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{items: make(map[string]*appoutbox.Record)}
}

func (s *OutboxStore) Add(ctx context.Context, rec appoutbox.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.ID] = &rec
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, now time.Time, limit int) ([]appoutbox.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*appoutbox.Record, 0, len(s.items))
	for _, rec := range s.items {
		if rec.State != appoutbox.StateNew || rec.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, rec)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]appoutbox.Record, 0, len(due))
	for _, rec := range due {
		rec.State = appoutbox.StateClaimed
		rec.UpdatedAt = now
		claimed = append(claimed, *rec)
	}
	return claimed, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return appoutbox.ErrNotFound
	}
	rec.State = appoutbox.StateSent
	rec.UpdatedAt = now
	return nil
}

func (s *OutboxStore) Retry(ctx context.Context, id string, retryAt time.Time, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return appoutbox.ErrNotFound
	}
	rec.State = appoutbox.StateNew
	rec.Attempts += 1
	rec.NextAttemptAt = retryAt
	rec.LastError = cause
	rec.UpdatedAt = retryAt
	return nil
}

func (s *OutboxStore) Fail(ctx context.Context, id string, now time.Time, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return appoutbox.ErrNotFound
	}
	rec.State = appoutbox.StateFailed
	rec.LastError = cause
	rec.UpdatedAt = now
	return nil
}

var _ appoutbox.Store = (*OutboxStore)(nil)
