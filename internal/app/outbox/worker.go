package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Publisher is the broker-facing half of the drain loop.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

const (
	defaultInterval    = 2 * time.Second
	defaultBatchSize   = 32
	defaultMaxAttempts = 8
	backoffBase        = 5 * time.Second
	backoffCap         = 5 * time.Minute
)

// Worker drains due records to the publisher on a fixed cadence.
// Failed publishes re-queue with exponential backoff until the attempts
// run out, then the record parks as FAILED for operators.
type Worker struct {
	Store       Store
	Publisher   Publisher
	Logger      *slog.Logger
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Now         func() time.Time
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce claims one batch and publishes it. Returns the number of
// records successfully sent.
func (w *Worker) DrainOnce(ctx context.Context) int {
	now := w.now()
	batch := w.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	records, err := w.Store.Claim(ctx, now, batch)
	if err != nil {
		w.logger().Error("outbox claim failed", "error", err)
		return 0
	}
	sent := 0
	for _, rec := range records {
		if err := w.Publisher.Publish(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			w.handleFailure(ctx, rec, err)
			continue
		}
		if err := w.Store.MarkSent(ctx, rec.ID, w.now()); err != nil {
			w.logger().Error("outbox mark sent failed", "record_id", rec.ID, "error", err)
			continue
		}
		sent += 1
	}
	return sent
}

func (w *Worker) handleFailure(ctx context.Context, rec Record, cause error) {
	attempts := rec.Attempts + 1
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if attempts >= maxAttempts {
		if err := w.Store.Fail(ctx, rec.ID, w.now(), cause.Error()); err != nil {
			w.logger().Error("outbox fail mark failed", "record_id", rec.ID, "error", err)
			return
		}
		w.logger().Error("outbox record parked",
			"record_id", rec.ID,
			"topic", rec.Topic,
			"attempts", attempts,
			"error", cause,
		)
		return
	}
	retryAt := w.now().Add(Backoff(attempts))
	if err := w.Store.Retry(ctx, rec.ID, retryAt, cause.Error()); err != nil {
		w.logger().Error("outbox retry mark failed", "record_id", rec.ID, "error", err)
		return
	}
	w.logger().Warn("outbox publish failed",
		"record_id", rec.ID,
		"topic", rec.Topic,
		"attempt", attempts,
		"retry_at", retryAt,
		"error", cause,
	)
}

// Backoff doubles per attempt from the base, capped.
func Backoff(attempts int) time.Duration {
	d := backoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
