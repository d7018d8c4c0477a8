package summary

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/slogsolutions/WebBuyer/internal/domain/rating"
)

// RatingState is the ratings slice of a summary snapshot. Pending is
// true from selection until the fetch for the current space settles.
type RatingState struct {
	SpaceID string
	Summary rating.Summary
	Reviews []rating.Review
	Pending bool
}

func (s RatingState) clone() RatingState {
	out := s
	out.Reviews = append([]rating.Review(nil), s.Reviews...)
	return out
}

// Aggregator serializes rating fetches across space selections. Each
// Select opens a new fetch generation and cancels the previous one;
// completions from an older generation are discarded, so a slow
// response for a previously viewed space can never overwrite the
// current one.
type Aggregator struct {
	source rating.Source
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      RatingState
	updates    chan RatingState
	closed     bool
}

func NewAggregator(source rating.Source, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		source:  source,
		logger:  logger,
		updates: make(chan RatingState, 1),
	}
}

// Updates delivers state changes, coalescing to the latest state when
// the consumer lags. The channel closes with the aggregator.
func (a *Aggregator) Updates() <-chan RatingState {
	return a.updates
}

// Select switches the aggregator to spaceID. State resets to the
// catalog's cached average with zero review count and a background
// fetch starts; any in-flight fetch is cancelled.
func (a *Aggregator) Select(ctx context.Context, spaceID string, cachedAverage float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.generation++
	gen := a.generation

	fetchCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.state = RatingState{
		SpaceID: spaceID,
		Summary: rating.Summary{Average: cachedAverage},
		Pending: true,
	}
	a.publishLocked()

	go a.fetch(fetchCtx, gen, spaceID, cachedAverage)
}

func (a *Aggregator) fetch(ctx context.Context, gen uint64, spaceID string, cachedAverage float64) {
	payload, err := a.source.FetchSpaceRatings(ctx, spaceID)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || gen != a.generation {
		return
	}
	a.cancel = nil
	if err != nil {
		// Cancellation is not a result; the generation that cancelled
		// us already owns the state.
		if errors.Is(err, context.Canceled) {
			return
		}
		a.logger.Warn("rating fetch failed", "space_id", spaceID, "error", err)
		a.state.Pending = false
		a.publishLocked()
		return
	}
	s, reviews := rating.Normalize(payload, cachedAverage)
	a.state = RatingState{SpaceID: spaceID, Summary: s, Reviews: reviews}
	a.publishLocked()
}

// Current returns a copy of the latest state.
func (a *Aggregator) Current() RatingState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.clone()
}

// Close cancels any in-flight fetch and closes the updates channel.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	close(a.updates)
}

func (a *Aggregator) publishLocked() {
	state := a.state.clone()
	for {
		select {
		case a.updates <- state:
			return
		default:
		}
		select {
		case <-a.updates:
		default:
		}
	}
}
