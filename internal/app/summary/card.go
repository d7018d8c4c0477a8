package summary

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slogsolutions/WebBuyer/internal/app/policies"
	"github.com/slogsolutions/WebBuyer/internal/domain/booking"
	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/rating"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/money"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

var ErrNoSelection = errors.New("summary: no space selected")

// CardDeps wires a Card to its collaborators.
type CardDeps struct {
	Spaces     space.Repository
	Users      user.Repository
	Source     rating.Source
	Verifier   policies.PhoneVerifier
	Dispatcher policies.HandoffDispatcher
	Resolver   media.Resolver
	Formatter  money.Formatter
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// Card drives one driver's summary view: the selected space, the
// prospective window, the photo carousel and the live rating state.
// Methods may be called from multiple goroutines; state changes win in
// call order.
type Card struct {
	deps CardDeps
	agg  *Aggregator

	mu          sync.Mutex
	space       *space.Space
	window      timewindow.Window
	quote       pricing.Quote
	images      []string
	carousel    int
	pendingBook bool
}

func NewCard(deps CardDeps) *Card {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Card{
		deps: deps,
		agg:  NewAggregator(deps.Source, deps.Logger),
	}
}

// RatingUpdates streams rating-state changes for push transports.
func (c *Card) RatingUpdates() <-chan RatingState {
	return c.agg.Updates()
}

// Select loads a space and rebuilds the card around it. The carousel
// resets to the first frame; the chosen window is kept so the driver
// does not lose picked times while comparing spaces.
func (c *Card) Select(ctx context.Context, id space.SpaceID) (Snapshot, error) {
	sp, err := c.deps.Spaces.ByID(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.space = sp
	c.carousel = 0
	c.images = c.deps.Resolver.Resolve(sp.Photos)
	c.quote = pricing.QuoteFor(sp.HourlyRate, sp.Discount, c.window)
	c.pendingBook = false
	c.agg.Select(ctx, string(sp.ID), sp.Rating)
	return c.snapshotLocked(), nil
}

// SetWindow replaces the prospective window and reprices the quote.
func (c *Card) SetWindow(w timewindow.Window) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = w
	if c.space != nil {
		c.quote = pricing.QuoteFor(c.space.HourlyRate, c.space.Discount, w)
	}
	return c.snapshotLocked()
}

// SetCarousel clamps i into the current image range.
func (c *Card) SetCarousel(i int) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carousel = clampIndex(i, len(c.images))
	return c.snapshotLocked()
}

// StepCarousel moves the carousel relative to the current frame.
func (c *Card) StepCarousel(delta int) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carousel = clampIndex(c.carousel+delta, len(c.images))
	return c.snapshotLocked()
}

func clampIndex(i, n int) int {
	switch {
	case n <= 0 || i < 0:
		return 0
	case i >= n:
		return n - 1
	default:
		return i
	}
}

func (c *Card) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Card) snapshotLocked() Snapshot {
	return buildSnapshot(c.space, c.window, c.quote, c.images, c.carousel, c.agg.Current(), c.deps.Formatter)
}

// AttemptResult is the outcome of one booking attempt.
type AttemptResult struct {
	Decision  booking.GateDecision
	Challenge *policies.Challenge
	Handoff   *booking.Handoff
}

// Attempt runs the booking gate for the current selection. userID is
// empty for anonymous sessions. The user is loaded fresh on every
// attempt so verification completed since the last render counts. On a
// phone-verification stop a challenge starts and the attempt re-runs
// when the success signal arrives; on eligibility exactly one handoff
// is dispatched.
func (c *Card) Attempt(ctx context.Context, userID user.ID) (AttemptResult, error) {
	c.mu.Lock()
	sp := c.space
	win := c.window
	quote := c.quote
	c.mu.Unlock()
	if sp == nil {
		return AttemptResult{}, ErrNoSelection
	}

	u, err := c.loadUser(ctx, userID)
	if err != nil {
		return AttemptResult{}, err
	}
	decision := booking.EvaluateGate(u)
	switch decision.Status {
	case booking.StatusPhoneUnverified:
		res := AttemptResult{Decision: decision}
		if c.deps.Verifier == nil {
			return res, nil
		}
		challenge, err := c.deps.Verifier.StartChallenge(ctx, u.ID, u.Phone)
		if err != nil {
			c.deps.Logger.Warn("phone challenge not started", "user_id", u.ID, "error", err)
			return res, nil
		}
		c.mu.Lock()
		c.pendingBook = true
		c.mu.Unlock()
		res.Challenge = &challenge
		return res, nil
	case booking.StatusEligible:
		handoff, err := booking.NewHandoff(booking.HandoffParams{
			ID:       booking.HandoffID(c.deps.NewID()),
			SpaceID:  sp.ID,
			DriverID: u.ID,
			Window:   win,
			Quote:    quote,
			Now:      c.deps.Now(),
		})
		if err != nil {
			return AttemptResult{}, err
		}
		if err := c.deps.Dispatcher.Dispatch(ctx, handoff); err != nil {
			return AttemptResult{}, err
		}
		c.mu.Lock()
		c.pendingBook = false
		c.mu.Unlock()
		c.deps.Logger.Info("booking handoff dispatched",
			"handoff_id", handoff.ID,
			"space_id", handoff.SpaceID,
			"driver_id", handoff.DriverID,
		)
		return AttemptResult{Decision: decision, Handoff: handoff}, nil
	default:
		return AttemptResult{Decision: decision}, nil
	}
}

func (c *Card) loadUser(ctx context.Context, userID user.ID) (*user.User, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return nil, nil
	}
	u, err := c.deps.Users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// OnPhoneVerified is the success signal from the verification
// sub-flow. The gate re-runs from the top; the second return is false
// when no booking attempt was waiting on the confirmation.
func (c *Card) OnPhoneVerified(ctx context.Context, userID user.ID) (AttemptResult, bool, error) {
	c.mu.Lock()
	pending := c.pendingBook
	c.pendingBook = false
	c.mu.Unlock()
	if !pending {
		return AttemptResult{}, false, nil
	}
	res, err := c.Attempt(ctx, userID)
	return res, true, err
}

// OnChallengeClosed is the dismissal signal from the verification
// sub-flow; the waiting attempt, if any, is abandoned.
func (c *Card) OnChallengeClosed() {
	c.mu.Lock()
	c.pendingBook = false
	c.mu.Unlock()
}

// Close releases the aggregator. The card is unusable afterwards.
func (c *Card) Close() {
	c.agg.Close()
}
