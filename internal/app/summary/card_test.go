package summary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/app/policies"
	"github.com/slogsolutions/WebBuyer/internal/domain/booking"
	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/rating"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

type stubSpaces struct {
	mu     sync.Mutex
	spaces map[space.SpaceID]*space.Space
}

func newStubSpaces(items ...*space.Space) *stubSpaces {
	s := &stubSpaces{spaces: make(map[space.SpaceID]*space.Space)}
	for _, item := range items {
		s.spaces[item.ID] = item
	}
	return s
}

func (s *stubSpaces) ByID(ctx context.Context, id space.SpaceID) (*space.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[id]
	if !ok {
		return nil, space.ErrNotFound
	}
	clone := *sp
	return &clone, nil
}

func (s *stubSpaces) Save(ctx context.Context, sp *space.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *sp
	s.spaces[sp.ID] = &clone
	return nil
}

func (s *stubSpaces) Search(ctx context.Context, params space.SearchParams) (space.SearchResult, error) {
	return space.SearchResult{}, nil
}

type stubUsers struct {
	mu    sync.Mutex
	users map[user.ID]*user.User
}

func newStubUsers(items ...*user.User) *stubUsers {
	s := &stubUsers{users: make(map[user.ID]*user.User)}
	for _, item := range items {
		s.users[item.ID] = item
	}
	return s
}

func (s *stubUsers) ByID(ctx context.Context, id user.ID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *stubUsers) ByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (s *stubUsers) Save(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *stubUsers) setPhoneVerified(id user.ID, verified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.SetPhoneVerified(verified, time.Now())
	}
}

type stubVerifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubVerifier) StartChallenge(ctx context.Context, userID user.ID, phone string) (policies.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls += 1
	if s.err != nil {
		return policies.Challenge{}, s.err
	}
	return policies.Challenge{ID: "ch-1", Provider: "otp"}, nil
}

func (s *stubVerifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubDispatcher struct {
	mu       sync.Mutex
	handoffs []*booking.Handoff
	err      error
}

func (s *stubDispatcher) Dispatch(ctx context.Context, handoff *booking.Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.handoffs = append(s.handoffs, handoff)
	return nil
}

func (s *stubDispatcher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handoffs)
}

// emptySource settles immediately with an unrecognized payload so card
// tests that do not exercise ratings are not left with blocked fetches.
type emptySource struct{}

func (emptySource) FetchSpaceRatings(ctx context.Context, spaceID string) (rating.Payload, error) {
	return rating.Payload{Kind: rating.PayloadUnrecognized}, nil
}

func testSpace(id space.SpaceID, photos ...media.Ref) *space.Space {
	sp, err := space.New(space.CreateParams{
		ID:    id,
		Owner: "own-1",
		Title: "Bay " + string(id),
		Address: space.Address{
			Line1: "12 Rajpur Road",
			City:  "Dehradun",
			Lat:   30.32,
			Lon:   78.03,
		},
		HourlyRate: 50,
		Discount:   pricing.DiscountPercent(10),
		Rating:     4.0,
		Photos:     photos,
		Now:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		panic(err)
	}
	return sp
}

func testCard(deps CardDeps) *Card {
	if deps.Source == nil {
		deps.Source = emptySource{}
	}
	if deps.Logger == nil {
		deps.Logger = testLogger()
	}
	if deps.Resolver == (media.Resolver{}) {
		deps.Resolver = media.Resolver{APIBase: "https://api.test", Placeholder: "/p.png"}
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	}
	if deps.NewID == nil {
		counter := 0
		var mu sync.Mutex
		deps.NewID = func() string {
			mu.Lock()
			defer mu.Unlock()
			counter += 1
			return "h-" + string(rune('0'+counter))
		}
	}
	return NewCard(deps)
}

func TestCardSelectResetsCarouselKeepsWindow(t *testing.T) {
	spaces := newStubSpaces(
		testSpace("sp-a", media.StringRef("a1.jpg"), media.StringRef("a2.jpg"), media.StringRef("a3.jpg")),
		testSpace("sp-b", media.StringRef("b1.jpg")),
	)
	card := testCard(CardDeps{Spaces: spaces, Users: newStubUsers()})
	defer card.Close()

	ctx := context.Background()
	if _, err := card.Select(ctx, "sp-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	snap := card.SetCarousel(2)
	if snap.Carousel != 2 {
		t.Fatalf("expected carousel 2, got %d", snap.Carousel)
	}

	win := timewindow.Parse("2026-03-01T10:00:00Z", "2026-03-01T12:00:00Z")
	card.SetWindow(win)

	snap, err := card.Select(ctx, "sp-b")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.Carousel != 0 {
		t.Fatalf("expected carousel reset on selection, got %d", snap.Carousel)
	}
	if len(snap.Images) != 1 {
		t.Fatalf("expected sp-b images, got %v", snap.Images)
	}
	if !snap.Window.Equal(win) {
		t.Fatalf("expected window kept across selection")
	}
	if snap.Quote.Total == nil || *snap.Quote.Total != 90 {
		t.Fatalf("expected repriced total 90 for kept window, got %v", snap.Quote.Total)
	}
}

func TestCardCarouselStaysInBounds(t *testing.T) {
	spaces := newStubSpaces(testSpace("sp-a", media.StringRef("a1.jpg"), media.StringRef("a2.jpg")))
	card := testCard(CardDeps{Spaces: spaces, Users: newStubUsers()})
	defer card.Close()

	if _, err := card.Select(context.Background(), "sp-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if snap := card.SetCarousel(-4); snap.Carousel != 0 {
		t.Fatalf("expected clamp to 0, got %d", snap.Carousel)
	}
	if snap := card.SetCarousel(99); snap.Carousel != 1 {
		t.Fatalf("expected clamp to last frame, got %d", snap.Carousel)
	}
	if snap := card.StepCarousel(1); snap.Carousel != 1 {
		t.Fatalf("expected step to stay on last frame, got %d", snap.Carousel)
	}
	if snap := card.StepCarousel(-5); snap.Carousel != 0 {
		t.Fatalf("expected step clamp to 0, got %d", snap.Carousel)
	}
}

func TestCardWindowDrivesQuote(t *testing.T) {
	spaces := newStubSpaces(testSpace("sp-a"))
	card := testCard(CardDeps{Spaces: spaces, Users: newStubUsers()})
	defer card.Close()

	if _, err := card.Select(context.Background(), "sp-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	snap := card.SetWindow(timewindow.Parse("2026-03-01T10:00:00Z", "2026-03-01T11:30:00Z"))
	if snap.Quote.DurationHours == nil || *snap.Quote.DurationHours != 1.5 {
		t.Fatalf("expected 1.5 hours, got %v", snap.Quote.DurationHours)
	}
	if snap.Quote.Total == nil || *snap.Quote.Total != 67.5 {
		t.Fatalf("expected total 67.5 at discounted rate, got %v", snap.Quote.Total)
	}

	snap = card.SetWindow(timewindow.Parse("2026-03-01T10:00:00Z", ""))
	if snap.Quote.DurationHours != nil || snap.Quote.Total != nil {
		t.Fatalf("expected open window to clear duration and total")
	}
}

func TestCardAttemptWithoutSelection(t *testing.T) {
	card := testCard(CardDeps{Spaces: newStubSpaces(), Users: newStubUsers()})
	defer card.Close()

	if _, err := card.Attempt(context.Background(), ""); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestCardGateLadder(t *testing.T) {
	unverifiedFalse := false
	spaces := newStubSpaces(testSpace("sp-a"))
	users := newStubUsers(
		&user.User{ID: "anon-pending", Email: "p@x.in", Name: "P"},
		&user.User{ID: "phone-blocked", Email: "q@x.in", Name: "Q", Phone: "+91 5550101", IdentityVerified: true, PhoneVerified: &unverifiedFalse},
	)
	verifier := &stubVerifier{}
	dispatcher := &stubDispatcher{}
	card := testCard(CardDeps{Spaces: spaces, Users: users, Verifier: verifier, Dispatcher: dispatcher})
	defer card.Close()

	ctx := context.Background()
	if _, err := card.Select(ctx, "sp-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	res, err := card.Attempt(ctx, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Decision.Status != booking.StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", res.Decision.Status)
	}

	res, err = card.Attempt(ctx, "missing-user")
	if err != nil {
		t.Fatalf("expected unknown user to read as anonymous, got %v", err)
	}
	if res.Decision.Status != booking.StatusUnauthenticated {
		t.Fatalf("expected unauthenticated for unknown user, got %s", res.Decision.Status)
	}

	res, err = card.Attempt(ctx, "anon-pending")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Decision.Status != booking.StatusIdentityUnverified {
		t.Fatalf("expected identity stop, got %s", res.Decision.Status)
	}

	res, err = card.Attempt(ctx, "phone-blocked")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Decision.Status != booking.StatusPhoneUnverified {
		t.Fatalf("expected phone stop, got %s", res.Decision.Status)
	}
	if res.Challenge == nil || res.Challenge.ID != "ch-1" {
		t.Fatalf("expected challenge to start, got %+v", res.Challenge)
	}
	if verifier.callCount() != 1 {
		t.Fatalf("expected one challenge, got %d", verifier.callCount())
	}
	if dispatcher.count() != 0 {
		t.Fatalf("expected no handoff before gate clears")
	}
}

func TestCardPhoneVerifiedReentryDispatchesOnce(t *testing.T) {
	unverifiedFalse := false
	spaces := newStubSpaces(testSpace("sp-a"))
	users := newStubUsers(&user.User{
		ID: "d1", Email: "d@x.in", Name: "D", Phone: "+91 5550102",
		IdentityVerified: true, PhoneVerified: &unverifiedFalse,
	})
	verifier := &stubVerifier{}
	dispatcher := &stubDispatcher{}
	card := testCard(CardDeps{Spaces: spaces, Users: users, Verifier: verifier, Dispatcher: dispatcher})
	defer card.Close()

	ctx := context.Background()
	if _, err := card.Select(ctx, "sp-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	card.SetWindow(timewindow.Parse("2026-03-01T10:00:00Z", "2026-03-01T12:00:00Z"))

	res, err := card.Attempt(ctx, "d1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Decision.Status != booking.StatusPhoneUnverified {
		t.Fatalf("expected phone stop, got %s", res.Decision.Status)
	}

	// Driver completes the confirmation; the stored flag flips before
	// the success signal lands.
	users.setPhoneVerified("d1", true)

	res, rerun, err := card.OnPhoneVerified(ctx, "d1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !rerun {
		t.Fatalf("expected waiting attempt to re-run")
	}
	if res.Decision.Status != booking.StatusEligible {
		t.Fatalf("expected eligible after re-run, got %s", res.Decision.Status)
	}
	if res.Handoff == nil {
		t.Fatalf("expected handoff on eligibility")
	}
	if dispatcher.count() != 1 {
		t.Fatalf("expected exactly one handoff, got %d", dispatcher.count())
	}
	if res.Handoff.Total == nil || *res.Handoff.Total != 90 {
		t.Fatalf("expected handoff total 90, got %v", res.Handoff.Total)
	}

	// A duplicate success signal must not dispatch again.
	if _, rerun, _ := card.OnPhoneVerified(ctx, "d1"); rerun {
		t.Fatalf("expected no second re-run")
	}
	if dispatcher.count() != 1 {
		t.Fatalf("expected handoff count to stay at 1, got %d", dispatcher.count())
	}
	if verifier.callCount() != 1 {
		t.Fatalf("expected no extra challenge, got %d", verifier.callCount())
	}
}

func TestCardChallengeClosedAbandonsAttempt(t *testing.T) {
	unverifiedFalse := false
	spaces := newStubSpaces(testSpace("sp-a"))
	users := newStubUsers(&user.User{
		ID: "d1", Email: "d@x.in", Name: "D", Phone: "+91 5550103",
		IdentityVerified: true, PhoneVerified: &unverifiedFalse,
	})
	dispatcher := &stubDispatcher{}
	card := testCard(CardDeps{Spaces: spaces, Users: users, Verifier: &stubVerifier{}, Dispatcher: dispatcher})
	defer card.Close()

	ctx := context.Background()
	if _, err := card.Select(ctx, "sp-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := card.Attempt(ctx, "d1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	card.OnChallengeClosed()
	users.setPhoneVerified("d1", true)

	if _, rerun, _ := card.OnPhoneVerified(ctx, "d1"); rerun {
		t.Fatalf("expected dismissed attempt not to re-run")
	}
	if dispatcher.count() != 0 {
		t.Fatalf("expected no handoff after dismissal, got %d", dispatcher.count())
	}
}

func TestCardEligibleDispatchesPricedHandoff(t *testing.T) {
	spaces := newStubSpaces(testSpace("sp-a"))
	// Identity verified, phone never asked: the gate passes.
	users := newStubUsers(&user.User{ID: "d1", Email: "d@x.in", Name: "D", IdentityVerified: true})
	dispatcher := &stubDispatcher{}
	card := testCard(CardDeps{Spaces: spaces, Users: users, Dispatcher: dispatcher})
	defer card.Close()

	ctx := context.Background()
	if _, err := card.Select(ctx, "sp-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	card.SetWindow(timewindow.Parse("2026-03-01T10:00:00Z", "2026-03-01T11:30:00Z"))

	res, err := card.Attempt(ctx, "d1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Decision.Status != booking.StatusEligible {
		t.Fatalf("expected eligible, got %s", res.Decision.Status)
	}
	h := res.Handoff
	if h == nil || h.SpaceID != "sp-a" || h.DriverID != "d1" {
		t.Fatalf("unexpected handoff %+v", h)
	}
	if h.RatePerHour != 45 {
		t.Fatalf("expected discounted rate 45, got %v", h.RatePerHour)
	}
	if h.DurationHours == nil || *h.DurationHours != 1.5 {
		t.Fatalf("expected 1.5 hours, got %v", h.DurationHours)
	}
	if h.Total == nil || *h.Total != 67.5 {
		t.Fatalf("expected total 67.5, got %v", h.Total)
	}
}

func TestCardDispatchFailureSurfaces(t *testing.T) {
	spaces := newStubSpaces(testSpace("sp-a"))
	users := newStubUsers(&user.User{ID: "d1", Email: "d@x.in", Name: "D", IdentityVerified: true})
	dispatcher := &stubDispatcher{err: errors.New("outbox unavailable")}
	card := testCard(CardDeps{Spaces: spaces, Users: users, Dispatcher: dispatcher})
	defer card.Close()

	ctx := context.Background()
	if _, err := card.Select(ctx, "sp-a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := card.Attempt(ctx, "d1"); err == nil {
		t.Fatalf("expected dispatch failure to surface")
	}
}
