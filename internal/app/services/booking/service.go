package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slogsolutions/WebBuyer/internal/app/policies"
	domainbooking "github.com/slogsolutions/WebBuyer/internal/domain/booking"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

var ErrSpaceUnavailable = errors.New("booking: space is not open for booking")

// Service runs one-shot booking attempts for the REST surface. Live
// sessions attempt through their card instead, which adds the
// waiting-on-verification state this stateless path does not keep: a
// REST client re-posts the attempt after the phone callback.
type Service struct {
	Spaces     space.Repository
	Users      user.Repository
	Verifier   policies.PhoneVerifier
	Dispatcher policies.HandoffDispatcher
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

type AttemptParams struct {
	SpaceID space.SpaceID
	UserID  user.ID
	Window  timewindow.Window
}

type AttemptResult struct {
	Decision  domainbooking.GateDecision
	Challenge *policies.Challenge
	Handoff   *domainbooking.Handoff
}

// Attempt loads the space and the user fresh, runs the gate, and on
// eligibility prices the window and dispatches exactly one handoff.
// A phone-verification stop starts a challenge when a verifier is
// configured; failure to start one still returns the gate decision.
func (s *Service) Attempt(ctx context.Context, params AttemptParams) (AttemptResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return AttemptResult{}, err
	}
	sp, err := s.Spaces.ByID(ctx, params.SpaceID)
	if err != nil {
		return AttemptResult{}, err
	}
	if sp.State != space.SpaceActive {
		return AttemptResult{}, ErrSpaceUnavailable
	}

	u, err := s.loadUser(ctx, params.UserID)
	if err != nil {
		return AttemptResult{}, err
	}
	decision := domainbooking.EvaluateGate(u)
	switch decision.Status {
	case domainbooking.StatusPhoneUnverified:
		res := AttemptResult{Decision: decision}
		if s.Verifier == nil {
			return res, nil
		}
		challenge, err := s.Verifier.StartChallenge(ctx, u.ID, u.Phone)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("phone challenge not started", "user_id", u.ID, "error", err)
			}
			return res, nil
		}
		res.Challenge = &challenge
		return res, nil
	case domainbooking.StatusEligible:
		quote := pricing.QuoteFor(sp.HourlyRate, sp.Discount, params.Window)
		handoff, err := domainbooking.NewHandoff(domainbooking.HandoffParams{
			ID:       domainbooking.HandoffID(s.newID()),
			SpaceID:  sp.ID,
			DriverID: u.ID,
			Window:   params.Window,
			Quote:    quote,
			Now:      s.now(),
		})
		if err != nil {
			return AttemptResult{}, err
		}
		if err := s.Dispatcher.Dispatch(ctx, handoff); err != nil {
			return AttemptResult{}, err
		}
		if s.Logger != nil {
			s.Logger.Info("booking handoff dispatched",
				"handoff_id", handoff.ID,
				"space_id", handoff.SpaceID,
				"driver_id", handoff.DriverID,
			)
		}
		return AttemptResult{Decision: decision, Handoff: handoff}, nil
	default:
		return AttemptResult{Decision: decision}, nil
	}
}

func (s *Service) loadUser(ctx context.Context, userID user.ID) (*user.User, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return nil, nil
	}
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Spaces == nil:
		return errors.New("booking: space repository is not configured")
	case s.Users == nil:
		return errors.New("booking: user repository is not configured")
	case s.Dispatcher == nil:
		return errors.New("booking: handoff dispatcher is not configured")
	default:
		return nil
	}
}
