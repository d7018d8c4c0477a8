package booking

import (
	"testing"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

func boolPtr(v bool) *bool { return &v }

func TestEvaluateGateOrder(t *testing.T) {
	cases := []struct {
		name string
		u    *user.User
		want EligibilityStatus
	}{
		{"anonymous", nil, StatusUnauthenticated},
		{"identity pending", &user.User{ID: "u1"}, StatusIdentityUnverified},
		{
			"phone explicitly unverified",
			&user.User{ID: "u1", IdentityVerified: true, PhoneVerified: boolPtr(false)},
			StatusPhoneUnverified,
		},
		{
			"phone never asked",
			&user.User{ID: "u1", IdentityVerified: true},
			StatusEligible,
		},
		{
			"fully verified",
			&user.User{ID: "u1", IdentityVerified: true, PhoneVerified: boolPtr(true)},
			StatusEligible,
		},
	}
	for _, tc := range cases {
		got := EvaluateGate(tc.u)
		if got.Status != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got.Status)
		}
		if got.Eligible() != (tc.want == StatusEligible) {
			t.Fatalf("%s: Eligible() disagrees with status", tc.name)
		}
		if tc.want != StatusEligible && got.Reason == "" {
			t.Fatalf("%s: expected a reason for %s", tc.name, tc.want)
		}
	}
}

func TestIdentityCheckedBeforePhone(t *testing.T) {
	// Both unverified: the gate must report the identity step, not the
	// phone step.
	u := &user.User{ID: "u1", PhoneVerified: boolPtr(false)}

	got := EvaluateGate(u)
	if got.Status != StatusIdentityUnverified {
		t.Fatalf("expected identity step to win, got %s", got.Status)
	}
}

func TestNewHandoffValidations(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if _, err := NewHandoff(HandoffParams{SpaceID: "sp", DriverID: "u"}); err != ErrHandoffIDRequired {
		t.Fatalf("expected ErrHandoffIDRequired, got %v", err)
	}
	if _, err := NewHandoff(HandoffParams{ID: "h", DriverID: "u"}); err != ErrSpaceRequired {
		t.Fatalf("expected ErrSpaceRequired, got %v", err)
	}
	if _, err := NewHandoff(HandoffParams{ID: "h", SpaceID: "sp"}); err != ErrDriverRequired {
		t.Fatalf("expected ErrDriverRequired, got %v", err)
	}

	w := timewindow.Parse("2026-03-01T10:00:00Z", "2026-03-01T12:00:00Z")
	h, err := NewHandoff(HandoffParams{
		ID:       "h1",
		SpaceID:  "sp1",
		DriverID: "u1",
		Window:   w,
		Quote:    pricing.QuoteFor(50, pricing.DiscountPercent(10), w),
		Now:      now,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if h.RatePerHour != 45 {
		t.Fatalf("expected discounted rate 45, got %v", h.RatePerHour)
	}
	if h.DurationHours == nil || *h.DurationHours != 2 {
		t.Fatalf("expected 2 hours, got %v", h.DurationHours)
	}
	if h.Total == nil || *h.Total != 90 {
		t.Fatalf("expected total 90, got %v", h.Total)
	}
	if !h.RequestedAt.Equal(now) {
		t.Fatalf("expected RequestedAt %v, got %v", now, h.RequestedAt)
	}
}

func TestNewHandoffKeepsOpenWindowNullSafe(t *testing.T) {
	w := timewindow.Parse("2026-03-01T10:00:00Z", "")
	h, err := NewHandoff(HandoffParams{
		ID:       "h2",
		SpaceID:  "sp1",
		DriverID: "u1",
		Window:   w,
		Quote:    pricing.QuoteFor(50, pricing.NoDiscount(), w),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if h.Start == nil || h.End != nil {
		t.Fatalf("expected open-ended window carried as-is, got start=%v end=%v", h.Start, h.End)
	}
	if h.DurationHours != nil || h.Total != nil {
		t.Fatalf("expected nil duration and total for open window")
	}
	if h.RatePerHour != 50 {
		t.Fatalf("expected base rate 50, got %v", h.RatePerHour)
	}
}
