package booking

import (
	"errors"
	"strings"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

var (
	ErrHandoffIDRequired = errors.New("booking: handoff id is required")
	ErrSpaceRequired     = errors.New("booking: space is required")
	ErrDriverRequired    = errors.New("booking: driver is required")
)

type HandoffID string

// Handoff is the package passed to the booking pipeline once the gate
// clears. The window may still be open-ended at attempt time, so the
// duration and total fields stay nil rather than guessing.
type Handoff struct {
	ID            HandoffID
	SpaceID       space.SpaceID
	DriverID      user.ID
	Start         *time.Time
	End           *time.Time
	RatePerHour   float64
	DurationHours *float64
	Total         *float64
	RequestedAt   time.Time
}

type HandoffParams struct {
	ID       HandoffID
	SpaceID  space.SpaceID
	DriverID user.ID
	Window   timewindow.Window
	Quote    pricing.Quote
	Now      time.Time
}

func NewHandoff(params HandoffParams) (*Handoff, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrHandoffIDRequired
	}
	if strings.TrimSpace(string(params.SpaceID)) == "" {
		return nil, ErrSpaceRequired
	}
	if strings.TrimSpace(string(params.DriverID)) == "" {
		return nil, ErrDriverRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	h := &Handoff{
		ID:          params.ID,
		SpaceID:     params.SpaceID,
		DriverID:    params.DriverID,
		Start:       cloneTime(params.Window.Start),
		End:         cloneTime(params.Window.End),
		RatePerHour: params.Quote.DiscountedPerHour,
		RequestedAt: now.UTC(),
	}
	if v := params.Quote.DurationHours; v != nil {
		d := *v
		h.DurationHours = &d
	}
	if v := params.Quote.Total; v != nil {
		total := *v
		h.Total = &total
	}
	return h, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := t.UTC()
	return &c
}
