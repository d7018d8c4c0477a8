package summary

import (
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/money"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
)

// SpaceInfo is the static slice of a snapshot.
type SpaceInfo struct {
	ID          space.SpaceID
	Title       string
	Description string
	Address     space.Address
	Features    []string
	Covered     bool
	EVCharging  bool
}

// PriceDisplay carries locale-formatted render strings alongside the
// numeric quote.
type PriceDisplay struct {
	Base       string
	Discounted string
	Total      string
}

// Snapshot is one consistent view of a summary card.
type Snapshot struct {
	Space    *SpaceInfo
	Window   timewindow.Window
	Quote    pricing.Quote
	Display  PriceDisplay
	Images   []string
	Carousel int
	Ratings  RatingState
}

func buildSnapshot(sp *space.Space, win timewindow.Window, quote pricing.Quote, images []string, carousel int, ratings RatingState, formatter money.Formatter) Snapshot {
	snap := Snapshot{
		Window:   win,
		Quote:    quote,
		Images:   append([]string(nil), images...),
		Carousel: carousel,
		Ratings:  ratings,
	}
	if sp == nil {
		return snap
	}
	snap.Space = &SpaceInfo{
		ID:          sp.ID,
		Title:       sp.Title,
		Description: sp.Description,
		Address:     sp.Address,
		Features:    append([]string(nil), sp.Features...),
		Covered:     sp.Covered,
		EVCharging:  sp.EVCharging,
	}
	if !formatter.Zero() {
		snap.Display.Base = formatter.PerHour(quote.BasePerHour)
		snap.Display.Discounted = formatter.PerHour(quote.DiscountedPerHour)
		if quote.Total != nil {
			snap.Display.Total = formatter.Amount(*quote.Total)
		}
	}
	return snap
}
