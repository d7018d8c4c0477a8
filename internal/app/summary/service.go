package summary

import (
	"context"
	"log/slog"

	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/rating"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/money"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
)

// Service composes one-shot summary snapshots for the REST surface.
// Live sessions use Card instead; both share the same normalization
// and pricing rules.
type Service struct {
	spaces    space.Repository
	source    rating.Source
	resolver  media.Resolver
	formatter money.Formatter
	logger    *slog.Logger
}

func NewService(spaces space.Repository, source rating.Source, resolver media.Resolver, formatter money.Formatter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		spaces:    spaces,
		source:    source,
		resolver:  resolver,
		formatter: formatter,
		logger:    logger,
	}
}

// Compose builds a snapshot for one space, fetching ratings inline.
// A failed fetch degrades to the catalog's cached average with zero
// count instead of failing the request.
func (s *Service) Compose(ctx context.Context, id space.SpaceID, win timewindow.Window) (Snapshot, error) {
	sp, err := s.spaces.ByID(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}

	state := RatingState{SpaceID: string(sp.ID), Summary: rating.Summary{Average: sp.Rating}}
	payload, err := s.source.FetchSpaceRatings(ctx, string(sp.ID))
	if err != nil {
		s.logger.Warn("rating fetch failed", "space_id", sp.ID, "error", err)
	} else {
		state.Summary, state.Reviews = rating.Normalize(payload, sp.Rating)
	}

	quote := pricing.QuoteFor(sp.HourlyRate, sp.Discount, win)
	return buildSnapshot(sp, win, quote, s.resolver.Resolve(sp.Photos), 0, state, s.formatter), nil
}
