package dto

import (
	"time"

	"github.com/slogsolutions/WebBuyer/internal/app/summary"
	"github.com/slogsolutions/WebBuyer/internal/domain/rating"
)

// SpaceSummary is the composed card response: rating state, price
// breakdown, resolved photo URLs, and the client's window echoed back.
type SpaceSummary struct {
	Space    SummarySpace  `json:"space"`
	Window   SummaryWindow `json:"window"`
	Price    SummaryPrice  `json:"price"`
	Images   []string      `json:"images"`
	Carousel int           `json:"carousel"`
	Ratings  SummaryRating `json:"ratings"`
}

type SummarySpace struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AddressLine string   `json:"address_line"`
	City        string   `json:"city"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Features    []string `json:"features"`
	Covered     bool     `json:"covered"`
	EVCharging  bool     `json:"ev_charging"`
}

type SummaryWindow struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

type SummaryPrice struct {
	BasePerHour       float64  `json:"base_per_hour"`
	DiscountPercent   float64  `json:"discount_percent"`
	DiscountedPerHour float64  `json:"discounted_per_hour"`
	HasDiscount       bool     `json:"has_discount"`
	DurationHours     *float64 `json:"duration_hours"`
	Total             *float64 `json:"total"`
	Display           Display  `json:"display"`
}

// Display carries the locale-formatted render strings; empty when no
// formatter is configured.
type Display struct {
	Base       string `json:"base,omitempty"`
	Discounted string `json:"discounted,omitempty"`
	Total      string `json:"total,omitempty"`
}

type SummaryRating struct {
	Average float64         `json:"average"`
	Count   int             `json:"count"`
	Pending bool            `json:"pending"`
	Reviews []SummaryReview `json:"reviews"`
}

type SummaryReview struct {
	ID        string     `json:"id"`
	Score     float64    `json:"score"`
	Comment   string     `json:"comment"`
	Author    string     `json:"author"`
	CreatedAt *time.Time `json:"created_at"`
}

// MapSummary flattens a snapshot into the wire shape shared by the
// REST summary endpoint and the live session pushes.
func MapSummary(snap summary.Snapshot) SpaceSummary {
	out := SpaceSummary{
		Window: SummaryWindow{Start: snap.Window.Start, End: snap.Window.End},
		Price: SummaryPrice{
			BasePerHour:       snap.Quote.BasePerHour,
			DiscountPercent:   snap.Quote.DiscountPercent,
			DiscountedPerHour: snap.Quote.DiscountedPerHour,
			HasDiscount:       snap.Quote.HasDiscount,
			DurationHours:     snap.Quote.DurationHours,
			Total:             snap.Quote.Total,
			Display: Display{
				Base:       snap.Display.Base,
				Discounted: snap.Display.Discounted,
				Total:      snap.Display.Total,
			},
		},
		Images:   append([]string(nil), snap.Images...),
		Carousel: snap.Carousel,
		Ratings:  mapRatingState(snap.Ratings),
	}
	if snap.Space != nil {
		out.Space = SummarySpace{
			ID:          string(snap.Space.ID),
			Title:       snap.Space.Title,
			Description: snap.Space.Description,
			AddressLine: snap.Space.Address.Line1,
			City:        snap.Space.Address.City,
			Lat:         snap.Space.Address.Lat,
			Lon:         snap.Space.Address.Lon,
			Features:    append([]string(nil), snap.Space.Features...),
			Covered:     snap.Space.Covered,
			EVCharging:  snap.Space.EVCharging,
		}
	}
	return out
}

func mapRatingState(state summary.RatingState) SummaryRating {
	return SummaryRating{
		Average: state.Summary.Average,
		Count:   state.Summary.Count,
		Pending: state.Pending,
		Reviews: mapReviews(state.Reviews),
	}
}

func mapReviews(reviews []rating.Review) []SummaryReview {
	out := make([]SummaryReview, 0, len(reviews))
	for _, review := range reviews {
		item := SummaryReview{
			ID:      review.ID,
			Score:   review.Score,
			Comment: review.Comment,
			Author:  review.Author,
		}
		if !review.CreatedAt.IsZero() {
			created := review.CreatedAt
			item.CreatedAt = &created
		}
		out = append(out, item)
	}
	return out
}
