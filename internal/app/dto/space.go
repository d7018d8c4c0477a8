package dto

import (
	"time"

	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	domainspace "github.com/slogsolutions/WebBuyer/internal/domain/space"
)

// SpaceCatalog is a paginated collection of space cards.
type SpaceCatalog struct {
	Items []SpaceCard     `json:"items"`
	Meta  CatalogMetadata `json:"meta"`
}

// SpaceCard is the lightweight catalog representation of a space.
type SpaceCard struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	City              string   `json:"city"`
	AddressLine       string   `json:"address_line"`
	Lat               float64  `json:"lat"`
	Lon               float64  `json:"lon"`
	HourlyRate        float64  `json:"hourly_rate"`
	DiscountPercent   float64  `json:"discount_percent"`
	DiscountedPerHour float64  `json:"discounted_per_hour"`
	HasDiscount       bool     `json:"has_discount"`
	Rating            float64  `json:"rating"`
	ThumbnailURL      string   `json:"thumbnail_url"`
	Features          []string `json:"features"`
	Covered           bool     `json:"covered"`
	EVCharging        bool     `json:"ev_charging"`
	State             string   `json:"state"`
}

// SpaceDetail extends the card with the full record an owner or a
// detail page needs.
type SpaceDetail struct {
	SpaceCard
	Description string    `json:"description"`
	Country     string    `json:"country"`
	PhotoURLs   []string  `json:"photo_urls"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CatalogMetadata describes pagination.
type CatalogMetadata struct {
	Total  int    `json:"total"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Sort   string `json:"sort"`
}

// MapCatalog builds the catalog DTO from a search result.
func MapCatalog(result domainspace.SearchResult, params domainspace.SearchParams, resolver media.Resolver) SpaceCatalog {
	normalized := params.Normalized()
	items := make([]SpaceCard, 0, len(result.Items))
	for _, sp := range result.Items {
		items = append(items, MapSpaceCard(sp, resolver))
	}
	return SpaceCatalog{
		Items: items,
		Meta: CatalogMetadata{
			Total:  result.Total,
			Count:  len(items),
			Limit:  normalized.Limit,
			Offset: normalized.Offset,
			Sort:   string(normalized.Sort),
		},
	}
}

// MapSpaceCard copies domain data for frontend consumption. The
// thumbnail is the first resolved photo URL, which is the placeholder
// when the space has no photos.
func MapSpaceCard(sp *domainspace.Space, resolver media.Resolver) SpaceCard {
	if sp == nil {
		return SpaceCard{}
	}
	breakdown := pricing.Compute(sp.HourlyRate, sp.Discount)
	thumbnail := ""
	if urls := resolver.Resolve(sp.Photos); len(urls) > 0 {
		thumbnail = urls[0]
	}
	return SpaceCard{
		ID:                string(sp.ID),
		Title:             sp.Title,
		City:              sp.Address.City,
		AddressLine:       sp.Address.Line1,
		Lat:               sp.Address.Lat,
		Lon:               sp.Address.Lon,
		HourlyRate:        breakdown.BasePerHour,
		DiscountPercent:   breakdown.DiscountPercent,
		DiscountedPerHour: breakdown.DiscountedPerHour,
		HasDiscount:       breakdown.HasDiscount,
		Rating:            sp.Rating,
		ThumbnailURL:      thumbnail,
		Features:          append([]string(nil), sp.Features...),
		Covered:           sp.Covered,
		EVCharging:        sp.EVCharging,
		State:             string(sp.State),
	}
}

func MapSpaceDetail(sp *domainspace.Space, resolver media.Resolver) SpaceDetail {
	if sp == nil {
		return SpaceDetail{}
	}
	return SpaceDetail{
		SpaceCard:   MapSpaceCard(sp, resolver),
		Description: sp.Description,
		Country:     sp.Address.Country,
		PhotoURLs:   resolver.Resolve(sp.Photos),
		CreatedAt:   sp.CreatedAt,
		UpdatedAt:   sp.UpdatedAt,
	}
}
