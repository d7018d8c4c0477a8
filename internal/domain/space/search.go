package space

import "strings"

// CatalogSort defines a supported ordering.
type CatalogSort string

const (
	SortByPriceAsc  CatalogSort = "price_asc"
	SortByPriceDesc CatalogSort = "price_desc"
	SortByRating    CatalogSort = "rating_desc"
	SortByNewest    CatalogSort = "newest"

	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Owner        OwnerID
	City         string
	Query        string
	MaxRate      float64
	Covered      *bool
	EVCharging   *bool
	NearLat      float64
	NearLon      float64
	RadiusKm     float64
	Sort         CatalogSort
	Limit        int
	Offset       int
	OnlyActive   bool
	IncludeDraft bool
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.City = strings.TrimSpace(strings.ToLower(normalized.City))
	normalized.Query = strings.TrimSpace(strings.ToLower(normalized.Query))
	if normalized.MaxRate < 0 {
		normalized.MaxRate = 0
	}
	if normalized.RadiusKm < 0 {
		normalized.RadiusKm = 0
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	switch normalized.Sort {
	case SortByPriceAsc, SortByPriceDesc, SortByRating, SortByNewest:
	default:
		normalized.Sort = SortByPriceAsc
	}
	return normalized
}

// HasNearFilter reports whether a proximity filter is in effect.
func (p SearchParams) HasNearFilter() bool {
	return p.RadiusKm > 0
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Space
	Total int
}
