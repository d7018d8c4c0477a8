package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
)

// SpaceRepository is an in-memory catalog for dev and tests.
type SpaceRepository struct {
	mu    sync.RWMutex
	items map[space.SpaceID]*space.Space
}

func NewSpaceRepository() *SpaceRepository {
	return &SpaceRepository{items: make(map[space.SpaceID]*space.Space)}
}

func (r *SpaceRepository) ByID(ctx context.Context, id space.SpaceID) (*space.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.items[id]
	if !ok {
		return nil, space.ErrNotFound
	}
	return cloneSpace(sp), nil
}

func (r *SpaceRepository) Save(ctx context.Context, sp *space.Space) error {
	if sp == nil || strings.TrimSpace(string(sp.ID)) == "" {
		return space.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[sp.ID] = cloneSpace(sp)
	return nil
}

// Search filters the catalog in memory. Proximity uses great-circle
// distance, which is plenty for city-scale radii.
func (r *SpaceRepository) Search(ctx context.Context, params space.SearchParams) (space.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*space.Space, 0, len(r.items))
	for _, sp := range r.items {
		select {
		case <-ctx.Done():
			return space.SearchResult{}, ctx.Err()
		default:
		}

		if !stateMatches(sp.State, opts) {
			continue
		}
		if opts.Owner != "" && sp.Owner != opts.Owner {
			continue
		}
		if opts.City != "" && strings.ToLower(sp.Address.City) != opts.City {
			continue
		}
		if opts.Query != "" && !matchQuery(sp, opts.Query) {
			continue
		}
		if opts.MaxRate > 0 && sp.HourlyRate > opts.MaxRate {
			continue
		}
		if opts.Covered != nil && sp.Covered != *opts.Covered {
			continue
		}
		if opts.EVCharging != nil && sp.EVCharging != *opts.EVCharging {
			continue
		}
		if opts.HasNearFilter() {
			if !sp.Address.CoordinateValid() {
				continue
			}
			if distanceKm(opts.NearLat, opts.NearLon, sp.Address.Lat, sp.Address.Lon) > opts.RadiusKm {
				continue
			}
		}
		matches = append(matches, sp)
	}

	sort.Slice(matches, func(i, j int) bool {
		switch opts.Sort {
		case space.SortByPriceDesc:
			if matches[i].HourlyRate == matches[j].HourlyRate {
				return matches[i].Rating > matches[j].Rating
			}
			return matches[i].HourlyRate > matches[j].HourlyRate
		case space.SortByRating:
			if matches[i].Rating == matches[j].Rating {
				return matches[i].HourlyRate < matches[j].HourlyRate
			}
			return matches[i].Rating > matches[j].Rating
		case space.SortByNewest:
			if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
				return matches[i].HourlyRate < matches[j].HourlyRate
			}
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		default:
			if matches[i].HourlyRate == matches[j].HourlyRate {
				return matches[i].Rating > matches[j].Rating
			}
			return matches[i].HourlyRate < matches[j].HourlyRate
		}
	})

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	page := make([]*space.Space, 0, end-start)
	for _, sp := range matches[start:end] {
		page = append(page, cloneSpace(sp))
	}
	return space.SearchResult{Items: page, Total: total}, nil
}

func stateMatches(state space.SpaceState, opts space.SearchParams) bool {
	switch {
	case opts.OnlyActive:
		return state == space.SpaceActive
	case opts.IncludeDraft:
		return true
	default:
		return state != space.SpaceDraft
	}
}

func matchQuery(sp *space.Space, needle string) bool {
	full := strings.ToLower(strings.Join([]string{
		sp.Title,
		sp.Description,
		sp.Address.Line1,
		sp.Address.City,
	}, " "))
	return strings.Contains(full, needle)
}

const earthRadiusKm = 6371.0

func distanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func cloneSpace(sp *space.Space) *space.Space {
	if sp == nil {
		return nil
	}
	copySpace := *sp
	copySpace.Photos = append([]media.Ref(nil), sp.Photos...)
	copySpace.Features = append([]string(nil), sp.Features...)
	return &copySpace
}

var _ space.Repository = (*SpaceRepository)(nil)
