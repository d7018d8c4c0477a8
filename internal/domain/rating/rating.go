package rating

import (
	"context"
	"sort"
	"time"
)

// AnonymousAuthor labels reviews whose record carried no usable author.
const AnonymousAuthor = "Anonymous"

// Summary is the aggregate shown beside the stars on a space card.
type Summary struct {
	Average float64
	Count   int
}

// Review is one normalized review from the ratings service. CreatedAt
// is zero when the upstream record carried no usable timestamp; such
// reviews sort after every dated one.
type Review struct {
	ID        string
	Score     float64
	Comment   string
	Author    string
	CreatedAt time.Time
}

// Source fetches the raw ratings payload for one space.
type Source interface {
	FetchSpaceRatings(ctx context.Context, spaceID string) (Payload, error)
}

// Normalize folds a decoded payload into the summary and ordered
// review list for one space. fallback is the catalog's cached average,
// used when the payload carries neither stats nor records.
func Normalize(p Payload, fallback float64) (Summary, []Review) {
	reviews := make([]Review, 0, len(p.Records))
	var sum float64
	for _, rec := range p.Records {
		author := rec.Author
		if author == "" {
			author = AnonymousAuthor
		}
		reviews = append(reviews, Review{
			ID:        rec.ID,
			Score:     rec.Score,
			Comment:   rec.Comment,
			Author:    author,
			CreatedAt: rec.CreatedAt,
		})
		sum += rec.Score
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		return sortKey(reviews[i].CreatedAt) > sortKey(reviews[j].CreatedAt)
	})

	switch {
	case p.Stats != nil:
		return Summary{Average: clampScore(p.Stats.Average), Count: max(p.Stats.Count, 0)}, reviews
	case len(reviews) > 0:
		return Summary{Average: sum / float64(len(reviews)), Count: len(reviews)}, reviews
	default:
		return Summary{Average: clampScore(fallback), Count: 0}, reviews
	}
}

func sortKey(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
