package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	domainpricing "github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	domainspace "github.com/slogsolutions/WebBuyer/internal/domain/space"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

const earthRadiusKm = 6371.0

type SpaceRepository struct {
	col *mongo.Collection
}

func NewSpaceRepository(db *mongo.Database) *SpaceRepository {
	col := db.Collection("agg_space")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "location", Value: "2dsphere"}}})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "address.city_lc", Value: 1}, {Key: "state", Value: 1}}})
	return &SpaceRepository{col: col}
}

func (r *SpaceRepository) ByID(ctx context.Context, id domainspace.SpaceID) (*domainspace.Space, error) {
	var doc spaceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainspace.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *SpaceRepository) Save(ctx context.Context, sp *domainspace.Space) error {
	if sp == nil || sp.ID == "" {
		return domainspace.ErrIDRequired
	}
	doc := newSpaceDocument(sp)
	filter := bson.M{"_id": doc.ID, "version": sp.Version}
	doc.Version = sp.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	sp.Version = doc.Version
	return nil
}

func (r *SpaceRepository) Search(ctx context.Context, params domainspace.SearchParams) (domainspace.SearchResult, error) {
	opts := params.Normalized()
	filter := searchFilter(opts)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainspace.SearchResult{}, err
	}

	findOpts := options.Find().
		SetSort(searchSort(opts.Sort)).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))
	cursor, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return domainspace.SearchResult{}, err
	}
	defer cursor.Close(ctx)

	items := make([]*domainspace.Space, 0, opts.Limit)
	for cursor.Next(ctx) {
		var doc spaceDocument
		if err := cursor.Decode(&doc); err != nil {
			return domainspace.SearchResult{}, err
		}
		items = append(items, doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return domainspace.SearchResult{}, err
	}
	return domainspace.SearchResult{Items: items, Total: int(total)}, nil
}

func searchFilter(opts domainspace.SearchParams) bson.M {
	filter := bson.M{}
	switch {
	case opts.OnlyActive:
		filter["state"] = string(domainspace.SpaceActive)
	case opts.IncludeDraft:
	default:
		filter["state"] = bson.M{"$ne": string(domainspace.SpaceDraft)}
	}
	if opts.Owner != "" {
		filter["owner_id"] = string(opts.Owner)
	}
	if opts.City != "" {
		filter["address.city_lc"] = opts.City
	}
	if opts.Query != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(opts.Query), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"address.line1": pattern},
			bson.M{"address.city": pattern},
		}
	}
	if opts.MaxRate > 0 {
		filter["hourly_rate"] = bson.M{"$lte": opts.MaxRate}
	}
	if opts.Covered != nil {
		filter["covered"] = *opts.Covered
	}
	if opts.EVCharging != nil {
		filter["ev_charging"] = *opts.EVCharging
	}
	if opts.HasNearFilter() {
		// $centerSphere takes the radius in radians.
		filter["location"] = bson.M{"$geoWithin": bson.M{"$centerSphere": bson.A{
			bson.A{opts.NearLon, opts.NearLat},
			opts.RadiusKm / earthRadiusKm,
		}}}
	}
	return filter
}

func searchSort(sort domainspace.CatalogSort) bson.D {
	switch sort {
	case domainspace.SortByPriceDesc:
		return bson.D{{Key: "hourly_rate", Value: -1}, {Key: "rating", Value: -1}}
	case domainspace.SortByRating:
		return bson.D{{Key: "rating", Value: -1}, {Key: "hourly_rate", Value: 1}}
	case domainspace.SortByNewest:
		return bson.D{{Key: "created_at", Value: -1}}
	default:
		return bson.D{{Key: "hourly_rate", Value: 1}, {Key: "rating", Value: -1}}
	}
}

type spaceDocument struct {
	ID          string          `bson:"_id"`
	Owner       string          `bson:"owner_id"`
	Title       string          `bson:"title"`
	Description string          `bson:"description"`
	Address     addressDocument `bson:"address"`
	Location    geoPoint        `bson:"location"`
	HourlyRate  float64         `bson:"hourly_rate"`
	DiscountPct float64         `bson:"discount_pct"`
	Rating      float64         `bson:"rating"`
	Photos      []refDocument   `bson:"photos"`
	Features    []string        `bson:"features"`
	Covered     bool            `bson:"covered"`
	EVCharging  bool            `bson:"ev_charging"`
	State       string          `bson:"state"`
	CreatedAt   int64           `bson:"created_at"`
	UpdatedAt   int64           `bson:"updated_at"`
	Version     int64           `bson:"version"`
}

type addressDocument struct {
	Line1   string  `bson:"line1"`
	City    string  `bson:"city"`
	CityLC  string  `bson:"city_lc"`
	Country string  `bson:"country"`
	Lat     float64 `bson:"lat"`
	Lon     float64 `bson:"lon"`
}

// geoPoint is the GeoJSON shape the 2dsphere index expects,
// coordinates ordered longitude first.
type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type refDocument struct {
	Value    string `bson:"value,omitempty"`
	URL      string `bson:"url,omitempty"`
	Path     string `bson:"path,omitempty"`
	Filename string `bson:"filename,omitempty"`
}

func newSpaceDocument(sp *domainspace.Space) spaceDocument {
	photos := make([]refDocument, 0, len(sp.Photos))
	for _, ref := range sp.Photos {
		photos = append(photos, refDocument{Value: ref.Value, URL: ref.URL, Path: ref.Path, Filename: ref.Filename})
	}
	return spaceDocument{
		ID:          string(sp.ID),
		Owner:       string(sp.Owner),
		Title:       sp.Title,
		Description: sp.Description,
		Address: addressDocument{
			Line1:   sp.Address.Line1,
			City:    sp.Address.City,
			CityLC:  strings.ToLower(sp.Address.City),
			Country: sp.Address.Country,
			Lat:     sp.Address.Lat,
			Lon:     sp.Address.Lon,
		},
		Location:    geoPoint{Type: "Point", Coordinates: []float64{sp.Address.Lon, sp.Address.Lat}},
		HourlyRate:  sp.HourlyRate,
		DiscountPct: sp.Discount.Percent(),
		Rating:      sp.Rating,
		Photos:      photos,
		Features:    append([]string(nil), sp.Features...),
		Covered:     sp.Covered,
		EVCharging:  sp.EVCharging,
		State:       string(sp.State),
		CreatedAt:   sp.CreatedAt.UnixMilli(),
		UpdatedAt:   sp.UpdatedAt.UnixMilli(),
		Version:     sp.Version,
	}
}

func (d spaceDocument) toAggregate() *domainspace.Space {
	photos := make([]media.Ref, 0, len(d.Photos))
	for _, ref := range d.Photos {
		photos = append(photos, media.Ref{Value: ref.Value, URL: ref.URL, Path: ref.Path, Filename: ref.Filename})
	}
	return &domainspace.Space{
		ID:          domainspace.SpaceID(d.ID),
		Owner:       domainspace.OwnerID(d.Owner),
		Title:       d.Title,
		Description: d.Description,
		Address: domainspace.Address{
			Line1:   d.Address.Line1,
			City:    d.Address.City,
			Country: d.Address.Country,
			Lat:     d.Address.Lat,
			Lon:     d.Address.Lon,
		},
		HourlyRate: d.HourlyRate,
		Discount:   domainpricing.DiscountPercent(d.DiscountPct),
		Rating:     d.Rating,
		Photos:     photos,
		Features:   d.Features,
		Covered:    d.Covered,
		EVCharging: d.EVCharging,
		State:      domainspace.SpaceState(d.State),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainspace.Repository = (*SpaceRepository)(nil)
