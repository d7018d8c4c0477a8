package space

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
)

var (
	ErrIDRequired      = errors.New("space: id is required")
	ErrOwnerRequired   = errors.New("space: owner is required")
	ErrTitleRequired   = errors.New("space: title is required")
	ErrHourlyRate      = errors.New("space: hourly rate must be non-negative")
	ErrBadCoordinate   = errors.New("space: coordinate out of range")
	ErrAddressRequired = errors.New("space: address must be provided when activating")
	ErrInvalidState    = errors.New("space: invalid state transition")
	ErrRatingRange     = errors.New("space: rating must be between 0 and 5")
	ErrNotFound        = errors.New("space: not found")
)

type SpaceID string
type OwnerID string

type SpaceState string

const (
	SpaceDraft     SpaceState = "DRAFT"
	SpaceActive    SpaceState = "ACTIVE"
	SpaceSuspended SpaceState = "SUSPENDED"
)

type Address struct {
	Line1   string
	City    string
	Country string
	Lat     float64
	Lon     float64
}

func (a Address) Valid() bool {
	return strings.TrimSpace(a.Line1) != "" && strings.TrimSpace(a.City) != "" && a.CoordinateValid()
}

func (a Address) CoordinateValid() bool {
	return a.Lat >= -90 && a.Lat <= 90 && a.Lon >= -180 && a.Lon <= 180
}

// Space is one rentable parking space in the catalog. Rating holds the
// cached average carried by the catalog record; the live value comes
// from the ratings service at render time.
type Space struct {
	ID          SpaceID
	Owner       OwnerID
	Title       string
	Description string
	Address     Address
	HourlyRate  float64
	Discount    pricing.Discount
	Rating      float64
	Photos      []media.Ref
	Features    []string
	Covered     bool
	EVCharging  bool
	State       SpaceState
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	ByID(ctx context.Context, id SpaceID) (*Space, error)
	Save(ctx context.Context, s *Space) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateParams struct {
	ID          SpaceID
	Owner       OwnerID
	Title       string
	Description string
	Address     Address
	HourlyRate  float64
	Discount    pricing.Discount
	Rating      float64
	Photos      []media.Ref
	Features    []string
	Covered     bool
	EVCharging  bool
	Now         time.Time
}

func New(params CreateParams) (*Space, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.HourlyRate < 0 {
		return nil, ErrHourlyRate
	}
	if !params.Address.CoordinateValid() {
		return nil, ErrBadCoordinate
	}
	if params.Rating < 0 || params.Rating > 5 {
		return nil, ErrRatingRange
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &Space{
		ID:          params.ID,
		Owner:       params.Owner,
		Title:       strings.TrimSpace(params.Title),
		Description: strings.TrimSpace(params.Description),
		Address:     params.Address,
		HourlyRate:  params.HourlyRate,
		Discount:    params.Discount,
		Rating:      params.Rating,
		Photos:      append([]media.Ref(nil), params.Photos...),
		Features:    append([]string(nil), params.Features...),
		Covered:     params.Covered,
		EVCharging:  params.EVCharging,
		State:       SpaceDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Space) Activate(now time.Time) error {
	if s.State == SpaceActive {
		return nil
	}
	if !s.Address.Valid() {
		return ErrAddressRequired
	}
	s.State = SpaceActive
	s.touch(now)
	return nil
}

func (s *Space) Suspend(now time.Time) error {
	if s.State != SpaceActive {
		return ErrInvalidState
	}
	s.State = SpaceSuspended
	s.touch(now)
	return nil
}

func (s *Space) AddPhoto(ref media.Ref, now time.Time) {
	if ref.IsZero() {
		return
	}
	s.Photos = append(s.Photos, ref)
	s.touch(now)
}

// RefreshRating stores a new cached average, typically after the
// ratings service reported fresher data than the catalog record.
func (s *Space) RefreshRating(avg float64, now time.Time) error {
	if avg < 0 || avg > 5 {
		return ErrRatingRange
	}
	s.Rating = avg
	s.touch(now)
	return nil
}

func (s *Space) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	s.UpdatedAt = now.UTC()
}
