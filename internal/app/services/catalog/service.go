package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/pricing"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/infra/storage/s3"
)

var (
	ErrNotOwner      = errors.New("catalog: space does not belong to caller")
	ErrPhotoRequired = errors.New("catalog: photo content is required")
)

// Service owns the space catalog: owner commands plus the read side the
// public API serves. The summary flow only ever reads through it.
type Service struct {
	Spaces   space.Repository
	Uploader s3.Uploader
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

type CreateParams struct {
	Owner           space.OwnerID
	Title           string
	Description     string
	Address         space.Address
	HourlyRate      float64
	DiscountPercent float64
	Features        []string
	Covered         bool
	EVCharging      bool
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*space.Space, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	sp, err := space.New(space.CreateParams{
		ID:          space.SpaceID(s.newID()),
		Owner:       params.Owner,
		Title:       params.Title,
		Description: params.Description,
		Address:     params.Address,
		HourlyRate:  params.HourlyRate,
		Discount:    pricing.DiscountPercent(params.DiscountPercent),
		Features:    params.Features,
		Covered:     params.Covered,
		EVCharging:  params.EVCharging,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Spaces.Save(ctx, sp); err != nil {
		return nil, fmt.Errorf("catalog: save space: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("space created", "space_id", sp.ID, "owner_id", sp.Owner)
	}
	return sp, nil
}

type UpdateParams struct {
	Owner           space.OwnerID
	SpaceID         space.SpaceID
	Title           string
	Description     string
	HourlyRate      float64
	DiscountPercent float64
	Features        []string
	Covered         bool
	EVCharging      bool
}

// Update replaces the owner-editable fields wholesale; clients send the
// full record back, same as the reference frontend does.
func (s *Service) Update(ctx context.Context, params UpdateParams) (*space.Space, error) {
	sp, err := s.ownedSpace(ctx, params.Owner, params.SpaceID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, space.ErrTitleRequired
	}
	if params.HourlyRate < 0 {
		return nil, space.ErrHourlyRate
	}
	sp.Title = strings.TrimSpace(params.Title)
	sp.Description = strings.TrimSpace(params.Description)
	sp.HourlyRate = params.HourlyRate
	sp.Discount = pricing.DiscountPercent(params.DiscountPercent)
	sp.Features = append([]string(nil), params.Features...)
	sp.Covered = params.Covered
	sp.EVCharging = params.EVCharging
	sp.UpdatedAt = s.now().UTC()
	if err := s.Spaces.Save(ctx, sp); err != nil {
		return nil, fmt.Errorf("catalog: save space: %w", err)
	}
	return sp, nil
}

func (s *Service) Activate(ctx context.Context, owner space.OwnerID, id space.SpaceID) (*space.Space, error) {
	sp, err := s.ownedSpace(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := sp.Activate(s.now()); err != nil {
		return nil, err
	}
	if err := s.Spaces.Save(ctx, sp); err != nil {
		return nil, fmt.Errorf("catalog: save space: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("space activated", "space_id", sp.ID)
	}
	return sp, nil
}

func (s *Service) Suspend(ctx context.Context, owner space.OwnerID, id space.SpaceID) (*space.Space, error) {
	sp, err := s.ownedSpace(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := sp.Suspend(s.now()); err != nil {
		return nil, err
	}
	if err := s.Spaces.Save(ctx, sp); err != nil {
		return nil, fmt.Errorf("catalog: save space: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("space suspended", "space_id", sp.ID)
	}
	return sp, nil
}

type UploadPhotoParams struct {
	Owner       space.OwnerID
	SpaceID     space.SpaceID
	ObjectKey   string
	ContentType string
	Reader      io.Reader
}

// UploadPhoto stores the bytes and appends the public URL to the
// space's photo references, where the image resolver passes it through
// as-is.
func (s *Service) UploadPhoto(ctx context.Context, params UploadPhotoParams) (media.Ref, *space.Space, error) {
	if s.Uploader == nil {
		return media.Ref{}, nil, errors.New("catalog: uploader is not configured")
	}
	if params.Reader == nil || strings.TrimSpace(params.ObjectKey) == "" {
		return media.Ref{}, nil, ErrPhotoRequired
	}
	sp, err := s.ownedSpace(ctx, params.Owner, params.SpaceID)
	if err != nil {
		return media.Ref{}, nil, err
	}
	publicURL, err := s.Uploader.Upload(ctx, params.ObjectKey, params.Reader, params.ContentType)
	if err != nil {
		return media.Ref{}, nil, fmt.Errorf("catalog: upload photo: %w", err)
	}
	ref := media.StringRef(publicURL)
	sp.AddPhoto(ref, s.now())
	if err := s.Spaces.Save(ctx, sp); err != nil {
		return media.Ref{}, nil, fmt.Errorf("catalog: save space: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("space photo added", "space_id", sp.ID, "url", publicURL)
	}
	return ref, sp, nil
}

func (s *Service) Get(ctx context.Context, id space.SpaceID) (*space.Space, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.Spaces.ByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params space.SearchParams) (space.SearchResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return space.SearchResult{}, err
	}
	return s.Spaces.Search(ctx, params)
}

// ListByOwner includes drafts; owners see their whole inventory.
func (s *Service) ListByOwner(ctx context.Context, owner space.OwnerID, limit, offset int) (space.SearchResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return space.SearchResult{}, err
	}
	return s.Spaces.Search(ctx, space.SearchParams{
		Owner:        owner,
		IncludeDraft: true,
		Sort:         space.SortByNewest,
		Limit:        limit,
		Offset:       offset,
	})
}

func (s *Service) ownedSpace(ctx context.Context, owner space.OwnerID, id space.SpaceID) (*space.Space, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(id)) == "" {
		return nil, space.ErrIDRequired
	}
	sp, err := s.Spaces.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner == "" || sp.Owner != owner {
		return nil, ErrNotOwner
	}
	return sp, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) ensureDependencies() error {
	if s.Spaces == nil {
		return errors.New("catalog: space repository is not configured")
	}
	return nil
}
