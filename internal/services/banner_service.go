package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

const bannerIDPrefix = "ban_"

var (
	// ErrBannerInvalidInput indicates validation failures for banner operations.
	ErrBannerInvalidInput = errors.New("banner: invalid input")
	// ErrBannerNotFound indicates the banner does not exist.
	ErrBannerNotFound = errors.New("banner: not found")
	// ErrBannerUnavailable indicates the banner store is unreachable.
	ErrBannerUnavailable = errors.New("banner: unavailable")
)

// BannerServiceDeps wires the dependencies required by the banner service.
type BannerServiceDeps struct {
	Banners     repositories.BannerRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type bannerService struct {
	banners repositories.BannerRepository
	clock   func() time.Time
	newID   func() string
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// NewBannerService constructs a BannerService validating required dependencies.
func NewBannerService(deps BannerServiceDeps) (BannerService, error) {
	if deps.Banners == nil {
		return nil, errors.New("banner service: banner repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &bannerService{
		banners: deps.Banners,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// ListActive returns banners currently scheduled for display, filtering out
// anything the repository returned that already drifted out of its window.
func (s *bannerService) ListActive(ctx context.Context) ([]Banner, error) {
	now := s.clock()
	banners, err := s.banners.ListActive(ctx, now)
	if err != nil {
		return nil, s.translateRepoError(err)
	}

	active := make([]Banner, 0, len(banners))
	for _, banner := range banners {
		if banner.ActiveAt(now) {
			active = append(active, banner)
		}
	}
	return active, nil
}

// RecordView increments the impression counter. Counter failures are logged
// rather than surfaced so they never break storefront rendering.
func (s *bannerService) RecordView(ctx context.Context, bannerID string) error {
	bannerID = strings.TrimSpace(bannerID)
	if bannerID == "" {
		return fmt.Errorf("%w: banner id is required", ErrBannerInvalidInput)
	}
	if err := s.banners.IncrementViews(ctx, bannerID, 1); err != nil {
		if isRepoNotFound(err) {
			return fmt.Errorf("%w: %s", ErrBannerNotFound, bannerID)
		}
		s.logger(ctx, "banner.views.increment_failed", map[string]any{
			"banner": bannerID,
			"error":  err.Error(),
		})
	}
	return nil
}

// RecordClick increments the click counter with the same failure tolerance
// as RecordView.
func (s *bannerService) RecordClick(ctx context.Context, bannerID string) error {
	bannerID = strings.TrimSpace(bannerID)
	if bannerID == "" {
		return fmt.Errorf("%w: banner id is required", ErrBannerInvalidInput)
	}
	if err := s.banners.IncrementClicks(ctx, bannerID, 1); err != nil {
		if isRepoNotFound(err) {
			return fmt.Errorf("%w: %s", ErrBannerNotFound, bannerID)
		}
		s.logger(ctx, "banner.clicks.increment_failed", map[string]any{
			"banner": bannerID,
			"error":  err.Error(),
		})
	}
	return nil
}

func (s *bannerService) List(ctx context.Context, pager Pagination) (domain.CursorPage[Banner], error) {
	page, err := s.banners.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Banner]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *bannerService) Create(ctx context.Context, cmd UpsertBannerCommand) (Banner, error) {
	banner, err := s.normalizeBanner(cmd.Banner)
	if err != nil {
		return Banner{}, err
	}

	now := s.clock()
	banner.ID = bannerIDPrefix + s.newID()
	banner.Views = 0
	banner.Clicks = 0
	banner.CreatedAt = now
	banner.UpdatedAt = now

	if err := s.banners.Insert(ctx, banner); err != nil {
		return Banner{}, s.translateRepoError(err)
	}
	return banner, nil
}

func (s *bannerService) Update(ctx context.Context, cmd UpsertBannerCommand) (Banner, error) {
	if strings.TrimSpace(cmd.Banner.ID) == "" {
		return Banner{}, fmt.Errorf("%w: banner id is required", ErrBannerInvalidInput)
	}

	banner, err := s.normalizeBanner(cmd.Banner)
	if err != nil {
		return Banner{}, err
	}

	existing, err := s.banners.FindByID(ctx, banner.ID)
	if err != nil {
		return Banner{}, s.translateRepoError(err)
	}

	// Engagement counters are owned by the increment paths.
	banner.Views = existing.Views
	banner.Clicks = existing.Clicks
	banner.CreatedAt = existing.CreatedAt
	banner.UpdatedAt = s.clock()

	if err := s.banners.Update(ctx, banner); err != nil {
		return Banner{}, s.translateRepoError(err)
	}
	return banner, nil
}

func (s *bannerService) Delete(ctx context.Context, bannerID string) error {
	bannerID = strings.TrimSpace(bannerID)
	if bannerID == "" {
		return fmt.Errorf("%w: banner id is required", ErrBannerInvalidInput)
	}
	if err := s.banners.Delete(ctx, bannerID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *bannerService) normalizeBanner(banner Banner) (Banner, error) {
	banner.Title = strings.TrimSpace(banner.Title)
	banner.ImageURL = strings.TrimSpace(banner.ImageURL)
	banner.TargetURL = strings.TrimSpace(banner.TargetURL)
	banner.Placement = strings.TrimSpace(banner.Placement)

	if banner.Title == "" {
		return Banner{}, fmt.Errorf("%w: title is required", ErrBannerInvalidInput)
	}
	if banner.ImageURL == "" {
		return Banner{}, fmt.Errorf("%w: image url is required", ErrBannerInvalidInput)
	}
	if banner.StartsAt != nil && banner.EndsAt != nil && banner.EndsAt.Before(*banner.StartsAt) {
		return Banner{}, fmt.Errorf("%w: schedule ends before it starts", ErrBannerInvalidInput)
	}
	return banner, nil
}

func (s *bannerService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrBannerNotFound, repoErr.Error())
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %s", ErrBannerUnavailable, repoErr.Error())
		}
	}
	return err
}
