package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

var (
	// ErrContentInvalidInput indicates validation failures for content updates.
	ErrContentInvalidInput = errors.New("content: invalid input")
	// ErrContentNotFound indicates a singleton document has never been written.
	ErrContentNotFound = errors.New("content: not found")
	// ErrContentUnavailable indicates the content store is unreachable.
	ErrContentUnavailable = errors.New("content: unavailable")
)

// ContentServiceDeps groups constructor parameters for the content service.
type ContentServiceDeps struct {
	Repository repositories.ContentRepository
	Clock      func() time.Time
}

type contentService struct {
	repo  repositories.ContentRepository
	clock func() time.Time
}

// NewContentService constructs the content service with the supplied dependencies.
func NewContentService(deps ContentServiceDeps) (ContentService, error) {
	if deps.Repository == nil {
		return nil, errors.New("content service: content repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &contentService{
		repo:  deps.Repository,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

func (s *contentService) GetCompanyInfo(ctx context.Context) (CompanyInfo, error) {
	info, err := s.repo.GetCompanyInfo(ctx)
	if err != nil {
		return CompanyInfo{}, s.translateRepoError(err)
	}
	return info, nil
}

func (s *contentService) UpsertCompanyInfo(ctx context.Context, cmd UpsertCompanyInfoCommand) (CompanyInfo, error) {
	info := cmd.Info
	info.Name = strings.TrimSpace(info.Name)
	info.Tagline = strings.TrimSpace(info.Tagline)
	info.About = strings.TrimSpace(info.About)
	info.Email = strings.ToLower(strings.TrimSpace(info.Email))
	info.Phone = strings.TrimSpace(info.Phone)
	info.Address = strings.TrimSpace(info.Address)
	info.SupportHours = strings.TrimSpace(info.SupportHours)

	if info.Name == "" {
		return CompanyInfo{}, fmt.Errorf("%w: company name is required", ErrContentInvalidInput)
	}
	if info.Email != "" && !strings.Contains(info.Email, "@") {
		return CompanyInfo{}, fmt.Errorf("%w: invalid contact email", ErrContentInvalidInput)
	}

	links := make(map[string]string, len(info.SocialLinks))
	for network, url := range info.SocialLinks {
		network = strings.ToLower(strings.TrimSpace(network))
		url = strings.TrimSpace(url)
		if network != "" && url != "" {
			links[network] = url
		}
	}
	info.SocialLinks = links
	info.UpdatedAt = s.clock()

	saved, err := s.repo.UpsertCompanyInfo(ctx, info)
	if err != nil {
		return CompanyInfo{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *contentService) GetHeroSection(ctx context.Context) (HeroSection, error) {
	hero, err := s.repo.GetHeroSection(ctx)
	if err != nil {
		return HeroSection{}, s.translateRepoError(err)
	}
	return hero, nil
}

func (s *contentService) UpsertHeroSection(ctx context.Context, cmd UpsertHeroSectionCommand) (HeroSection, error) {
	hero := cmd.Hero
	hero.Heading = strings.TrimSpace(hero.Heading)
	hero.Subheading = strings.TrimSpace(hero.Subheading)
	hero.ImageURL = strings.TrimSpace(hero.ImageURL)
	hero.CTALabel = strings.TrimSpace(hero.CTALabel)
	hero.CTAURL = strings.TrimSpace(hero.CTAURL)

	if hero.Heading == "" {
		return HeroSection{}, fmt.Errorf("%w: heading is required", ErrContentInvalidInput)
	}
	if hero.CTALabel != "" && hero.CTAURL == "" {
		return HeroSection{}, fmt.Errorf("%w: cta url is required when a label is set", ErrContentInvalidInput)
	}
	hero.UpdatedAt = s.clock()

	saved, err := s.repo.UpsertHeroSection(ctx, hero)
	if err != nil {
		return HeroSection{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *contentService) GetLuxuryShowcase(ctx context.Context) (LuxuryShowcase, error) {
	showcase, err := s.repo.GetLuxuryShowcase(ctx)
	if err != nil {
		return LuxuryShowcase{}, s.translateRepoError(err)
	}
	return showcase, nil
}

// UpsertLuxuryShowcase stores the curated collection, dropping blank tiles
// and ordering the rest by position.
func (s *contentService) UpsertLuxuryShowcase(ctx context.Context, cmd UpsertLuxuryShowcaseCommand) (LuxuryShowcase, error) {
	showcase := cmd.Showcase
	showcase.Heading = strings.TrimSpace(showcase.Heading)
	if showcase.Heading == "" {
		return LuxuryShowcase{}, fmt.Errorf("%w: heading is required", ErrContentInvalidInput)
	}

	items := make([]domain.LuxuryShowcaseItem, 0, len(showcase.Items))
	for _, item := range showcase.Items {
		item.Title = strings.TrimSpace(item.Title)
		item.ImageURL = strings.TrimSpace(item.ImageURL)
		item.TargetURL = strings.TrimSpace(item.TargetURL)
		if item.Title == "" || item.ImageURL == "" {
			continue
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})
	showcase.Items = items
	showcase.UpdatedAt = s.clock()

	saved, err := s.repo.UpsertLuxuryShowcase(ctx, showcase)
	if err != nil {
		return LuxuryShowcase{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *contentService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrContentNotFound, repoErr.Error())
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %s", ErrContentUnavailable, repoErr.Error())
		}
	}
	return err
}
