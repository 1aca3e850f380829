package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/glowcart/api/internal/domain"
)

type stubContentRepository struct {
	companyInfo    *domain.CompanyInfo
	heroSection    *domain.HeroSection
	luxuryShowcase *domain.LuxuryShowcase
	getErr         error
}

func (s *stubContentRepository) GetCompanyInfo(context.Context) (domain.CompanyInfo, error) {
	if s.getErr != nil {
		return domain.CompanyInfo{}, s.getErr
	}
	if s.companyInfo == nil {
		return domain.CompanyInfo{}, repoNotFound("company info not found")
	}
	return *s.companyInfo, nil
}

func (s *stubContentRepository) UpsertCompanyInfo(_ context.Context, info domain.CompanyInfo) (domain.CompanyInfo, error) {
	s.companyInfo = &info
	return info, nil
}

func (s *stubContentRepository) GetHeroSection(context.Context) (domain.HeroSection, error) {
	if s.heroSection == nil {
		return domain.HeroSection{}, repoNotFound("hero section not found")
	}
	return *s.heroSection, nil
}

func (s *stubContentRepository) UpsertHeroSection(_ context.Context, hero domain.HeroSection) (domain.HeroSection, error) {
	s.heroSection = &hero
	return hero, nil
}

func (s *stubContentRepository) GetLuxuryShowcase(context.Context) (domain.LuxuryShowcase, error) {
	if s.luxuryShowcase == nil {
		return domain.LuxuryShowcase{}, repoNotFound("luxury showcase not found")
	}
	return *s.luxuryShowcase, nil
}

func (s *stubContentRepository) UpsertLuxuryShowcase(_ context.Context, showcase domain.LuxuryShowcase) (domain.LuxuryShowcase, error) {
	s.luxuryShowcase = &showcase
	return showcase, nil
}

func newTestContentService(t *testing.T, repo *stubContentRepository) ContentService {
	t.Helper()

	svc, err := NewContentService(ContentServiceDeps{
		Repository: repo,
		Clock:      func() time.Time { return testClockTime },
	})
	if err != nil {
		t.Fatalf("new content service: %v", err)
	}
	return svc
}

func TestContentServiceUpsertCompanyInfoNormalizes(t *testing.T) {
	repo := &stubContentRepository{}
	svc := newTestContentService(t, repo)

	info, err := svc.UpsertCompanyInfo(context.Background(), UpsertCompanyInfoCommand{
		Info: domain.CompanyInfo{
			Name:  "  GlowCart  ",
			Email: " Hello@GlowCart.example ",
			SocialLinks: map[string]string{
				" Instagram ": " https://instagram.com/glowcart ",
				"twitter":     "",
			},
		},
		ActorID: "staff_1",
	})
	if err != nil {
		t.Fatalf("upsert company info: %v", err)
	}

	if info.Name != "GlowCart" {
		t.Fatalf("unexpected name %q", info.Name)
	}
	if info.Email != "hello@glowcart.example" {
		t.Fatalf("unexpected email %q", info.Email)
	}
	if len(info.SocialLinks) != 1 || info.SocialLinks["instagram"] != "https://instagram.com/glowcart" {
		t.Fatalf("unexpected social links %+v", info.SocialLinks)
	}
	if !info.UpdatedAt.Equal(testClockTime) {
		t.Fatalf("unexpected updated at %v", info.UpdatedAt)
	}

	got, err := svc.GetCompanyInfo(context.Background())
	if err != nil {
		t.Fatalf("get company info: %v", err)
	}
	if got.Name != "GlowCart" {
		t.Fatalf("expected persisted info, got %+v", got)
	}
}

func TestContentServiceUpsertCompanyInfoRequiresName(t *testing.T) {
	svc := newTestContentService(t, &stubContentRepository{})

	_, err := svc.UpsertCompanyInfo(context.Background(), UpsertCompanyInfoCommand{
		Info: domain.CompanyInfo{Email: "hello@glowcart.example"},
	})
	if !errors.Is(err, ErrContentInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestContentServiceGetCompanyInfoMissing(t *testing.T) {
	svc := newTestContentService(t, &stubContentRepository{})

	_, err := svc.GetCompanyInfo(context.Background())
	if !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestContentServiceUpsertHeroSectionValidatesCTA(t *testing.T) {
	svc := newTestContentService(t, &stubContentRepository{})

	_, err := svc.UpsertHeroSection(context.Background(), UpsertHeroSectionCommand{
		Hero: domain.HeroSection{
			Heading:  "Radiance, bottled",
			CTALabel: "Shop now",
		},
	})
	if !errors.Is(err, ErrContentInvalidInput) {
		t.Fatalf("expected invalid input for missing cta url, got %v", err)
	}

	hero, err := svc.UpsertHeroSection(context.Background(), UpsertHeroSectionCommand{
		Hero: domain.HeroSection{
			Heading:  "Radiance, bottled",
			CTALabel: "Shop now",
			CTAURL:   "https://glow.example/shop",
		},
	})
	if err != nil {
		t.Fatalf("upsert hero: %v", err)
	}
	if !hero.UpdatedAt.Equal(testClockTime) {
		t.Fatalf("unexpected updated at %v", hero.UpdatedAt)
	}
}

func TestContentServiceUpsertLuxuryShowcaseSortsAndDropsBlankTiles(t *testing.T) {
	svc := newTestContentService(t, &stubContentRepository{})

	showcase, err := svc.UpsertLuxuryShowcase(context.Background(), UpsertLuxuryShowcaseCommand{
		Showcase: domain.LuxuryShowcase{
			Heading: "The Edit",
			Items: []domain.LuxuryShowcaseItem{
				{Title: "Night Cream", ImageURL: "https://cdn.example/night.jpg", Position: 2},
				{Title: "", ImageURL: "https://cdn.example/blank.jpg", Position: 0},
				{Title: "Day Serum", ImageURL: "https://cdn.example/day.jpg", Position: 1},
			},
		},
	})
	if err != nil {
		t.Fatalf("upsert showcase: %v", err)
	}

	if len(showcase.Items) != 2 {
		t.Fatalf("expected blank tile dropped, got %d items", len(showcase.Items))
	}
	if showcase.Items[0].Title != "Day Serum" || showcase.Items[1].Title != "Night Cream" {
		t.Fatalf("expected position order, got %+v", showcase.Items)
	}
}
