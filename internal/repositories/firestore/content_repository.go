package firestore

import (
	"context"
	"errors"
	"time"

	pfirestore "github.com/glowcart/api/internal/platform/firestore"

	domain "github.com/glowcart/api/internal/domain"
)

const contentCollection = "content"

// Fixed document IDs for the storefront singleton documents.
const (
	companyInfoDocID    = "companyInfo"
	heroSectionDocID    = "heroSection"
	luxuryShowcaseDocID = "luxuryShowcase"
)

type companyInfoDocument struct {
	Name         string            `firestore:"name"`
	Tagline      string            `firestore:"tagline,omitempty"`
	About        string            `firestore:"about,omitempty"`
	Email        string            `firestore:"email,omitempty"`
	Phone        string            `firestore:"phone,omitempty"`
	Address      string            `firestore:"address,omitempty"`
	SocialLinks  map[string]string `firestore:"socialLinks,omitempty"`
	SupportHours string            `firestore:"supportHours,omitempty"`
	UpdatedAt    time.Time         `firestore:"updatedAt"`
}

type heroSectionDocument struct {
	Heading    string    `firestore:"heading"`
	Subheading string    `firestore:"subheading,omitempty"`
	ImageURL   string    `firestore:"imageUrl,omitempty"`
	CTALabel   string    `firestore:"ctaLabel,omitempty"`
	CTAURL     string    `firestore:"ctaUrl,omitempty"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

type showcaseItemDocument struct {
	Title     string `firestore:"title"`
	ImageURL  string `firestore:"imageUrl,omitempty"`
	TargetURL string `firestore:"targetUrl,omitempty"`
	Position  int    `firestore:"position"`
}

type luxuryShowcaseDocument struct {
	Heading   string                 `firestore:"heading,omitempty"`
	Items     []showcaseItemDocument `firestore:"items,omitempty"`
	UpdatedAt time.Time              `firestore:"updatedAt"`
}

// ContentRepository stores the three singleton storefront content documents
// under fixed IDs in a shared collection.
type ContentRepository struct {
	company  *pfirestore.BaseRepository[companyInfoDocument]
	hero     *pfirestore.BaseRepository[heroSectionDocument]
	showcase *pfirestore.BaseRepository[luxuryShowcaseDocument]
}

// NewContentRepository constructs a Firestore-backed content repository.
func NewContentRepository(provider *pfirestore.Provider) (*ContentRepository, error) {
	if provider == nil {
		return nil, errors.New("content repository requires firestore provider")
	}
	return &ContentRepository{
		company:  pfirestore.NewBaseRepository[companyInfoDocument](provider, contentCollection, nil, nil),
		hero:     pfirestore.NewBaseRepository[heroSectionDocument](provider, contentCollection, nil, nil),
		showcase: pfirestore.NewBaseRepository[luxuryShowcaseDocument](provider, contentCollection, nil, nil),
	}, nil
}

func (r *ContentRepository) GetCompanyInfo(ctx context.Context) (domain.CompanyInfo, error) {
	doc, err := r.company.Get(ctx, companyInfoDocID)
	if err != nil {
		return domain.CompanyInfo{}, err
	}
	return domain.CompanyInfo(doc.Data), nil
}

func (r *ContentRepository) UpsertCompanyInfo(ctx context.Context, info domain.CompanyInfo) (domain.CompanyInfo, error) {
	info.UpdatedAt = info.UpdatedAt.UTC()
	if _, err := r.company.Set(ctx, companyInfoDocID, companyInfoDocument(info)); err != nil {
		return domain.CompanyInfo{}, err
	}
	return info, nil
}

func (r *ContentRepository) GetHeroSection(ctx context.Context) (domain.HeroSection, error) {
	doc, err := r.hero.Get(ctx, heroSectionDocID)
	if err != nil {
		return domain.HeroSection{}, err
	}
	return domain.HeroSection(doc.Data), nil
}

func (r *ContentRepository) UpsertHeroSection(ctx context.Context, hero domain.HeroSection) (domain.HeroSection, error) {
	hero.UpdatedAt = hero.UpdatedAt.UTC()
	if _, err := r.hero.Set(ctx, heroSectionDocID, heroSectionDocument(hero)); err != nil {
		return domain.HeroSection{}, err
	}
	return hero, nil
}

func (r *ContentRepository) GetLuxuryShowcase(ctx context.Context) (domain.LuxuryShowcase, error) {
	doc, err := r.showcase.Get(ctx, luxuryShowcaseDocID)
	if err != nil {
		return domain.LuxuryShowcase{}, err
	}
	return toDomainShowcase(doc.Data), nil
}

func (r *ContentRepository) UpsertLuxuryShowcase(ctx context.Context, showcase domain.LuxuryShowcase) (domain.LuxuryShowcase, error) {
	showcase.UpdatedAt = showcase.UpdatedAt.UTC()
	if _, err := r.showcase.Set(ctx, luxuryShowcaseDocID, fromDomainShowcase(showcase)); err != nil {
		return domain.LuxuryShowcase{}, err
	}
	return showcase, nil
}

func fromDomainShowcase(showcase domain.LuxuryShowcase) luxuryShowcaseDocument {
	doc := luxuryShowcaseDocument{
		Heading:   showcase.Heading,
		UpdatedAt: showcase.UpdatedAt,
	}
	for _, item := range showcase.Items {
		doc.Items = append(doc.Items, showcaseItemDocument(item))
	}
	return doc
}

func toDomainShowcase(doc luxuryShowcaseDocument) domain.LuxuryShowcase {
	showcase := domain.LuxuryShowcase{
		Heading:   doc.Heading,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		showcase.Items = append(showcase.Items, domain.LuxuryShowcaseItem(item))
	}
	return showcase
}
