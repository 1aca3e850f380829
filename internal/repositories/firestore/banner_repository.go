package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
)

const bannerCollection = "banners"

type bannerDocument struct {
	Title     string     `firestore:"title"`
	ImageURL  string     `firestore:"imageUrl"`
	TargetURL string     `firestore:"targetUrl,omitempty"`
	Placement string     `firestore:"placement,omitempty"`
	StartsAt  *time.Time `firestore:"startsAt,omitempty"`
	EndsAt    *time.Time `firestore:"endsAt,omitempty"`
	Active    bool       `firestore:"active"`
	Views     int64      `firestore:"views"`
	Clicks    int64      `firestore:"clicks"`
	CreatedAt time.Time  `firestore:"createdAt"`
	UpdatedAt time.Time  `firestore:"updatedAt"`
}

// BannerRepository persists storefront banners and their engagement counters.
type BannerRepository struct {
	base *pfirestore.BaseRepository[bannerDocument]
}

// NewBannerRepository constructs a Firestore-backed banner repository.
func NewBannerRepository(provider *pfirestore.Provider) (*BannerRepository, error) {
	if provider == nil {
		return nil, errors.New("banner repository requires firestore provider")
	}
	return &BannerRepository{
		base: pfirestore.NewBaseRepository[bannerDocument](provider, bannerCollection, nil, nil),
	}, nil
}

func (r *BannerRepository) Insert(ctx context.Context, banner domain.Banner) error {
	id, err := requireID("banners.insert", banner.ID)
	if err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainBanner(banner)); err != nil {
		return pfirestore.WrapError("banners.insert", err)
	}
	return nil
}

func (r *BannerRepository) Update(ctx context.Context, banner domain.Banner) error {
	id, err := requireID("banners.update", banner.ID)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	_, err = r.base.Set(ctx, id, fromDomainBanner(banner))
	return err
}

func (r *BannerRepository) Delete(ctx context.Context, bannerID string) error {
	id, err := requireID("banners.delete", bannerID)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("banners.delete", err)
	}
	return nil
}

func (r *BannerRepository) FindByID(ctx context.Context, bannerID string) (domain.Banner, error) {
	id, err := requireID("banners.get", bannerID)
	if err != nil {
		return domain.Banner{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Banner{}, err
	}
	return toDomainBanner(doc.ID, doc.Data), nil
}

// ListActive returns enabled banners; schedule window filtering against now is
// finished by the caller since Firestore cannot express the two-sided
// nullable range in one query.
func (r *BannerRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Banner, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("active", "==", true).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	banners := make([]domain.Banner, 0, len(docs))
	for _, doc := range docs {
		banner := toDomainBanner(doc.ID, doc.Data)
		if banner.ActiveAt(now.UTC()) {
			banners = append(banners, banner)
		}
	}
	return banners, nil
}

func (r *BannerRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Banner], error) {
	startAfter, err := decodeCursor("banners.list", pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Banner]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		return startAfterCreated(q, startAfter)
	}

	return queryPage(ctx, r.base, pager.PageSize, build,
		toDomainBanner,
		func(id string, doc bannerDocument) []any {
			return []any{doc.CreatedAt.Format(time.RFC3339Nano), id}
		},
	)
}

func (r *BannerRepository) IncrementViews(ctx context.Context, bannerID string, delta int64) error {
	return r.increment(ctx, "banners.increment_views", bannerID, "views", delta)
}

func (r *BannerRepository) IncrementClicks(ctx context.Context, bannerID string, delta int64) error {
	return r.increment(ctx, "banners.increment_clicks", bannerID, "clicks", delta)
}

func (r *BannerRepository) increment(ctx context.Context, op string, bannerID string, field string, delta int64) error {
	id, err := requireID(op, bannerID)
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	_, err = r.base.Update(ctx, id, []firestore.Update{
		{Path: field, Value: firestore.Increment(delta)},
	})
	return err
}

func fromDomainBanner(banner domain.Banner) bannerDocument {
	return bannerDocument{
		Title:     banner.Title,
		ImageURL:  banner.ImageURL,
		TargetURL: banner.TargetURL,
		Placement: banner.Placement,
		StartsAt:  banner.StartsAt,
		EndsAt:    banner.EndsAt,
		Active:    banner.Active,
		Views:     banner.Views,
		Clicks:    banner.Clicks,
		CreatedAt: banner.CreatedAt.UTC(),
		UpdatedAt: banner.UpdatedAt.UTC(),
	}
}

func toDomainBanner(id string, doc bannerDocument) domain.Banner {
	return domain.Banner{
		ID:        id,
		Title:     doc.Title,
		ImageURL:  doc.ImageURL,
		TargetURL: doc.TargetURL,
		Placement: doc.Placement,
		StartsAt:  doc.StartsAt,
		EndsAt:    doc.EndsAt,
		Active:    doc.Active,
		Views:     doc.Views,
		Clicks:    doc.Clicks,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
