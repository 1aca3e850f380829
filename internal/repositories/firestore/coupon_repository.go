package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
)

const couponCollection = "coupons"

type couponDocument struct {
	Code        string     `firestore:"code"`
	Type        string     `firestore:"type"`
	Value       int64      `firestore:"value"`
	MinSubtotal int64      `firestore:"minSubtotal"`
	Active      bool       `firestore:"active"`
	ExpiresAt   *time.Time `firestore:"expiresAt,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt"`
}

// CouponRepository persists coupons in Firestore with a unique code index.
type CouponRepository struct {
	base *pfirestore.BaseRepository[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		base: pfirestore.NewBaseRepository[couponDocument](provider, couponCollection, nil, nil),
	}, nil
}

func (r *CouponRepository) Upsert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	id, err := requireID("coupons.upsert", coupon.ID)
	if err != nil {
		return domain.Coupon{}, err
	}

	code := strings.ToUpper(strings.TrimSpace(coupon.Code))
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", code).Limit(1)
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	if len(docs) > 0 && docs[0].ID != id {
		return domain.Coupon{}, conflictError("coupons.upsert", "coupon code "+code+" already in use")
	}

	doc := couponDocument{
		Code:        code,
		Type:        string(coupon.Type),
		Value:       coupon.Value,
		MinSubtotal: coupon.MinSubtotal,
		Active:      coupon.Active,
		ExpiresAt:   coupon.ExpiresAt,
		CreatedAt:   coupon.CreatedAt.UTC(),
		UpdatedAt:   coupon.UpdatedAt.UTC(),
	}
	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.Coupon{}, err
	}
	return toDomainCoupon(id, doc), nil
}

func (r *CouponRepository) Delete(ctx context.Context, couponID string) error {
	id, err := requireID("coupons.delete", couponID)
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
		return pfirestore.WrapError("coupons.delete", err)
	}
	return nil
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return domain.Coupon{}, notFoundError("coupons.find_by_code", "coupon code is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", normalized).Limit(1)
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	if len(docs) == 0 {
		return domain.Coupon{}, notFoundError("coupons.find_by_code", "no coupon with code "+normalized)
	}
	return toDomainCoupon(docs[0].ID, docs[0].Data), nil
}

func (r *CouponRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Coupon], error) {
	startAfter, err := decodeCursor("coupons.list", pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Coupon]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		return startAfterCreated(q, startAfter)
	}

	return queryPage(ctx, r.base, pager.PageSize, build,
		toDomainCoupon,
		func(id string, doc couponDocument) []any {
			return []any{doc.CreatedAt.Format(time.RFC3339Nano), id}
		},
	)
}

func toDomainCoupon(id string, doc couponDocument) domain.Coupon {
	return domain.Coupon{
		ID:          id,
		Code:        doc.Code,
		Type:        domain.DiscountType(doc.Type),
		Value:       doc.Value,
		MinSubtotal: doc.MinSubtotal,
		Active:      doc.Active,
		ExpiresAt:   doc.ExpiresAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
