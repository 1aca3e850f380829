package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
	"github.com/glowcart/api/internal/repositories"
)

const reviewCollection = "reviews"

type reviewDocument struct {
	ProductID   string     `firestore:"productId"`
	OrderID     string     `firestore:"orderId"`
	UserID      string     `firestore:"userId"`
	Rating      int        `firestore:"rating"`
	Title       string     `firestore:"title,omitempty"`
	Body        string     `firestore:"body,omitempty"`
	Status      string     `firestore:"status"`
	ModeratedBy *string    `firestore:"moderatedBy,omitempty"`
	ModeratedAt *time.Time `firestore:"moderatedAt,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt"`
}

// ReviewRepository persists product reviews and their moderation state.
type ReviewRepository struct {
	base *pfirestore.BaseRepository[reviewDocument]
}

// NewReviewRepository constructs a Firestore-backed review repository.
func NewReviewRepository(provider *pfirestore.Provider) (*ReviewRepository, error) {
	if provider == nil {
		return nil, errors.New("review repository requires firestore provider")
	}
	return &ReviewRepository{
		base: pfirestore.NewBaseRepository[reviewDocument](provider, reviewCollection, nil, nil),
	}, nil
}

func (r *ReviewRepository) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	id, err := requireID("reviews.insert", review.ID)
	if err != nil {
		return domain.Review{}, err
	}
	review.ID = id
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if _, err := ref.Create(ctx, fromDomainReview(review)); err != nil {
		return domain.Review{}, pfirestore.WrapError("reviews.insert", err)
	}
	return review, nil
}

func (r *ReviewRepository) FindByID(ctx context.Context, reviewID string) (domain.Review, error) {
	id, err := requireID("reviews.get", reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	return toDomainReview(doc.ID, doc.Data), nil
}

func (r *ReviewRepository) FindByOrderProduct(ctx context.Context, orderID string, productID string) (domain.Review, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID).Where("productId", "==", productID).Limit(1)
	})
	if err != nil {
		return domain.Review{}, err
	}
	if len(docs) == 0 {
		return domain.Review{}, notFoundError("reviews.get_by_order_product", "review not found for order line")
	}
	return toDomainReview(docs[0].ID, docs[0].Data), nil
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error) {
	startAfter, err := decodeCursor("reviews.list_by_product", filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Review]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		q = q.Where("productId", "==", productID)
		if len(filter.Status) > 0 {
			statuses := make([]string, 0, len(filter.Status))
			for _, s := range filter.Status {
				statuses = append(statuses, string(s))
			}
			q = q.Where("status", "in", statuses)
		}
		if filter.MinRating != nil {
			q = q.Where("rating", ">=", *filter.MinRating)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		return startAfterCreated(q, startAfter)
	}

	return queryPage(ctx, r.base, filter.Pagination.PageSize, build,
		toDomainReview,
		func(id string, doc reviewDocument) []any {
			return []any{doc.CreatedAt.Format(time.RFC3339Nano), id}
		},
	)
}

func (r *ReviewRepository) ListByStatus(ctx context.Context, status domain.ReviewStatus, pager domain.Pagination) (domain.CursorPage[domain.Review], error) {
	startAfter, err := decodeCursor("reviews.list_by_status", pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Review]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		q = q.Where("status", "==", string(status)).
			OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		return startAfterCreated(q, startAfter)
	}

	return queryPage(ctx, r.base, pager.PageSize, build,
		toDomainReview,
		func(id string, doc reviewDocument) []any {
			return []any{doc.CreatedAt.Format(time.RFC3339Nano), id}
		},
	)
}

func (r *ReviewRepository) UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus, update repositories.ReviewModerationUpdate) (domain.Review, error) {
	id, err := requireID("reviews.update_status", reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}

	data := doc.Data
	data.Status = string(status)
	moderatedAt := update.ModeratedAt.UTC()
	data.ModeratedAt = &moderatedAt
	if update.ModeratedBy != "" {
		moderatedBy := update.ModeratedBy
		data.ModeratedBy = &moderatedBy
	}
	data.UpdatedAt = moderatedAt

	if _, err := r.base.Set(ctx, id, data); err != nil {
		return domain.Review{}, err
	}
	return toDomainReview(id, data), nil
}

func fromDomainReview(review domain.Review) reviewDocument {
	return reviewDocument{
		ProductID:   review.ProductID,
		OrderID:     review.OrderID,
		UserID:      review.UserID,
		Rating:      review.Rating,
		Title:       review.Title,
		Body:        review.Body,
		Status:      string(review.Status),
		ModeratedBy: review.ModeratedBy,
		ModeratedAt: review.ModeratedAt,
		CreatedAt:   review.CreatedAt.UTC(),
		UpdatedAt:   review.UpdatedAt.UTC(),
	}
}

func toDomainReview(id string, doc reviewDocument) domain.Review {
	return domain.Review{
		ID:          id,
		ProductID:   doc.ProductID,
		OrderID:     doc.OrderID,
		UserID:      doc.UserID,
		Rating:      doc.Rating,
		Title:       doc.Title,
		Body:        doc.Body,
		Status:      domain.ReviewStatus(doc.Status),
		ModeratedBy: doc.ModeratedBy,
		ModeratedAt: doc.ModeratedAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
