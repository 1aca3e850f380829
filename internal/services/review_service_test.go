package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

type stubReviewRepository struct {
	insertFn       func(context.Context, domain.Review) (domain.Review, error)
	findFn         func(context.Context, string) (domain.Review, error)
	findByOrderFn  func(context.Context, string, string) (domain.Review, error)
	listByProdFn   func(context.Context, string, repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error)
	listByStatusFn func(context.Context, domain.ReviewStatus, domain.Pagination) (domain.CursorPage[domain.Review], error)
	updateStatusFn func(context.Context, string, domain.ReviewStatus, repositories.ReviewModerationUpdate) (domain.Review, error)
}

func (s *stubReviewRepository) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	if s.insertFn != nil {
		return s.insertFn(ctx, review)
	}
	return review, nil
}

func (s *stubReviewRepository) FindByID(ctx context.Context, reviewID string) (domain.Review, error) {
	if s.findFn != nil {
		return s.findFn(ctx, reviewID)
	}
	return domain.Review{}, repoNotFound("review not found")
}

func (s *stubReviewRepository) FindByOrderProduct(ctx context.Context, orderID, productID string) (domain.Review, error) {
	if s.findByOrderFn != nil {
		return s.findByOrderFn(ctx, orderID, productID)
	}
	return domain.Review{}, repoNotFound("review not found")
}

func (s *stubReviewRepository) ListByProduct(ctx context.Context, productID string, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error) {
	if s.listByProdFn != nil {
		return s.listByProdFn(ctx, productID, filter)
	}
	return domain.CursorPage[domain.Review]{}, nil
}

func (s *stubReviewRepository) ListByStatus(ctx context.Context, status domain.ReviewStatus, pager domain.Pagination) (domain.CursorPage[domain.Review], error) {
	if s.listByStatusFn != nil {
		return s.listByStatusFn(ctx, status, pager)
	}
	return domain.CursorPage[domain.Review]{}, nil
}

func (s *stubReviewRepository) UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus, update repositories.ReviewModerationUpdate) (domain.Review, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, reviewID, status, update)
	}
	return domain.Review{}, repoNotFound("review not found")
}

func newTestReviewService(t *testing.T, reviews *stubReviewRepository, orders *stubOrderRepo) ReviewService {
	t.Helper()

	svc, err := NewReviewService(ReviewServiceDeps{
		Reviews:     reviews,
		Orders:      orders,
		Clock:       func() time.Time { return testClockTime },
		IDGenerator: func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("new review service: %v", err)
	}
	return svc
}

func TestReviewServiceCreatePendingReview(t *testing.T) {
	var inserted domain.Review
	reviews := &stubReviewRepository{
		insertFn: func(_ context.Context, review domain.Review) (domain.Review, error) {
			inserted = review
			return review, nil
		},
	}
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return deliveredOrder(3), nil },
	}
	svc := newTestReviewService(t, reviews, orders)

	review, err := svc.Create(context.Background(), CreateReviewCommand{
		OrderID:   "ord_1",
		ProductID: "prod_1",
		UserID:    "user_1",
		Rating:    4,
		Title:     "  Lovely glow  ",
		Body:      "Visible results \x07 after two weeks.",
	})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}

	if review.ID != "rev_01TESTULID" {
		t.Fatalf("unexpected id %s", review.ID)
	}
	if review.Status != domain.ReviewStatusPending {
		t.Fatalf("expected pending status, got %s", review.Status)
	}
	if review.Title != "Lovely glow" {
		t.Fatalf("expected trimmed title, got %q", review.Title)
	}
	if review.Body != "Visible results after two weeks." {
		t.Fatalf("expected sanitized body, got %q", review.Body)
	}
	if inserted.ID != review.ID {
		t.Fatal("expected review persisted")
	}
}

func TestReviewServiceCreateRequiresDeliveredOrder(t *testing.T) {
	order := deliveredOrder(3)
	order.Status = domain.OrderStatusShipped
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return order, nil },
	}
	svc := newTestReviewService(t, &stubReviewRepository{}, orders)

	_, err := svc.Create(context.Background(), CreateReviewCommand{
		OrderID:   "ord_1",
		ProductID: "prod_1",
		UserID:    "user_1",
		Rating:    5,
		Body:      "Great product",
	})
	if !errors.Is(err, ErrReviewNotEligible) {
		t.Fatalf("expected not eligible, got %v", err)
	}
}

func TestReviewServiceCreateRejectsForeignOrder(t *testing.T) {
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return deliveredOrder(3), nil },
	}
	svc := newTestReviewService(t, &stubReviewRepository{}, orders)

	_, err := svc.Create(context.Background(), CreateReviewCommand{
		OrderID:   "ord_1",
		ProductID: "prod_1",
		UserID:    "user_2",
		Rating:    5,
		Body:      "Great product",
	})
	if !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestReviewServiceCreateRejectsProductNotInOrder(t *testing.T) {
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return deliveredOrder(3), nil },
	}
	svc := newTestReviewService(t, &stubReviewRepository{}, orders)

	_, err := svc.Create(context.Background(), CreateReviewCommand{
		OrderID:   "ord_1",
		ProductID: "prod_other",
		UserID:    "user_1",
		Rating:    5,
		Body:      "Great product",
	})
	if !errors.Is(err, ErrReviewNotEligible) {
		t.Fatalf("expected not eligible, got %v", err)
	}
}

func TestReviewServiceCreateRejectsDuplicate(t *testing.T) {
	reviews := &stubReviewRepository{
		findByOrderFn: func(context.Context, string, string) (domain.Review, error) {
			return domain.Review{ID: "rev_existing"}, nil
		},
	}
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return deliveredOrder(3), nil },
	}
	svc := newTestReviewService(t, reviews, orders)

	_, err := svc.Create(context.Background(), CreateReviewCommand{
		OrderID:   "ord_1",
		ProductID: "prod_1",
		UserID:    "user_1",
		Rating:    5,
		Body:      "Great product",
	})
	if !errors.Is(err, ErrReviewConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestReviewServiceCreateRejectsProfanity(t *testing.T) {
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return deliveredOrder(3), nil },
	}
	svc := newTestReviewService(t, &stubReviewRepository{}, orders)

	_, err := svc.Create(context.Background(), CreateReviewCommand{
		OrderID:   "ord_1",
		ProductID: "prod_1",
		UserID:    "user_1",
		Rating:    1,
		Body:      "this shit broke me out",
	})
	if !errors.Is(err, ErrReviewInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestReviewServiceCreateValidatesRating(t *testing.T) {
	svc := newTestReviewService(t, &stubReviewRepository{}, &stubOrderRepo{})

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(context.Background(), CreateReviewCommand{
			OrderID:   "ord_1",
			ProductID: "prod_1",
			UserID:    "user_1",
			Rating:    rating,
			Body:      "Great product",
		})
		if !errors.Is(err, ErrReviewInvalidInput) {
			t.Fatalf("rating %d: expected invalid input, got %v", rating, err)
		}
	}
}

func TestReviewServiceListByProductOnlyPublished(t *testing.T) {
	reviews := &stubReviewRepository{
		listByProdFn: func(_ context.Context, productID string, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error) {
			if productID != "prod_1" {
				t.Fatalf("unexpected product id %s", productID)
			}
			if len(filter.Status) != 1 || filter.Status[0] != domain.ReviewStatusPublished {
				t.Fatalf("expected published-only filter, got %+v", filter.Status)
			}
			return domain.CursorPage[domain.Review]{Items: []domain.Review{{ID: "rev_1"}}}, nil
		},
	}
	svc := newTestReviewService(t, reviews, &stubOrderRepo{})

	page, err := svc.ListByProduct(context.Background(), ListProductReviewsCommand{ProductID: "prod_1"})
	if err != nil {
		t.Fatalf("list by product: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 review, got %d", len(page.Items))
	}
}

func TestReviewServiceModeratePublishes(t *testing.T) {
	reviews := &stubReviewRepository{
		findFn: func(context.Context, string) (domain.Review, error) {
			return domain.Review{ID: "rev_1", Status: domain.ReviewStatusPending}, nil
		},
		updateStatusFn: func(_ context.Context, reviewID string, status domain.ReviewStatus, update repositories.ReviewModerationUpdate) (domain.Review, error) {
			if update.ModeratedBy != "staff_1" || !update.ModeratedAt.Equal(testClockTime) {
				t.Fatalf("unexpected moderation update %+v", update)
			}
			return domain.Review{ID: reviewID, Status: status}, nil
		},
	}
	svc := newTestReviewService(t, reviews, &stubOrderRepo{})

	review, err := svc.Moderate(context.Background(), ModerateReviewCommand{
		ReviewID: "rev_1",
		ActorID:  "staff_1",
		Status:   domain.ReviewStatusPublished,
	})
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if review.Status != domain.ReviewStatusPublished {
		t.Fatalf("unexpected status %s", review.Status)
	}
}

func TestReviewServiceModerateRepeatIsNoop(t *testing.T) {
	reviews := &stubReviewRepository{
		findFn: func(context.Context, string) (domain.Review, error) {
			return domain.Review{ID: "rev_1", Status: domain.ReviewStatusPublished}, nil
		},
		updateStatusFn: func(context.Context, string, domain.ReviewStatus, repositories.ReviewModerationUpdate) (domain.Review, error) {
			t.Fatal("update must not run for repeated decision")
			return domain.Review{}, nil
		},
	}
	svc := newTestReviewService(t, reviews, &stubOrderRepo{})

	review, err := svc.Moderate(context.Background(), ModerateReviewCommand{
		ReviewID: "rev_1",
		ActorID:  "staff_1",
		Status:   domain.ReviewStatusPublished,
	})
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if review.Status != domain.ReviewStatusPublished {
		t.Fatalf("unexpected status %s", review.Status)
	}
}

func TestReviewServiceModerateRejectsReversal(t *testing.T) {
	reviews := &stubReviewRepository{
		findFn: func(context.Context, string) (domain.Review, error) {
			return domain.Review{ID: "rev_1", Status: domain.ReviewStatusRejected}, nil
		},
	}
	svc := newTestReviewService(t, reviews, &stubOrderRepo{})

	_, err := svc.Moderate(context.Background(), ModerateReviewCommand{
		ReviewID: "rev_1",
		ActorID:  "staff_1",
		Status:   domain.ReviewStatusPublished,
	})
	if !errors.Is(err, ErrReviewInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestReviewServiceListPendingForwardsStatus(t *testing.T) {
	reviews := &stubReviewRepository{
		listByStatusFn: func(_ context.Context, status domain.ReviewStatus, _ domain.Pagination) (domain.CursorPage[domain.Review], error) {
			if status != domain.ReviewStatusPending {
				t.Fatalf("unexpected status %s", status)
			}
			return domain.CursorPage[domain.Review]{Items: []domain.Review{{ID: "rev_1"}, {ID: "rev_2"}}}, nil
		},
	}
	svc := newTestReviewService(t, reviews, &stubOrderRepo{})

	page, err := svc.ListPending(context.Background(), Pagination{})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(page.Items))
	}
}
