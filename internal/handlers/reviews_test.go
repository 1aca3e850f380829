package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/services"
)

func newAdminReviewRouter(reviews services.ReviewService) chi.Router {
	router := chi.NewRouter()
	NewAdminReviewHandlers(nil, reviews).Routes(router)
	return router
}

func TestAdminReviewHandlersListPending(t *testing.T) {
	created := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	reviews := &stubReviewService{
		listPendingFunc: func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Review], error) {
			return domain.CursorPage[services.Review]{
				Items: []services.Review{{
					ID:        "rev_1",
					ProductID: "prod_1",
					Rating:    4,
					Title:     "Lovely glow",
					Status:    domain.ReviewStatusPending,
					CreatedAt: created,
				}},
				NextPageToken: "tok_next",
			}, nil
		},
	}
	router := newAdminReviewRouter(reviews)

	req := identityRequest(http.MethodGet, "/reviews/pending", nil, "staff-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp reviewListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Status != string(domain.ReviewStatusPending) {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
	if resp.NextPageToken != "tok_next" {
		t.Fatalf("expected next page token, got %q", resp.NextPageToken)
	}
}

func TestAdminReviewHandlersPublish(t *testing.T) {
	var got services.ModerateReviewCommand
	reviews := &stubReviewService{
		moderateFunc: func(ctx context.Context, cmd services.ModerateReviewCommand) (services.Review, error) {
			got = cmd
			return services.Review{ID: cmd.ReviewID, ProductID: "prod_1", Rating: 5, Status: cmd.Status}, nil
		},
	}
	router := newAdminReviewRouter(reviews)

	req := identityRequest(http.MethodPost, "/reviews/rev_1/publish", nil, "staff-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.ReviewID != "rev_1" || got.Status != domain.ReviewStatusPublished || got.ActorID != "staff-1" {
		t.Fatalf("unexpected command: %+v", got)
	}

	var resp reviewPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != string(domain.ReviewStatusPublished) {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAdminReviewHandlersRejectNotFound(t *testing.T) {
	reviews := &stubReviewService{
		moderateFunc: func(ctx context.Context, cmd services.ModerateReviewCommand) (services.Review, error) {
			return services.Review{}, services.ErrReviewNotFound
		},
	}
	router := newAdminReviewRouter(reviews)

	req := identityRequest(http.MethodPost, "/reviews/rev_missing/reject", nil, "staff-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminReviewHandlersPublishAlreadyModerated(t *testing.T) {
	reviews := &stubReviewService{
		moderateFunc: func(ctx context.Context, cmd services.ModerateReviewCommand) (services.Review, error) {
			return services.Review{}, services.ErrReviewInvalidState
		},
	}
	router := newAdminReviewRouter(reviews)

	req := identityRequest(http.MethodPost, "/reviews/rev_1/publish", nil, "staff-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["message"] != "review was already moderated" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
}
