package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/platform/auth"
	"github.com/glowcart/api/internal/platform/httpx"
	"github.com/glowcart/api/internal/services"
)

// AdminReviewHandlers exposes the staff review moderation endpoints.
type AdminReviewHandlers struct {
	authn   *auth.Authenticator
	reviews services.ReviewService
}

// NewAdminReviewHandlers constructs the admin review handlers.
func NewAdminReviewHandlers(authn *auth.Authenticator, reviews services.ReviewService) *AdminReviewHandlers {
	return &AdminReviewHandlers{
		authn:   authn,
		reviews: reviews,
	}
}

// Routes wires the moderation endpoints onto the provided router.
func (h *AdminReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession(auth.RoleAdmin, auth.RoleStaff))
	}
	r.Get("/reviews/pending", h.listPending)
	r.Post("/reviews/{reviewID}/publish", h.publish)
	r.Post("/reviews/{reviewID}/reject", h.reject)
}

func (h *AdminReviewHandlers) listPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireReviews(w, r) {
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.reviews.ListPending(ctx, pager)
	if err != nil {
		h.writeModerationError(w, r, err)
		return
	}

	resp := reviewListResponse{Items: make([]reviewPayload, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, review := range page.Items {
		resp.Items = append(resp.Items, buildReviewPayload(review))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *AdminReviewHandlers) publish(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, domain.ReviewStatusPublished)
}

func (h *AdminReviewHandlers) reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, domain.ReviewStatusRejected)
}

func (h *AdminReviewHandlers) moderate(w http.ResponseWriter, r *http.Request, status domain.ReviewStatus) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireReviews(w, r) {
		return
	}

	reviewID := strings.TrimSpace(chi.URLParam(r, "reviewID"))
	if reviewID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "review id is required", http.StatusBadRequest))
		return
	}

	review, err := h.reviews.Moderate(ctx, services.ModerateReviewCommand{
		ReviewID: reviewID,
		ActorID:  identity.UID,
		Status:   status,
	})
	if err != nil {
		h.writeModerationError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildReviewPayload(review))
}

func (h *AdminReviewHandlers) requireReviews(w http.ResponseWriter, r *http.Request) bool {
	if h.reviews == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "reviews are unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminReviewHandlers) writeModerationError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReviewNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "review not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReviewInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeConflict, "review was already moderated", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "review operation failed", http.StatusInternalServerError))
	}
}
