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

// AdminContentHandlers exposes the staff endpoints for banners, blog posts,
// the singleton content documents, and the newsletter subscriber list.
type AdminContentHandlers struct {
	authn      *auth.Authenticator
	banners    services.BannerService
	blog       services.BlogService
	content    services.ContentService
	newsletter services.NewsletterService
}

// NewAdminContentHandlers constructs the admin content handlers.
func NewAdminContentHandlers(authn *auth.Authenticator, banners services.BannerService, blog services.BlogService, content services.ContentService, newsletter services.NewsletterService) *AdminContentHandlers {
	return &AdminContentHandlers{
		authn:      authn,
		banners:    banners,
		blog:       blog,
		content:    content,
		newsletter: newsletter,
	}
}

// Routes wires the admin content endpoints onto the provided router.
func (h *AdminContentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession(auth.RoleAdmin, auth.RoleStaff))
	}
	r.Get("/banners", h.listBanners)
	r.Post("/banners", h.createBanner)
	r.Put("/banners/{bannerID}", h.updateBanner)
	r.Delete("/banners/{bannerID}", h.deleteBanner)
	r.Get("/blog", h.listBlogPosts)
	r.Post("/blog", h.createBlogPost)
	r.Put("/blog/{postID}", h.updateBlogPost)
	r.Delete("/blog/{postID}", h.deleteBlogPost)
	r.Put("/company-info", h.upsertCompanyInfo)
	r.Put("/hero-section", h.upsertHeroSection)
	r.Put("/luxury-showcase", h.upsertLuxuryShowcase)
	r.Get("/newsletter/subscribers", h.listSubscribers)
	r.Delete("/newsletter/subscribers/{email}", h.unsubscribe)
}

// Banners --------------------------------------------------------------------

type bannerRequest struct {
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
	TargetURL string `json:"target_url"`
	Placement string `json:"placement"`
	StartsAt  string `json:"starts_at"`
	EndsAt    string `json:"ends_at"`
	Active    bool   `json:"active"`
}

type adminBannerPayload struct {
	bannerPayload
	Active bool  `json:"active"`
	Views  int64 `json:"views"`
	Clicks int64 `json:"clicks"`
}

func buildAdminBannerPayload(banner services.Banner) adminBannerPayload {
	return adminBannerPayload{
		bannerPayload: bannerPayload{
			ID:        banner.ID,
			Title:     banner.Title,
			ImageURL:  banner.ImageURL,
			TargetURL: banner.TargetURL,
			Placement: banner.Placement,
			StartsAt:  formatTimePtr(banner.StartsAt),
			EndsAt:    formatTimePtr(banner.EndsAt),
		},
		Active: banner.Active,
		Views:  banner.Views,
		Clicks: banner.Clicks,
	}
}

func (req bannerRequest) toDomain(bannerID string) (domain.Banner, error) {
	banner := domain.Banner{
		ID:        bannerID,
		Title:     strings.TrimSpace(req.Title),
		ImageURL:  strings.TrimSpace(req.ImageURL),
		TargetURL: strings.TrimSpace(req.TargetURL),
		Placement: strings.TrimSpace(req.Placement),
		Active:    req.Active,
	}
	if raw := strings.TrimSpace(req.StartsAt); raw != "" {
		starts, err := parseRFC3339(raw)
		if err != nil {
			return domain.Banner{}, errors.New("starts_at must be an RFC3339 timestamp")
		}
		banner.StartsAt = &starts
	}
	if raw := strings.TrimSpace(req.EndsAt); raw != "" {
		ends, err := parseRFC3339(raw)
		if err != nil {
			return domain.Banner{}, errors.New("ends_at must be an RFC3339 timestamp")
		}
		banner.EndsAt = &ends
	}
	return banner, nil
}

func (h *AdminContentHandlers) listBanners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireBanners(w, r) {
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.banners.List(ctx, pager)
	if err != nil {
		h.writeBannerError(w, r, err)
		return
	}

	items := make([]adminBannerPayload, 0, len(page.Items))
	for _, banner := range page.Items {
		items = append(items, buildAdminBannerPayload(banner))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":           items,
		"next_page_token": page.NextPageToken,
	})
}

func (h *AdminContentHandlers) createBanner(w http.ResponseWriter, r *http.Request) {
	h.saveBanner(w, r, "")
}

func (h *AdminContentHandlers) updateBanner(w http.ResponseWriter, r *http.Request) {
	h.saveBanner(w, r, strings.TrimSpace(chi.URLParam(r, "bannerID")))
}

func (h *AdminContentHandlers) saveBanner(w http.ResponseWriter, r *http.Request, bannerID string) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireBanners(w, r) {
		return
	}

	var req bannerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	banner, err := req.toDomain(bannerID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.UpsertBannerCommand{Banner: banner, ActorID: identity.UID}
	var saved services.Banner
	if bannerID == "" {
		saved, err = h.banners.Create(ctx, cmd)
	} else {
		saved, err = h.banners.Update(ctx, cmd)
	}
	if err != nil {
		h.writeBannerError(w, r, err)
		return
	}

	status := http.StatusOK
	if bannerID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, buildAdminBannerPayload(saved))
}

func (h *AdminContentHandlers) deleteBanner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireBanners(w, r) {
		return
	}

	if err := h.banners.Delete(ctx, chi.URLParam(r, "bannerID")); err != nil {
		h.writeBannerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminContentHandlers) requireBanners(w http.ResponseWriter, r *http.Request) bool {
	if h.banners == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "banners are unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminContentHandlers) writeBannerError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrBannerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrBannerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "banner not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBannerUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "banners are unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "banner operation failed", http.StatusInternalServerError))
	}
}

// Blog -----------------------------------------------------------------------

type blogPostRequest struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt"`
	BodyHTML    string   `json:"body_html"`
	CoverImage  string   `json:"cover_image"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
	PublishedAt string   `json:"published_at"`
}

func (req blogPostRequest) toDomain(postID string) (domain.BlogPost, error) {
	post := domain.BlogPost{
		ID:         postID,
		Slug:       strings.TrimSpace(req.Slug),
		Title:      strings.TrimSpace(req.Title),
		Excerpt:    req.Excerpt,
		BodyHTML:   req.BodyHTML,
		CoverImage: strings.TrimSpace(req.CoverImage),
		Author:     strings.TrimSpace(req.Author),
		Tags:       req.Tags,
		Status:     domain.BlogStatus(strings.TrimSpace(req.Status)),
	}
	if raw := strings.TrimSpace(req.PublishedAt); raw != "" {
		published, err := parseRFC3339(raw)
		if err != nil {
			return domain.BlogPost{}, errors.New("published_at must be an RFC3339 timestamp")
		}
		post.PublishedAt = &published
	}
	return post, nil
}

type adminBlogPostPayload struct {
	blogPostPayload
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func buildAdminBlogPostPayload(post services.BlogPost) adminBlogPostPayload {
	payload := adminBlogPostPayload{
		blogPostPayload: blogPostPayload{
			blogPostSummaryPayload: buildBlogSummaryPayload(post),
			BodyHTML:               post.BodyHTML,
		},
		Status: string(post.Status),
	}
	if !post.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(post.CreatedAt)
	}
	if !post.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(post.UpdatedAt)
	}
	return payload
}

func (h *AdminContentHandlers) listBlogPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireBlog(w, r) {
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.BlogListFilter{
		Status:     queryValues(r, "status"),
		Pagination: pager,
	}
	if tag := strings.TrimSpace(r.URL.Query().Get("tag")); tag != "" {
		filter.Tag = &tag
	}

	page, err := h.blog.List(ctx, filter)
	if err != nil {
		h.writeBlogError(w, r, err)
		return
	}

	items := make([]adminBlogPostPayload, 0, len(page.Items))
	for _, post := range page.Items {
		items = append(items, buildAdminBlogPostPayload(post))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":           items,
		"next_page_token": page.NextPageToken,
	})
}

func (h *AdminContentHandlers) createBlogPost(w http.ResponseWriter, r *http.Request) {
	h.saveBlogPost(w, r, "")
}

func (h *AdminContentHandlers) updateBlogPost(w http.ResponseWriter, r *http.Request) {
	h.saveBlogPost(w, r, strings.TrimSpace(chi.URLParam(r, "postID")))
}

func (h *AdminContentHandlers) saveBlogPost(w http.ResponseWriter, r *http.Request, postID string) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireBlog(w, r) {
		return
	}

	var req blogPostRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	post, err := req.toDomain(postID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.UpsertBlogPostCommand{Post: post, ActorID: identity.UID}
	var saved services.BlogPost
	if postID == "" {
		saved, err = h.blog.Create(ctx, cmd)
	} else {
		saved, err = h.blog.Update(ctx, cmd)
	}
	if err != nil {
		h.writeBlogError(w, r, err)
		return
	}

	status := http.StatusOK
	if postID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, buildAdminBlogPostPayload(saved))
}

func (h *AdminContentHandlers) deleteBlogPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireBlog(w, r) {
		return
	}

	if err := h.blog.Delete(ctx, chi.URLParam(r, "postID")); err != nil {
		h.writeBlogError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminContentHandlers) requireBlog(w http.ResponseWriter, r *http.Request) bool {
	if h.blog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "blog is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminContentHandlers) writeBlogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrBlogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrBlogPostNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "blog post not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBlogConflict):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeConflict, err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrBlogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "blog is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "blog operation failed", http.StatusInternalServerError))
	}
}

// Content singletons ---------------------------------------------------------

type companyInfoRequest struct {
	Name         string            `json:"name"`
	Tagline      string            `json:"tagline"`
	About        string            `json:"about"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Address      string            `json:"address"`
	SocialLinks  map[string]string `json:"social_links"`
	SupportHours string            `json:"support_hours"`
}

func (h *AdminContentHandlers) upsertCompanyInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireContent(w, r) {
		return
	}

	var req companyInfoRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	info, err := h.content.UpsertCompanyInfo(ctx, services.UpsertCompanyInfoCommand{
		Info: domain.CompanyInfo{
			Name:         strings.TrimSpace(req.Name),
			Tagline:      req.Tagline,
			About:        req.About,
			Email:        strings.TrimSpace(req.Email),
			Phone:        strings.TrimSpace(req.Phone),
			Address:      req.Address,
			SocialLinks:  req.SocialLinks,
			SupportHours: req.SupportHours,
		},
		ActorID: identity.UID,
	})
	if err != nil {
		h.writeContentError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCompanyInfoPayload(info))
}

type heroSectionRequest struct {
	Heading    string `json:"heading"`
	Subheading string `json:"subheading"`
	ImageURL   string `json:"image_url"`
	CTALabel   string `json:"cta_label"`
	CTAURL     string `json:"cta_url"`
}

func (h *AdminContentHandlers) upsertHeroSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireContent(w, r) {
		return
	}

	var req heroSectionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	hero, err := h.content.UpsertHeroSection(ctx, services.UpsertHeroSectionCommand{
		Hero: domain.HeroSection{
			Heading:    strings.TrimSpace(req.Heading),
			Subheading: req.Subheading,
			ImageURL:   strings.TrimSpace(req.ImageURL),
			CTALabel:   strings.TrimSpace(req.CTALabel),
			CTAURL:     strings.TrimSpace(req.CTAURL),
		},
		ActorID: identity.UID,
	})
	if err != nil {
		h.writeContentError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildHeroSectionPayload(hero))
}

type luxuryShowcaseRequest struct {
	Heading string                `json:"heading"`
	Items   []showcaseItemPayload `json:"items"`
}

func (h *AdminContentHandlers) upsertLuxuryShowcase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireContent(w, r) {
		return
	}

	var req luxuryShowcaseRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	showcase := domain.LuxuryShowcase{
		Heading: strings.TrimSpace(req.Heading),
		Items:   make([]domain.LuxuryShowcaseItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		showcase.Items = append(showcase.Items, domain.LuxuryShowcaseItem(item))
	}

	saved, err := h.content.UpsertLuxuryShowcase(ctx, services.UpsertLuxuryShowcaseCommand{
		Showcase: showcase,
		ActorID:  identity.UID,
	})
	if err != nil {
		h.writeContentError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildShowcasePayload(saved))
}

func (h *AdminContentHandlers) requireContent(w http.ResponseWriter, r *http.Request) bool {
	if h.content == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "content is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminContentHandlers) writeContentError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrContentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrContentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "content not found", http.StatusNotFound))
	case errors.Is(err, services.ErrContentUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "content is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "content operation failed", http.StatusInternalServerError))
	}
}

// Newsletter -----------------------------------------------------------------

func (h *AdminContentHandlers) listSubscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.newsletter == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "newsletter is unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.newsletter.List(ctx, pager)
	if err != nil {
		h.writeNewsletterError(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(page.Items))
	for _, sub := range page.Items {
		items = append(items, map[string]any{
			"email":         sub.Email,
			"source":        sub.Source,
			"subscribed_at": formatTime(sub.SubscribedAt),
		})
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":           items,
		"next_page_token": page.NextPageToken,
	})
}

func (h *AdminContentHandlers) unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.newsletter == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "newsletter is unavailable", http.StatusServiceUnavailable))
		return
	}

	email := strings.TrimSpace(chi.URLParam(r, "email"))
	if err := h.newsletter.Unsubscribe(ctx, email); err != nil {
		h.writeNewsletterError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminContentHandlers) writeNewsletterError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrNewsletterInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrNewsletterUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "newsletter is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "newsletter operation failed", http.StatusInternalServerError))
	}
}
