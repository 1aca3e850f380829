package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/mail"
	"github.com/glowcart/api/internal/platform/httpx"
	"github.com/glowcart/api/internal/services"
)

const (
	bannerCounterRateLimit  = 30
	bannerCounterRateWindow = time.Minute
)

// PublicHandlers serves the unauthenticated storefront endpoints: blog,
// banners, singleton content documents, newsletter signup, and the catalog
// reads the cart hydrates from.
type PublicHandlers struct {
	blog       services.BlogService
	banners    services.BannerService
	content    services.ContentService
	newsletter services.NewsletterService
	catalog    services.CatalogService
	reviews    services.ReviewService

	welcomeMail mail.Sender
	limiter     rateLimiter
	logger      func(ctx context.Context, event string, fields map[string]any)
}

// PublicOption customises public handler construction.
type PublicOption func(*PublicHandlers)

// WithPublicBlogService wires the blog service.
func WithPublicBlogService(blog services.BlogService) PublicOption {
	return func(h *PublicHandlers) { h.blog = blog }
}

// WithPublicBannerService wires the banner service.
func WithPublicBannerService(banners services.BannerService) PublicOption {
	return func(h *PublicHandlers) { h.banners = banners }
}

// WithPublicContentService wires the singleton content service.
func WithPublicContentService(content services.ContentService) PublicOption {
	return func(h *PublicHandlers) { h.content = content }
}

// WithPublicNewsletterService wires the newsletter service.
func WithPublicNewsletterService(newsletter services.NewsletterService) PublicOption {
	return func(h *PublicHandlers) { h.newsletter = newsletter }
}

// WithPublicCatalogService wires the catalog read service.
func WithPublicCatalogService(catalog services.CatalogService) PublicOption {
	return func(h *PublicHandlers) { h.catalog = catalog }
}

// WithPublicReviewService wires the review service for published review reads.
func WithPublicReviewService(reviews services.ReviewService) PublicOption {
	return func(h *PublicHandlers) { h.reviews = reviews }
}

// WithPublicWelcomeSender wires the sender used for newsletter welcome mail.
func WithPublicWelcomeSender(sender mail.Sender) PublicOption {
	return func(h *PublicHandlers) { h.welcomeMail = sender }
}

// WithPublicRateLimiter overrides the banner counter rate limiter.
func WithPublicRateLimiter(limiter rateLimiter) PublicOption {
	return func(h *PublicHandlers) { h.limiter = limiter }
}

// WithPublicBannerEventLimit rebuilds the banner counter limiter with a
// per-minute allowance, typically sourced from configuration. Non-positive
// values keep the default.
func WithPublicBannerEventLimit(perMinute int) PublicOption {
	return func(h *PublicHandlers) {
		if perMinute > 0 {
			h.limiter = newWindowLimiter(perMinute, bannerCounterRateWindow, nil)
		}
	}
}

// WithPublicLogger wires the structured logging closure.
func WithPublicLogger(logger func(ctx context.Context, event string, fields map[string]any)) PublicOption {
	return func(h *PublicHandlers) { h.logger = logger }
}

// NewPublicHandlers constructs the storefront handlers.
func NewPublicHandlers(opts ...PublicOption) *PublicHandlers {
	h := &PublicHandlers{
		limiter: newWindowLimiter(bannerCounterRateLimit, bannerCounterRateWindow, nil),
		logger:  func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the public endpoints directly on the API router.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/blog", h.listBlogPosts)
	r.Get("/blog/{slug}", h.getBlogPost)
	r.Get("/banners/active", h.listActiveBanners)
	r.Post("/banners/{bannerID}/view", h.recordBannerView)
	r.Post("/banners/{bannerID}/click", h.recordBannerClick)
	r.Get("/company-info", h.getCompanyInfo)
	r.Get("/hero-section", h.getHeroSection)
	r.Get("/luxury-showcase", h.getLuxuryShowcase)
	r.Post("/newsletter/subscribe", h.subscribeNewsletter)
	r.Get("/products", h.listProducts)
	r.Get("/products/{slug}", h.getProduct)
	r.Get("/products/{productID}/reviews", h.listProductReviews)
}

// Blog -----------------------------------------------------------------------

type blogPostSummaryPayload struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt,omitempty"`
	CoverImage  string   `json:"cover_image,omitempty"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
}

type blogPostPayload struct {
	blogPostSummaryPayload
	BodyHTML string `json:"body_html"`
}

type blogListResponse struct {
	Items         []blogPostSummaryPayload `json:"items"`
	NextPageToken string                   `json:"next_page_token,omitempty"`
}

func (h *PublicHandlers) listBlogPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.blog == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "blog is unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.BlogListFilter{OnlyPublished: true, Pagination: pager}
	if tag := strings.TrimSpace(r.URL.Query().Get("tag")); tag != "" {
		filter.Tag = &tag
	}

	page, err := h.blog.ListPublished(ctx, filter)
	if err != nil {
		h.writeBlogError(ctx, w, err)
		return
	}

	resp := blogListResponse{Items: make([]blogPostSummaryPayload, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, post := range page.Items {
		resp.Items = append(resp.Items, buildBlogSummaryPayload(post))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *PublicHandlers) getBlogPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.blog == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "blog is unavailable", http.StatusServiceUnavailable))
		return
	}

	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	post, err := h.blog.GetBySlug(ctx, slug)
	if err != nil {
		h.writeBlogError(ctx, w, err)
		return
	}

	payload := blogPostPayload{
		blogPostSummaryPayload: buildBlogSummaryPayload(post),
		BodyHTML:               post.BodyHTML,
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *PublicHandlers) writeBlogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrBlogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrBlogPostNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "blog post not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBlogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "blog is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to load blog content", http.StatusInternalServerError))
	}
}

func buildBlogSummaryPayload(post services.BlogPost) blogPostSummaryPayload {
	return blogPostSummaryPayload{
		ID:          post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		Excerpt:     post.Excerpt,
		CoverImage:  post.CoverImage,
		Author:      post.Author,
		Tags:        post.Tags,
		PublishedAt: formatTimePtr(post.PublishedAt),
	}
}

// Banners --------------------------------------------------------------------

type bannerPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
	TargetURL string `json:"target_url,omitempty"`
	Placement string `json:"placement,omitempty"`
	StartsAt  string `json:"starts_at,omitempty"`
	EndsAt    string `json:"ends_at,omitempty"`
}

func (h *PublicHandlers) listActiveBanners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.banners == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "banners are unavailable", http.StatusServiceUnavailable))
		return
	}

	banners, err := h.banners.ListActive(ctx)
	if err != nil {
		h.writeBannerError(ctx, w, err)
		return
	}

	payload := make([]bannerPayload, 0, len(banners))
	for _, banner := range banners {
		payload = append(payload, bannerPayload{
			ID:        banner.ID,
			Title:     banner.Title,
			ImageURL:  banner.ImageURL,
			TargetURL: banner.TargetURL,
			Placement: banner.Placement,
			StartsAt:  formatTimePtr(banner.StartsAt),
			EndsAt:    formatTimePtr(banner.EndsAt),
		})
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": payload})
}

func (h *PublicHandlers) recordBannerView(w http.ResponseWriter, r *http.Request) {
	h.recordBannerCounter(w, r, "view")
}

func (h *PublicHandlers) recordBannerClick(w http.ResponseWriter, r *http.Request) {
	h.recordBannerCounter(w, r, "click")
}

// recordBannerCounter is fire-and-forget: counter failures other than an
// unknown banner return 202 regardless so storefront rendering never blocks.
func (h *PublicHandlers) recordBannerCounter(w http.ResponseWriter, r *http.Request, kind string) {
	ctx := r.Context()
	if h.banners == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "banners are unavailable", http.StatusServiceUnavailable))
		return
	}

	bannerID := strings.TrimSpace(chi.URLParam(r, "bannerID"))
	if bannerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "banner id is required", http.StatusBadRequest))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(clientKey(r)+":"+bannerID) {
		writeRateLimited(w, r)
		return
	}

	var err error
	if kind == "click" {
		err = h.banners.RecordClick(ctx, bannerID)
	} else {
		err = h.banners.RecordView(ctx, bannerID)
	}
	if err != nil {
		if errors.Is(err, services.ErrBannerNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "banner not found", http.StatusNotFound))
			return
		}
		h.logger(ctx, "banner.counter_failed", map[string]any{
			"bannerId": bannerID,
			"kind":     kind,
			"error":    err.Error(),
		})
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *PublicHandlers) writeBannerError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrBannerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrBannerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "banner not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBannerUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "banners are unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to load banners", http.StatusInternalServerError))
	}
}

// Content singletons ---------------------------------------------------------

func (h *PublicHandlers) getCompanyInfo(w http.ResponseWriter, r *http.Request) {
	h.serveContent(w, r, func(ctx context.Context) (any, error) {
		info, err := h.content.GetCompanyInfo(ctx)
		if err != nil {
			return nil, err
		}
		return buildCompanyInfoPayload(info), nil
	})
}

func (h *PublicHandlers) getHeroSection(w http.ResponseWriter, r *http.Request) {
	h.serveContent(w, r, func(ctx context.Context) (any, error) {
		hero, err := h.content.GetHeroSection(ctx)
		if err != nil {
			return nil, err
		}
		return buildHeroSectionPayload(hero), nil
	})
}

func (h *PublicHandlers) getLuxuryShowcase(w http.ResponseWriter, r *http.Request) {
	h.serveContent(w, r, func(ctx context.Context) (any, error) {
		showcase, err := h.content.GetLuxuryShowcase(ctx)
		if err != nil {
			return nil, err
		}
		return buildShowcasePayload(showcase), nil
	})
}

func (h *PublicHandlers) serveContent(w http.ResponseWriter, r *http.Request, load func(ctx context.Context) (any, error)) {
	ctx := r.Context()
	if h.content == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "content is unavailable", http.StatusServiceUnavailable))
		return
	}

	payload, err := load(ctx)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContentNotFound):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "content not found", http.StatusNotFound))
		case errors.Is(err, services.ErrContentUnavailable):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "content is unavailable", http.StatusServiceUnavailable))
		default:
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to load content", http.StatusInternalServerError))
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type companyInfoPayload struct {
	Name         string            `json:"name"`
	Tagline      string            `json:"tagline,omitempty"`
	About        string            `json:"about,omitempty"`
	Email        string            `json:"email,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Address      string            `json:"address,omitempty"`
	SocialLinks  map[string]string `json:"social_links,omitempty"`
	SupportHours string            `json:"support_hours,omitempty"`
	UpdatedAt    string            `json:"updated_at,omitempty"`
}

func buildCompanyInfoPayload(info services.CompanyInfo) companyInfoPayload {
	payload := companyInfoPayload{
		Name:         info.Name,
		Tagline:      info.Tagline,
		About:        info.About,
		Email:        info.Email,
		Phone:        info.Phone,
		Address:      info.Address,
		SocialLinks:  info.SocialLinks,
		SupportHours: info.SupportHours,
	}
	if !info.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(info.UpdatedAt)
	}
	return payload
}

type heroSectionPayload struct {
	Heading    string `json:"heading"`
	Subheading string `json:"subheading,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	CTALabel   string `json:"cta_label,omitempty"`
	CTAURL     string `json:"cta_url,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

func buildHeroSectionPayload(hero services.HeroSection) heroSectionPayload {
	payload := heroSectionPayload{
		Heading:    hero.Heading,
		Subheading: hero.Subheading,
		ImageURL:   hero.ImageURL,
		CTALabel:   hero.CTALabel,
		CTAURL:     hero.CTAURL,
	}
	if !hero.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(hero.UpdatedAt)
	}
	return payload
}

type showcaseItemPayload struct {
	Title     string `json:"title"`
	ImageURL  string `json:"image_url,omitempty"`
	TargetURL string `json:"target_url,omitempty"`
	Position  int    `json:"position"`
}

type showcasePayload struct {
	Heading   string                `json:"heading,omitempty"`
	Items     []showcaseItemPayload `json:"items"`
	UpdatedAt string                `json:"updated_at,omitempty"`
}

func buildShowcasePayload(showcase services.LuxuryShowcase) showcasePayload {
	payload := showcasePayload{
		Heading: showcase.Heading,
		Items:   make([]showcaseItemPayload, 0, len(showcase.Items)),
	}
	for _, item := range showcase.Items {
		payload.Items = append(payload.Items, showcaseItemPayload(item))
	}
	if !showcase.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(showcase.UpdatedAt)
	}
	return payload
}

// Newsletter -----------------------------------------------------------------

type subscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (h *PublicHandlers) subscribeNewsletter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.newsletter == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "newsletter is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req subscribeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	subscriber, created, err := h.newsletter.Subscribe(ctx, services.SubscribeNewsletterCommand{
		Email:  req.Email,
		Source: req.Source,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNewsletterInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		case errors.Is(err, services.ErrNewsletterUnavailable):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "newsletter is unavailable", http.StatusServiceUnavailable))
		default:
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to subscribe", http.StatusInternalServerError))
		}
		return
	}

	if created && h.welcomeMail != nil {
		msg := mail.NewsletterWelcome(subscriber.Email)
		if sendErr := h.welcomeMail.Send(ctx, subscriber.Email, msg); sendErr != nil {
			h.logger(ctx, "newsletter.welcome_failed", map[string]any{
				"email": subscriber.Email,
				"error": sendErr.Error(),
			})
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, map[string]any{
		"email":      subscriber.Email,
		"subscribed": true,
	})
}

// Catalog reads --------------------------------------------------------------

type productSummaryPayload struct {
	ID       string         `json:"id"`
	Slug     string         `json:"slug"`
	SKU      string         `json:"sku"`
	Title    string         `json:"title"`
	Brand    string         `json:"brand,omitempty"`
	Category string         `json:"category,omitempty"`
	Price    int64          `json:"price"`
	Currency string         `json:"currency"`
	Discount *discountPayload `json:"discount,omitempty"`
	Stock    int            `json:"stock"`
	Images   []string       `json:"images,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

type discountPayload struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

type shippingPolicyPayload struct {
	Charges                 int64 `json:"charges"`
	FreeShippingThreshold   int64 `json:"free_shipping_threshold,omitempty"`
	FreeShippingMinQuantity int   `json:"free_shipping_min_quantity,omitempty"`
}

type returnPolicyPayload struct {
	Returnable       bool `json:"returnable"`
	ReturnWindowDays int  `json:"return_window_days,omitempty"`
}

type productDetailPayload struct {
	productSummaryPayload
	Description  string                 `json:"description,omitempty"`
	Shipping     *shippingPolicyPayload `json:"shipping,omitempty"`
	ReturnPolicy returnPolicyPayload    `json:"return_policy"`
}

type productListResponse struct {
	Items         []productSummaryPayload `json:"items"`
	NextPageToken string                  `json:"next_page_token,omitempty"`
}

func (h *PublicHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.ProductListFilter{
		Status:     []string{string(domain.ProductStatusActive)},
		Tags:       queryValues(r, "tag"),
		Pagination: pager,
	}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		filter.Category = &category
	}
	if brand := strings.TrimSpace(r.URL.Query().Get("brand")); brand != "" {
		filter.Brand = &brand
	}

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	resp := productListResponse{Items: make([]productSummaryPayload, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, product := range page.Items {
		resp.Items = append(resp.Items, buildProductSummaryPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *PublicHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}

	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	product, err := h.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	if product.Status != domain.ProductStatusActive {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeProductNotFound, "product not found", http.StatusNotFound))
		return
	}

	writeJSONResponse(w, http.StatusOK, buildProductDetailPayload(product))
}

func (h *PublicHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeProductNotFound, "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "catalog is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to load products", http.StatusInternalServerError))
	}
}

func buildProductSummaryPayload(product services.Product) productSummaryPayload {
	payload := productSummaryPayload{
		ID:       product.ID,
		Slug:     product.Slug,
		SKU:      product.SKU,
		Title:    product.Title,
		Brand:    product.Brand,
		Category: product.Category,
		Price:    product.Price,
		Currency: strings.ToUpper(product.Currency),
		Stock:    product.Stock,
		Images:   product.Images,
		Tags:     product.Tags,
	}
	if product.Discount != nil {
		payload.Discount = &discountPayload{Type: string(product.Discount.Type), Value: product.Discount.Value}
	}
	return payload
}

func buildProductDetailPayload(product services.Product) productDetailPayload {
	payload := productDetailPayload{
		productSummaryPayload: buildProductSummaryPayload(product),
		Description:           product.Description,
		ReturnPolicy: returnPolicyPayload{
			Returnable:       product.ReturnPolicy.Returnable,
			ReturnWindowDays: product.ReturnPolicy.ReturnWindowDays,
		},
	}
	if product.Shipping != nil {
		payload.Shipping = &shippingPolicyPayload{
			Charges:                 product.Shipping.Charges,
			FreeShippingThreshold:   product.Shipping.FreeShippingThreshold,
			FreeShippingMinQuantity: product.Shipping.FreeShippingMinQuantity,
		}
	}
	return payload
}

// Published reviews ----------------------------------------------------------

type reviewPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

type reviewListResponse struct {
	Items         []reviewPayload `json:"items"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

func (h *PublicHandlers) listProductReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "reviews are unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.reviews.ListByProduct(ctx, services.ListProductReviewsCommand{
		ProductID:  productID,
		Pagination: pager,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReviewInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to load reviews", http.StatusInternalServerError))
		}
		return
	}

	resp := reviewListResponse{Items: make([]reviewPayload, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, review := range page.Items {
		resp.Items = append(resp.Items, buildReviewPayload(review))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func buildReviewPayload(review services.Review) reviewPayload {
	payload := reviewPayload{
		ID:        review.ID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		Title:     review.Title,
		Body:      review.Body,
		Status:    string(review.Status),
	}
	if !review.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(review.CreatedAt)
	}
	return payload
}
