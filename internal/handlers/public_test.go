package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/mail"
	"github.com/glowcart/api/internal/services"
)

type stubBlogService struct {
	listPublishedFunc func(ctx context.Context, filter services.BlogListFilter) (domain.CursorPage[services.BlogPost], error)
	getBySlugFunc     func(ctx context.Context, slug string) (services.BlogPost, error)
	listFunc          func(ctx context.Context, filter services.BlogListFilter) (domain.CursorPage[services.BlogPost], error)
	createFunc        func(ctx context.Context, cmd services.UpsertBlogPostCommand) (services.BlogPost, error)
	updateFunc        func(ctx context.Context, cmd services.UpsertBlogPostCommand) (services.BlogPost, error)
	deleteFunc        func(ctx context.Context, postID string) error
}

func (s *stubBlogService) ListPublished(ctx context.Context, filter services.BlogListFilter) (domain.CursorPage[services.BlogPost], error) {
	return s.listPublishedFunc(ctx, filter)
}

func (s *stubBlogService) GetBySlug(ctx context.Context, slug string) (services.BlogPost, error) {
	return s.getBySlugFunc(ctx, slug)
}

func (s *stubBlogService) List(ctx context.Context, filter services.BlogListFilter) (domain.CursorPage[services.BlogPost], error) {
	return s.listFunc(ctx, filter)
}

func (s *stubBlogService) Create(ctx context.Context, cmd services.UpsertBlogPostCommand) (services.BlogPost, error) {
	return s.createFunc(ctx, cmd)
}

func (s *stubBlogService) Update(ctx context.Context, cmd services.UpsertBlogPostCommand) (services.BlogPost, error) {
	return s.updateFunc(ctx, cmd)
}

func (s *stubBlogService) Delete(ctx context.Context, postID string) error {
	return s.deleteFunc(ctx, postID)
}

type stubBannerService struct {
	listActiveFunc  func(ctx context.Context) ([]services.Banner, error)
	recordViewFunc  func(ctx context.Context, bannerID string) error
	recordClickFunc func(ctx context.Context, bannerID string) error
	listFunc        func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Banner], error)
	createFunc      func(ctx context.Context, cmd services.UpsertBannerCommand) (services.Banner, error)
	updateFunc      func(ctx context.Context, cmd services.UpsertBannerCommand) (services.Banner, error)
	deleteFunc      func(ctx context.Context, bannerID string) error
}

func (s *stubBannerService) ListActive(ctx context.Context) ([]services.Banner, error) {
	return s.listActiveFunc(ctx)
}

func (s *stubBannerService) RecordView(ctx context.Context, bannerID string) error {
	return s.recordViewFunc(ctx, bannerID)
}

func (s *stubBannerService) RecordClick(ctx context.Context, bannerID string) error {
	return s.recordClickFunc(ctx, bannerID)
}

func (s *stubBannerService) List(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Banner], error) {
	return s.listFunc(ctx, pager)
}

func (s *stubBannerService) Create(ctx context.Context, cmd services.UpsertBannerCommand) (services.Banner, error) {
	return s.createFunc(ctx, cmd)
}

func (s *stubBannerService) Update(ctx context.Context, cmd services.UpsertBannerCommand) (services.Banner, error) {
	return s.updateFunc(ctx, cmd)
}

func (s *stubBannerService) Delete(ctx context.Context, bannerID string) error {
	return s.deleteFunc(ctx, bannerID)
}

type stubNewsletterService struct {
	subscribeFunc   func(ctx context.Context, cmd services.SubscribeNewsletterCommand) (services.NewsletterSubscriber, bool, error)
	unsubscribeFunc func(ctx context.Context, email string) error
	listFunc        func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.NewsletterSubscriber], error)
}

func (s *stubNewsletterService) Subscribe(ctx context.Context, cmd services.SubscribeNewsletterCommand) (services.NewsletterSubscriber, bool, error) {
	return s.subscribeFunc(ctx, cmd)
}

func (s *stubNewsletterService) Unsubscribe(ctx context.Context, email string) error {
	return s.unsubscribeFunc(ctx, email)
}

func (s *stubNewsletterService) List(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.NewsletterSubscriber], error) {
	return s.listFunc(ctx, pager)
}

type stubCatalogService struct {
	listProductsFunc     func(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.Product], error)
	getProductBySlugFunc func(ctx context.Context, slug string) (services.Product, error)
	getProductFunc       func(ctx context.Context, productID string) (services.Product, error)
	createProductFunc    func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error)
	updateProductFunc    func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error)
	deleteProductFunc    func(ctx context.Context, productID string) error
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.Product], error) {
	return s.listProductsFunc(ctx, filter)
}

func (s *stubCatalogService) GetProductBySlug(ctx context.Context, slug string) (services.Product, error) {
	return s.getProductBySlugFunc(ctx, slug)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	return s.getProductFunc(ctx, productID)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	return s.createProductFunc(ctx, cmd)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	return s.updateProductFunc(ctx, cmd)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	return s.deleteProductFunc(ctx, productID)
}

type captureMailSender struct {
	to   []string
	msgs []mail.Message
	err  error
}

func (s *captureMailSender) Send(_ context.Context, to string, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.to = append(s.to, to)
	s.msgs = append(s.msgs, msg)
	return nil
}

func newPublicRouter(h *PublicHandlers) chi.Router {
	router := chi.NewRouter()
	h.Routes(router)
	return router
}

func TestPublicHandlersListBlogPosts(t *testing.T) {
	published := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	blog := &stubBlogService{
		listPublishedFunc: func(ctx context.Context, filter services.BlogListFilter) (domain.CursorPage[services.BlogPost], error) {
			if !filter.OnlyPublished {
				t.Fatalf("expected only published filter")
			}
			if filter.Tag == nil || *filter.Tag != "skincare" {
				t.Fatalf("expected tag filter skincare, got %v", filter.Tag)
			}
			return domain.CursorPage[services.BlogPost]{
				Items: []services.BlogPost{{
					ID:          "post_1",
					Slug:        "summer-routine",
					Title:       "Summer Routine",
					Tags:        []string{"skincare"},
					PublishedAt: &published,
				}},
				NextPageToken: "tok",
			}, nil
		},
	}

	router := newPublicRouter(NewPublicHandlers(WithPublicBlogService(blog)))

	req := httptest.NewRequest(http.MethodGet, "/blog?tag=skincare", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp blogListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Slug != "summer-routine" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
	if resp.NextPageToken != "tok" {
		t.Fatalf("expected next page token, got %q", resp.NextPageToken)
	}
}

func TestPublicHandlersGetBlogPostNotFound(t *testing.T) {
	blog := &stubBlogService{
		getBySlugFunc: func(ctx context.Context, slug string) (services.BlogPost, error) {
			return services.BlogPost{}, services.ErrBlogPostNotFound
		},
	}

	router := newPublicRouter(NewPublicHandlers(WithPublicBlogService(blog)))

	req := httptest.NewRequest(http.MethodGet, "/blog/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestPublicHandlersListActiveBanners(t *testing.T) {
	banners := &stubBannerService{
		listActiveFunc: func(ctx context.Context) ([]services.Banner, error) {
			return []services.Banner{{ID: "ban_1", Title: "Summer Sale", ImageURL: "https://cdn.example/ban.png"}}, nil
		},
	}

	router := newPublicRouter(NewPublicHandlers(WithPublicBannerService(banners)))

	req := httptest.NewRequest(http.MethodGet, "/banners/active", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Items []bannerPayload `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "ban_1" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestPublicHandlersBannerViewCounter(t *testing.T) {
	var recorded string
	banners := &stubBannerService{
		recordViewFunc: func(ctx context.Context, bannerID string) error {
			recorded = bannerID
			return nil
		},
	}

	router := newPublicRouter(NewPublicHandlers(WithPublicBannerService(banners)))

	req := httptest.NewRequest(http.MethodPost, "/banners/ban_1/view", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	if recorded != "ban_1" {
		t.Fatalf("expected view recorded for ban_1, got %q", recorded)
	}
}

func TestPublicHandlersBannerCounterRateLimited(t *testing.T) {
	banners := &stubBannerService{
		recordClickFunc: func(ctx context.Context, bannerID string) error { return nil },
	}
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	limiter := newWindowLimiter(2, time.Minute, func() time.Time { return clock })

	router := newPublicRouter(NewPublicHandlers(
		WithPublicBannerService(banners),
		WithPublicRateLimiter(limiter),
	))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/banners/ban_1/click", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("request %d: expected status 202, got %d", i, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/banners/ban_1/click", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
}

func TestPublicHandlersBannerEventLimitFromConfig(t *testing.T) {
	banners := &stubBannerService{
		recordClickFunc: func(ctx context.Context, bannerID string) error { return nil },
	}
	router := newPublicRouter(NewPublicHandlers(
		WithPublicBannerService(banners),
		WithPublicBannerEventLimit(1),
	))

	for i, want := range []int{http.StatusAccepted, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/banners/ban_1/click", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rr.Code)
		}
	}
}

func TestPublicHandlersSubscribeNewsletterSendsWelcome(t *testing.T) {
	newsletter := &stubNewsletterService{
		subscribeFunc: func(ctx context.Context, cmd services.SubscribeNewsletterCommand) (services.NewsletterSubscriber, bool, error) {
			if cmd.Email != "new@example.com" {
				t.Fatalf("unexpected email %q", cmd.Email)
			}
			return services.NewsletterSubscriber{Email: "new@example.com", Source: cmd.Source}, true, nil
		},
	}
	sender := &captureMailSender{}

	router := newPublicRouter(NewPublicHandlers(
		WithPublicNewsletterService(newsletter),
		WithPublicWelcomeSender(sender),
	))

	body := bytes.NewBufferString(`{"email":"new@example.com","source":"footer"}`)
	req := httptest.NewRequest(http.MethodPost, "/newsletter/subscribe", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if len(sender.to) != 1 || sender.to[0] != "new@example.com" {
		t.Fatalf("expected welcome mail to new@example.com, got %v", sender.to)
	}
}

func TestPublicHandlersSubscribeNewsletterExisting(t *testing.T) {
	newsletter := &stubNewsletterService{
		subscribeFunc: func(ctx context.Context, cmd services.SubscribeNewsletterCommand) (services.NewsletterSubscriber, bool, error) {
			return services.NewsletterSubscriber{Email: cmd.Email}, false, nil
		},
	}
	sender := &captureMailSender{}

	router := newPublicRouter(NewPublicHandlers(
		WithPublicNewsletterService(newsletter),
		WithPublicWelcomeSender(sender),
	))

	body := bytes.NewBufferString(`{"email":"existing@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/newsletter/subscribe", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(sender.to) != 0 {
		t.Fatalf("expected no welcome mail for repeat subscriber, got %v", sender.to)
	}
}

func TestPublicHandlersListProductsFiltersActive(t *testing.T) {
	catalog := &stubCatalogService{
		listProductsFunc: func(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.Product], error) {
			if len(filter.Status) != 1 || filter.Status[0] != string(domain.ProductStatusActive) {
				t.Fatalf("expected active status filter, got %v", filter.Status)
			}
			return domain.CursorPage[services.Product]{
				Items: []services.Product{{
					ID:       "prod_1",
					Slug:     "rose-serum",
					SKU:      "RS-001",
					Title:    "Rose Serum",
					Price:    4200,
					Currency: "usd",
					Status:   domain.ProductStatusActive,
				}},
			}, nil
		},
	}

	router := newPublicRouter(NewPublicHandlers(WithPublicCatalogService(catalog)))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp productListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Currency != "USD" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestPublicHandlersGetProductHidesInactive(t *testing.T) {
	catalog := &stubCatalogService{
		getProductBySlugFunc: func(ctx context.Context, slug string) (services.Product, error) {
			return services.Product{ID: "prod_1", Slug: slug, Status: domain.ProductStatusArchived}, nil
		},
	}

	router := newPublicRouter(NewPublicHandlers(WithPublicCatalogService(catalog)))

	req := httptest.NewRequest(http.MethodGet, "/products/retired-cream", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
