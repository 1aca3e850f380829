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
	"github.com/glowcart/api/internal/services"
)

type stubCouponService struct {
	resolveFunc func(ctx context.Context, code string, subtotal int64, now time.Time) (services.Coupon, error)
	listFunc    func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Coupon], error)
	upsertFunc  func(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error)
	deleteFunc  func(ctx context.Context, couponID string) error
}

func (s *stubCouponService) Resolve(ctx context.Context, code string, subtotal int64, now time.Time) (services.Coupon, error) {
	return s.resolveFunc(ctx, code, subtotal, now)
}

func (s *stubCouponService) List(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Coupon], error) {
	return s.listFunc(ctx, pager)
}

func (s *stubCouponService) Upsert(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
	return s.upsertFunc(ctx, cmd)
}

func (s *stubCouponService) Delete(ctx context.Context, couponID string) error {
	return s.deleteFunc(ctx, couponID)
}

func newAdminCatalogRouter(catalog services.CatalogService, coupons services.CouponService) chi.Router {
	router := chi.NewRouter()
	NewAdminCatalogHandlers(nil, catalog, coupons).Routes(router)
	return router
}

func TestAdminCatalogHandlersCreateProduct(t *testing.T) {
	var got services.UpsertProductCommand
	catalog := &stubCatalogService{
		createProductFunc: func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
			got = cmd
			product := cmd.Product
			product.ID = "prod_new"
			return product, nil
		},
	}
	router := newAdminCatalogRouter(catalog, nil)

	body := bytes.NewBufferString(`{
		"slug": "rose-serum",
		"sku": "RS-001",
		"title": "Rose Serum",
		"price": 4200,
		"currency": "usd",
		"stock": 50,
		"status": "active",
		"discount": {"type": "percent", "value": 10},
		"return_policy": {"returnable": true, "return_window_days": 30}
	}`)
	req := identityRequest(http.MethodPost, "/products", body, "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Product.ID != "" {
		t.Fatalf("expected blank product id on create, got %q", got.Product.ID)
	}
	if got.Product.Currency != "USD" {
		t.Fatalf("expected uppercased currency, got %q", got.Product.Currency)
	}
	if got.Product.Discount == nil || got.Product.Discount.Value != 10 {
		t.Fatalf("expected discount carried through, got %+v", got.Product.Discount)
	}
	if !got.Product.ReturnPolicy.Returnable || got.Product.ReturnPolicy.ReturnWindowDays != 30 {
		t.Fatalf("unexpected return policy: %+v", got.Product.ReturnPolicy)
	}
	if got.ActorID != "admin-1" {
		t.Fatalf("expected actor admin-1, got %q", got.ActorID)
	}
}

func TestAdminCatalogHandlersUpdateProductConflict(t *testing.T) {
	catalog := &stubCatalogService{
		updateProductFunc: func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
			if cmd.Product.ID != "prod_1" {
				t.Fatalf("expected product id prod_1, got %q", cmd.Product.ID)
			}
			return services.Product{}, services.ErrCatalogConflict
		},
	}
	router := newAdminCatalogRouter(catalog, nil)

	body := bytes.NewBufferString(`{"slug":"taken-slug","sku":"RS-001","title":"Rose Serum","price":4200,"currency":"usd"}`)
	req := identityRequest(http.MethodPut, "/products/prod_1", body, "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminCatalogHandlersDeleteProduct(t *testing.T) {
	var deleted string
	catalog := &stubCatalogService{
		deleteProductFunc: func(ctx context.Context, productID string) error {
			deleted = productID
			return nil
		},
	}
	router := newAdminCatalogRouter(catalog, nil)

	req := identityRequest(http.MethodDelete, "/products/prod_1", nil, "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if deleted != "prod_1" {
		t.Fatalf("expected delete for prod_1, got %q", deleted)
	}
}

func TestAdminCatalogHandlersCreateCoupon(t *testing.T) {
	var got services.UpsertCouponCommand
	coupons := &stubCouponService{
		upsertFunc: func(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
			got = cmd
			coupon := cmd.Coupon
			coupon.ID = "cpn_new"
			return coupon, nil
		},
	}
	router := newAdminCatalogRouter(nil, coupons)

	body := bytes.NewBufferString(`{
		"code": "glow10",
		"type": "percent",
		"value": 10,
		"min_subtotal": 5000,
		"active": true,
		"expires_at": "2024-12-31T23:59:59Z"
	}`)
	req := identityRequest(http.MethodPost, "/coupons", body, "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Coupon.Code != "GLOW10" {
		t.Fatalf("expected uppercased code, got %q", got.Coupon.Code)
	}
	if got.Coupon.ExpiresAt == nil || got.Coupon.ExpiresAt.Year() != 2024 {
		t.Fatalf("expected parsed expiry, got %v", got.Coupon.ExpiresAt)
	}

	var resp couponPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "cpn_new" || resp.Code != "GLOW10" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAdminCatalogHandlersUpdateCouponByID(t *testing.T) {
	coupons := &stubCouponService{
		upsertFunc: func(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
			if cmd.Coupon.ID != "cpn_1" {
				t.Fatalf("expected coupon id cpn_1, got %q", cmd.Coupon.ID)
			}
			return cmd.Coupon, nil
		},
	}
	router := newAdminCatalogRouter(nil, coupons)

	body := bytes.NewBufferString(`{"code":"GLOW20","type":"percent","value":20,"active":false}`)
	req := identityRequest(http.MethodPut, "/coupons/cpn_1", body, "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for update, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAdminCatalogHandlersCreateCouponBadExpiry(t *testing.T) {
	coupons := &stubCouponService{
		upsertFunc: func(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
			t.Fatal("service should not be called for bad expiry")
			return services.Coupon{}, nil
		},
	}
	router := newAdminCatalogRouter(nil, coupons)

	body := bytes.NewBufferString(`{"code":"GLOW10","type":"percent","value":10,"expires_at":"next week"}`)
	req := identityRequest(http.MethodPost, "/coupons", body, "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
