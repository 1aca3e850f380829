package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/glowcart/api/internal/services"
)

type stubCartService struct {
	getOrCreateFunc  func(ctx context.Context, userID string) (services.Cart, error)
	addOrUpdateFunc  func(ctx context.Context, cmd services.UpsertCartItemCommand) (services.Cart, error)
	removeItemFunc   func(ctx context.Context, cmd services.RemoveCartItemCommand) (services.Cart, error)
	estimateFunc     func(ctx context.Context, userID string) (services.PricingBreakdown, error)
	applyCouponFunc  func(ctx context.Context, cmd services.ApplyCouponCommand) (services.Cart, error)
	removeCouponFunc func(ctx context.Context, userID string) (services.Cart, error)
	clearCartFunc    func(ctx context.Context, userID string) error
}

func (s *stubCartService) GetOrCreateCart(ctx context.Context, userID string) (services.Cart, error) {
	return s.getOrCreateFunc(ctx, userID)
}

func (s *stubCartService) AddOrUpdateItem(ctx context.Context, cmd services.UpsertCartItemCommand) (services.Cart, error) {
	return s.addOrUpdateFunc(ctx, cmd)
}

func (s *stubCartService) RemoveItem(ctx context.Context, cmd services.RemoveCartItemCommand) (services.Cart, error) {
	return s.removeItemFunc(ctx, cmd)
}

func (s *stubCartService) Estimate(ctx context.Context, userID string) (services.PricingBreakdown, error) {
	return s.estimateFunc(ctx, userID)
}

func (s *stubCartService) ApplyCoupon(ctx context.Context, cmd services.ApplyCouponCommand) (services.Cart, error) {
	return s.applyCouponFunc(ctx, cmd)
}

func (s *stubCartService) RemoveCoupon(ctx context.Context, userID string) (services.Cart, error) {
	return s.removeCouponFunc(ctx, userID)
}

func (s *stubCartService) ClearCart(ctx context.Context, userID string) error {
	return s.clearCartFunc(ctx, userID)
}

func newCartRouter(carts services.CartService) chi.Router {
	router := chi.NewRouter()
	NewCartHandlers(nil, carts).Routes(router)
	return router
}

func TestCartHandlersGetCart(t *testing.T) {
	carts := &stubCartService{
		getOrCreateFunc: func(ctx context.Context, userID string) (services.Cart, error) {
			if userID != "user-1" {
				t.Fatalf("expected cart lookup for user-1, got %q", userID)
			}
			return services.Cart{
				ID:       "cart_1",
				UserID:   userID,
				Currency: "usd",
				Items: []services.CartItem{{
					ID:        "item_1",
					ProductID: "prod_1",
					SKU:       "RS-001",
					Title:     "Rose Serum",
					Quantity:  2,
					UnitPrice: 4200,
				}},
			}, nil
		},
	}
	router := newCartRouter(carts)

	req := identityRequest(http.MethodGet, "/", nil, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp cartPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "cart_1" || resp.Currency != "USD" {
		t.Fatalf("unexpected cart: %+v", resp)
	}
	if len(resp.Items) != 1 || resp.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestCartHandlersAddItem(t *testing.T) {
	var got services.UpsertCartItemCommand
	carts := &stubCartService{
		addOrUpdateFunc: func(ctx context.Context, cmd services.UpsertCartItemCommand) (services.Cart, error) {
			got = cmd
			return services.Cart{ID: "cart_1", UserID: cmd.UserID, Currency: "usd"}, nil
		},
	}
	router := newCartRouter(carts)

	body := bytes.NewBufferString(`{"product_id":"prod_1","quantity":3}`)
	req := identityRequest(http.MethodPost, "/items", body, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.ProductID != "prod_1" || got.Quantity != 3 {
		t.Fatalf("unexpected command: %+v", got)
	}
	if got.ItemID != nil {
		t.Fatalf("expected nil item id for add, got %v", got.ItemID)
	}
}

func TestCartHandlersUpdateItemQuantity(t *testing.T) {
	var got services.UpsertCartItemCommand
	carts := &stubCartService{
		addOrUpdateFunc: func(ctx context.Context, cmd services.UpsertCartItemCommand) (services.Cart, error) {
			got = cmd
			return services.Cart{ID: "cart_1", UserID: cmd.UserID, Currency: "usd"}, nil
		},
	}
	router := newCartRouter(carts)

	body := bytes.NewBufferString(`{"quantity":5}`)
	req := identityRequest(http.MethodPatch, "/items/item_1", body, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.ItemID == nil || *got.ItemID != "item_1" {
		t.Fatalf("expected item id item_1, got %v", got.ItemID)
	}
	if got.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", got.Quantity)
	}
}

func TestCartHandlersAddItemOutOfStock(t *testing.T) {
	carts := &stubCartService{
		addOrUpdateFunc: func(ctx context.Context, cmd services.UpsertCartItemCommand) (services.Cart, error) {
			return services.Cart{}, services.ErrCartOutOfStock
		},
	}
	router := newCartRouter(carts)

	body := bytes.NewBufferString(`{"product_id":"prod_1","quantity":99}`)
	req := identityRequest(http.MethodPost, "/items", body, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "out_of_stock" {
		t.Fatalf("expected out_of_stock error, got %v", resp["error"])
	}
}

func TestCartHandlersApplyCouponBelowMinimum(t *testing.T) {
	carts := &stubCartService{
		applyCouponFunc: func(ctx context.Context, cmd services.ApplyCouponCommand) (services.Cart, error) {
			if cmd.Code != "GLOW10" {
				t.Fatalf("expected trimmed code GLOW10, got %q", cmd.Code)
			}
			return services.Cart{}, services.ErrCouponMinSubtotal
		},
	}
	router := newCartRouter(carts)

	body := bytes.NewBufferString(`{"code":" GLOW10 "}`)
	req := identityRequest(http.MethodPost, "/coupon", body, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestCartHandlersEstimate(t *testing.T) {
	carts := &stubCartService{
		estimateFunc: func(ctx context.Context, userID string) (services.PricingBreakdown, error) {
			return services.PricingBreakdown{
				Currency:       "usd",
				Subtotal:       8400,
				CouponDiscount: 840,
				Shipping:       500,
				Total:          8060,
				TotalQuantity:  2,
				Items: []services.ItemPricingBreakdown{{
					ItemID:    "item_1",
					ProductID: "prod_1",
					Quantity:  2,
					UnitPrice: 4200,
					LineTotal: 8400,
				}},
			}, nil
		},
	}
	router := newCartRouter(carts)

	req := identityRequest(http.MethodGet, "/totals", nil, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp pricingBreakdownPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 8060 || resp.CouponDiscount != 840 {
		t.Fatalf("unexpected breakdown: %+v", resp)
	}
	if len(resp.Items) != 1 || resp.Items[0].LineTotal != 8400 {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestCartHandlersClearCart(t *testing.T) {
	cleared := false
	carts := &stubCartService{
		clearCartFunc: func(ctx context.Context, userID string) error {
			cleared = true
			return nil
		},
	}
	router := newCartRouter(carts)

	req := identityRequest(http.MethodDelete, "/", nil, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if !cleared {
		t.Fatal("expected clear cart to be invoked")
	}
}
