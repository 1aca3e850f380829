package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/glowcart/api/internal/platform/auth"
	"github.com/glowcart/api/internal/platform/httpx"
	"github.com/glowcart/api/internal/services"
)

// CartHandlers exposes the authenticated cart endpoints for the current user.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs handlers enforcing session authentication before
// invoking the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
	}
}

// Routes wires the cart endpoints, mounted under /me/cart.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.upsertItem)
	r.Patch("/items/{itemID}", h.updateItem)
	r.Delete("/items/{itemID}", h.removeItem)
	r.Post("/coupon", h.applyCoupon)
	r.Delete("/coupon", h.removeCoupon)
	r.Get("/totals", h.estimate)
}

// Payloads -------------------------------------------------------------------

type cartItemPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	AddedAt   string `json:"added_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type cartEstimatePayload struct {
	Subtotal       int64 `json:"subtotal"`
	ItemDiscount   int64 `json:"item_discount"`
	CouponDiscount int64 `json:"coupon_discount"`
	Shipping       int64 `json:"shipping"`
	Total          int64 `json:"total"`
}

type cartPayload struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	Currency   string               `json:"currency"`
	CouponCode string               `json:"coupon_code,omitempty"`
	Items      []cartItemPayload    `json:"items"`
	Estimate   *cartEstimatePayload `json:"estimate,omitempty"`
	UpdatedAt  string               `json:"updated_at,omitempty"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	payload := cartPayload{
		ID:       cart.ID,
		UserID:   cart.UserID,
		Currency: strings.ToUpper(cart.Currency),
		Items:    make([]cartItemPayload, 0, len(cart.Items)),
	}
	if cart.CouponCode != nil {
		payload.CouponCode = *cart.CouponCode
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(cart.UpdatedAt)
	}
	for _, item := range cart.Items {
		entry := cartItemPayload{
			ID:        item.ID,
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Title:     item.Title,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			UpdatedAt: formatTimePtr(item.UpdatedAt),
		}
		if !item.AddedAt.IsZero() {
			entry.AddedAt = formatTime(item.AddedAt)
		}
		payload.Items = append(payload.Items, entry)
	}
	if cart.Estimate != nil {
		payload.Estimate = &cartEstimatePayload{
			Subtotal:       cart.Estimate.Subtotal,
			ItemDiscount:   cart.Estimate.ItemDiscount,
			CouponDiscount: cart.Estimate.CouponDiscount,
			Shipping:       cart.Estimate.Shipping,
			Total:          cart.Estimate.Total,
		}
	}
	return payload
}

type itemBreakdownPayload struct {
	ItemID         string `json:"item_id"`
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPrice      int64  `json:"unit_price"`
	DiscountedUnit int64  `json:"discounted_unit"`
	Discount       int64  `json:"discount"`
	LineTotal      int64  `json:"line_total"`
	ShippingCharge int64  `json:"shipping_charge"`
	ShippingWaived bool   `json:"shipping_waived"`
	ShippingReason string `json:"shipping_reason,omitempty"`
}

type pricingBreakdownPayload struct {
	Currency       string                 `json:"currency"`
	Subtotal       int64                  `json:"subtotal"`
	ItemDiscount   int64                  `json:"item_discount"`
	CouponDiscount int64                  `json:"coupon_discount"`
	Shipping       int64                  `json:"shipping"`
	Total          int64                  `json:"total"`
	TotalQuantity  int                    `json:"total_quantity"`
	Items          []itemBreakdownPayload `json:"items"`
}

func buildPricingPayload(breakdown services.PricingBreakdown) pricingBreakdownPayload {
	payload := pricingBreakdownPayload{
		Currency:       strings.ToUpper(breakdown.Currency),
		Subtotal:       breakdown.Subtotal,
		ItemDiscount:   breakdown.ItemDiscount,
		CouponDiscount: breakdown.CouponDiscount,
		Shipping:       breakdown.Shipping,
		Total:          breakdown.Total,
		TotalQuantity:  breakdown.TotalQuantity,
		Items:          make([]itemBreakdownPayload, 0, len(breakdown.Items)),
	}
	for _, item := range breakdown.Items {
		payload.Items = append(payload.Items, itemBreakdownPayload(item))
	}
	return payload
}

// Handlers -------------------------------------------------------------------

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateCart(r.Context(), identity.UID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(r.Context(), identity.UID); err != nil {
		h.writeCartError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type upsertCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandlers) upsertItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	var req upsertCartItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cart, err := h.carts.AddOrUpdateItem(r.Context(), services.UpsertCartItemCommand{
		UserID:    identity.UID,
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeInvalidRequest, "item id is required", http.StatusBadRequest))
		return
	}

	var req updateCartItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cart, err := h.carts.AddOrUpdateItem(r.Context(), services.UpsertCartItemCommand{
		UserID:   identity.UID,
		ItemID:   &itemID,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeInvalidRequest, "item id is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), services.RemoveCartItemCommand{
		UserID: identity.UID,
		ItemID: itemID,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *CartHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	var req applyCouponRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cart, err := h.carts.ApplyCoupon(r.Context(), services.ApplyCouponCommand{
		UserID: identity.UID,
		Code:   strings.TrimSpace(req.Code),
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveCoupon(r.Context(), identity.UID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) estimate(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	breakdown, err := h.carts.Estimate(r.Context(), identity.UID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPricingPayload(breakdown))
}

func (h *CartHandlers) requireCart(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return nil, false
	}
	if h.carts == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "cart is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	return identity, true
}

func (h *CartHandlers) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeCartNotFound, "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeCartItemNotFound, "cart item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeProductNotFound, "product is unavailable", http.StatusConflict))
	case errors.Is(err, services.ErrCartOutOfStock):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOutOfStock, "insufficient stock", http.StatusConflict))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeCouponNotFound, "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponExpired), errors.Is(err, services.ErrCouponInactive):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeCouponExpired, "coupon is no longer valid", http.StatusConflict))
	case errors.Is(err, services.ErrCouponMinSubtotal):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeCouponMinSubtotal, "cart subtotal below coupon minimum", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "cart is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "cart operation failed", http.StatusInternalServerError))
	}
}
