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

// AdminCatalogHandlers exposes the staff product and coupon management
// endpoints.
type AdminCatalogHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
	coupons services.CouponService
}

// NewAdminCatalogHandlers constructs the admin catalog handlers.
func NewAdminCatalogHandlers(authn *auth.Authenticator, catalog services.CatalogService, coupons services.CouponService) *AdminCatalogHandlers {
	return &AdminCatalogHandlers{
		authn:   authn,
		catalog: catalog,
		coupons: coupons,
	}
}

// Routes wires the admin catalog endpoints onto the provided router.
func (h *AdminCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession(auth.RoleAdmin, auth.RoleStaff))
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)
	r.Get("/coupons", h.listCoupons)
	r.Post("/coupons", h.upsertCoupon)
	r.Put("/coupons/{couponID}", h.upsertCouponByID)
	r.Delete("/coupons/{couponID}", h.deleteCoupon)
}

// Products -------------------------------------------------------------------

type productRequest struct {
	Slug         string                 `json:"slug"`
	SKU          string                 `json:"sku"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Brand        string                 `json:"brand"`
	Category     string                 `json:"category"`
	Price        int64                  `json:"price"`
	Currency     string                 `json:"currency"`
	Discount     *discountPayload       `json:"discount"`
	Shipping     *shippingPolicyPayload `json:"shipping"`
	ReturnPolicy *returnPolicyPayload   `json:"return_policy"`
	Stock        int                    `json:"stock"`
	Status       string                 `json:"status"`
	Images       []string               `json:"images"`
	Tags         []string               `json:"tags"`
}

func (req productRequest) toDomain(productID string) domain.Product {
	product := domain.Product{
		ID:          productID,
		Slug:        strings.TrimSpace(req.Slug),
		SKU:         strings.TrimSpace(req.SKU),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Brand:       strings.TrimSpace(req.Brand),
		Category:    strings.TrimSpace(req.Category),
		Price:       req.Price,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		Stock:       req.Stock,
		Status:      domain.ProductStatus(strings.TrimSpace(req.Status)),
		Images:      req.Images,
		Tags:        req.Tags,
	}
	if req.Discount != nil {
		product.Discount = &domain.Discount{
			Type:  domain.DiscountType(req.Discount.Type),
			Value: req.Discount.Value,
		}
	}
	if req.Shipping != nil {
		product.Shipping = &domain.ShippingPolicy{
			Charges:                 req.Shipping.Charges,
			FreeShippingThreshold:   req.Shipping.FreeShippingThreshold,
			FreeShippingMinQuantity: req.Shipping.FreeShippingMinQuantity,
		}
	}
	if req.ReturnPolicy != nil {
		product.ReturnPolicy = domain.ReturnPolicy{
			Returnable:       req.ReturnPolicy.Returnable,
			ReturnWindowDays: req.ReturnPolicy.ReturnWindowDays,
		}
	}
	return product
}

func (h *AdminCatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireCatalog(w, r) {
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.ProductListFilter{
		Status:     queryValues(r, "status"),
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
		h.writeCatalogError(w, r, err)
		return
	}

	resp := productListResponse{Items: make([]productSummaryPayload, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, product := range page.Items {
		resp.Items = append(resp.Items, buildProductSummaryPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *AdminCatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireCatalog(w, r) {
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductDetailPayload(product))
}

func (h *AdminCatalogHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireCatalog(w, r) {
		return
	}

	var req productRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	product, err := h.catalog.CreateProduct(ctx, services.UpsertProductCommand{
		Product: req.toDomain(""),
		ActorID: identity.UID,
	})
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildProductDetailPayload(product))
}

func (h *AdminCatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireCatalog(w, r) {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	var req productRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(ctx, services.UpsertProductCommand{
		Product: req.toDomain(productID),
		ActorID: identity.UID,
	})
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductDetailPayload(product))
}

func (h *AdminCatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireCatalog(w, r) {
		return
	}

	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productID")); err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) requireCatalog(w http.ResponseWriter, r *http.Request) bool {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "catalog is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminCatalogHandlers) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeProductNotFound, "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeConflict, err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "catalog is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "catalog operation failed", http.StatusInternalServerError))
	}
}

// Coupons --------------------------------------------------------------------

type couponRequest struct {
	Code        string `json:"code"`
	Type        string `json:"type"`
	Value       int64  `json:"value"`
	MinSubtotal int64  `json:"min_subtotal"`
	Active      bool   `json:"active"`
	ExpiresAt   string `json:"expires_at"`
}

type couponPayload struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Type        string `json:"type"`
	Value       int64  `json:"value"`
	MinSubtotal int64  `json:"min_subtotal"`
	Active      bool   `json:"active"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func buildCouponPayload(coupon services.Coupon) couponPayload {
	payload := couponPayload{
		ID:          coupon.ID,
		Code:        coupon.Code,
		Type:        string(coupon.Type),
		Value:       coupon.Value,
		MinSubtotal: coupon.MinSubtotal,
		Active:      coupon.Active,
		ExpiresAt:   formatTimePtr(coupon.ExpiresAt),
	}
	if !coupon.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(coupon.CreatedAt)
	}
	if !coupon.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(coupon.UpdatedAt)
	}
	return payload
}

func (h *AdminCatalogHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireCoupons(w, r) {
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.coupons.List(ctx, pager)
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}

	items := make([]couponPayload, 0, len(page.Items))
	for _, coupon := range page.Items {
		items = append(items, buildCouponPayload(coupon))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":           items,
		"next_page_token": page.NextPageToken,
	})
}

func (h *AdminCatalogHandlers) upsertCoupon(w http.ResponseWriter, r *http.Request) {
	h.saveCoupon(w, r, "")
}

func (h *AdminCatalogHandlers) upsertCouponByID(w http.ResponseWriter, r *http.Request) {
	h.saveCoupon(w, r, strings.TrimSpace(chi.URLParam(r, "couponID")))
}

func (h *AdminCatalogHandlers) saveCoupon(w http.ResponseWriter, r *http.Request, couponID string) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireCoupons(w, r) {
		return
	}

	var req couponRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	coupon := domain.Coupon{
		ID:          couponID,
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Type:        domain.DiscountType(strings.TrimSpace(req.Type)),
		Value:       req.Value,
		MinSubtotal: req.MinSubtotal,
		Active:      req.Active,
	}
	if raw := strings.TrimSpace(req.ExpiresAt); raw != "" {
		expires, err := parseRFC3339(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "expires_at must be an RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		coupon.ExpiresAt = &expires
	}

	saved, err := h.coupons.Upsert(ctx, services.UpsertCouponCommand{
		Coupon:  coupon,
		ActorID: identity.UID,
	})
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}

	status := http.StatusOK
	if couponID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, buildCouponPayload(saved))
}

func (h *AdminCatalogHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireCoupons(w, r) {
		return
	}

	if err := h.coupons.Delete(ctx, chi.URLParam(r, "couponID")); err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) requireCoupons(w http.ResponseWriter, r *http.Request) bool {
	if h.coupons == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "coupons are unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminCatalogHandlers) writeCouponError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeCouponNotFound, "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "coupons are unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "coupon operation failed", http.StatusInternalServerError))
	}
}
