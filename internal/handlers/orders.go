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

// OrderHandlers exposes the authenticated customer order endpoints: history,
// detail, cancellation, the return workflow, and post-delivery reviews.
type OrderHandlers struct {
	authn   *auth.Authenticator
	orders  services.OrderService
	reviews services.ReviewService
}

// NewOrderHandlers constructs handlers enforcing session authentication
// before invoking the order service.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, reviews services.ReviewService) *OrderHandlers {
	return &OrderHandlers{
		authn:   authn,
		orders:  orders,
		reviews: reviews,
	}
}

// Routes wires the customer order endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession())
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
	r.Post("/{orderID}/return", h.requestReturn)
	r.Delete("/{orderID}/return", h.cancelReturn)
	r.Post("/{orderID}/reviews", h.createReview)
}

// Payloads -------------------------------------------------------------------

type orderTotalsPayload struct {
	Subtotal       int64 `json:"subtotal"`
	ItemDiscount   int64 `json:"item_discount"`
	CouponDiscount int64 `json:"coupon_discount"`
	Shipping       int64 `json:"shipping"`
	Total          int64 `json:"total"`
}

type orderItemPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

type trackingPayload struct {
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
	URL     string `json:"url,omitempty"`
}

type bankDetailsPayload struct {
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bank_name,omitempty"`
}

type orderReturnPayload struct {
	Status      string   `json:"status"`
	Reason      string   `json:"reason"`
	Notes       string   `json:"notes,omitempty"`
	ItemIDs     []string `json:"item_ids,omitempty"`
	RequestedAt string   `json:"requested_at"`
	ApprovedAt  string   `json:"approved_at,omitempty"`
	RejectedAt  string   `json:"rejected_at,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
	CancelledAt string   `json:"cancelled_at,omitempty"`
}

type refundPayload struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	ProcessedAt string `json:"processed_at,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type orderSummaryPayload struct {
	ID           string             `json:"id"`
	OrderNumber  string             `json:"order_number"`
	Status       string             `json:"status"`
	Currency     string             `json:"currency"`
	Totals       orderTotalsPayload `json:"totals"`
	ItemCount    int                `json:"item_count"`
	ReturnStatus string             `json:"return_status,omitempty"`
	CreatedAt    string             `json:"created_at,omitempty"`
	UpdatedAt    string             `json:"updated_at,omitempty"`
}

type orderDetailPayload struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          string              `json:"status"`
	Currency        string              `json:"currency"`
	Totals          orderTotalsPayload  `json:"totals"`
	CouponCode      string              `json:"coupon_code,omitempty"`
	Items           []orderItemPayload  `json:"items"`
	PaymentMethod   string              `json:"payment_method"`
	ShippingAddress *addressPayload     `json:"shipping_address,omitempty"`
	Tracking        *trackingPayload    `json:"tracking,omitempty"`
	Return          *orderReturnPayload `json:"return,omitempty"`
	Refunds         []refundPayload     `json:"refunds,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	CreatedAt       string              `json:"created_at,omitempty"`
	UpdatedAt       string              `json:"updated_at,omitempty"`
	ConfirmedAt     string              `json:"confirmed_at,omitempty"`
	ShippedAt       string              `json:"shipped_at,omitempty"`
	DeliveredAt     string              `json:"delivered_at,omitempty"`
	CancelledAt     string              `json:"cancelled_at,omitempty"`
	ReturnedAt      string              `json:"returned_at,omitempty"`
	RefundedAt      string              `json:"refunded_at,omitempty"`
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

func buildOrderTotalsPayload(totals domain.OrderTotals) orderTotalsPayload {
	return orderTotalsPayload(totals)
}

func buildOrderSummaryPayload(order services.Order) orderSummaryPayload {
	payload := orderSummaryPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Currency:    strings.ToUpper(order.Currency),
		Totals:      buildOrderTotalsPayload(order.Totals),
		ItemCount:   len(order.Items),
	}
	if order.Return != nil {
		payload.ReturnStatus = string(order.Return.Status)
	}
	if !order.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(order.CreatedAt)
	}
	if !order.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(order.UpdatedAt)
	}
	return payload
}

func buildOrderDetailPayload(order services.Order) orderDetailPayload {
	payload := orderDetailPayload{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		Currency:      strings.ToUpper(order.Currency),
		Totals:        buildOrderTotalsPayload(order.Totals),
		Items:         make([]orderItemPayload, 0, len(order.Items)),
		PaymentMethod: string(order.PaymentMethod),
		ConfirmedAt:   formatTimePtr(order.ConfirmedAt),
		ShippedAt:     formatTimePtr(order.ShippedAt),
		DeliveredAt:   formatTimePtr(order.DeliveredAt),
		CancelledAt:   formatTimePtr(order.CancelledAt),
		ReturnedAt:    formatTimePtr(order.ReturnedAt),
		RefundedAt:    formatTimePtr(order.RefundedAt),
	}
	if order.CouponCode != nil {
		payload.CouponCode = *order.CouponCode
	}
	if order.CancelReason != nil {
		payload.CancelReason = *order.CancelReason
	}
	if !order.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(order.CreatedAt)
	}
	if !order.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(order.UpdatedAt)
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ID:        item.ID,
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Title:     item.Title,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	if order.ShippingAddress != nil {
		addr := buildAddressPayload(*order.ShippingAddress)
		payload.ShippingAddress = &addr
	}
	if order.Tracking != nil {
		payload.Tracking = &trackingPayload{
			Carrier: order.Tracking.Carrier,
			Number:  order.Tracking.Number,
			URL:     order.Tracking.URL,
		}
	}
	if order.Return != nil {
		payload.Return = buildOrderReturnPayload(*order.Return)
	}
	for _, refund := range order.Refunds {
		entry := refundPayload{
			ID:          refund.ID,
			Amount:      refund.Amount,
			Currency:    strings.ToUpper(refund.Currency),
			Status:      string(refund.Status),
			Reason:      refund.Reason,
			ProcessedAt: formatTimePtr(refund.ProcessedAt),
		}
		if !refund.CreatedAt.IsZero() {
			entry.CreatedAt = formatTime(refund.CreatedAt)
		}
		payload.Refunds = append(payload.Refunds, entry)
	}
	return payload
}

func buildOrderReturnPayload(ret domain.OrderReturn) *orderReturnPayload {
	return &orderReturnPayload{
		Status:      string(ret.Status),
		Reason:      ret.Reason,
		Notes:       ret.Notes,
		ItemIDs:     ret.ItemIDs,
		RequestedAt: formatTime(ret.RequestedAt),
		ApprovedAt:  formatTimePtr(ret.ApprovedAt),
		RejectedAt:  formatTimePtr(ret.RejectedAt),
		CompletedAt: formatTimePtr(ret.CompletedAt),
		CancelledAt: formatTimePtr(ret.CancelledAt),
	}
}

// Handlers -------------------------------------------------------------------

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}
	dateRange, err := parseDateRange(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.orders.ListOrders(ctx, services.OrderListFilter{
		UserID:     identity.UID,
		Status:     queryValues(r, "status"),
		DateRange:  dateRange,
		Pagination: pager,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	resp := orderListResponse{Items: make([]orderSummaryPayload, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, order := range page.Items {
		resp.Items = append(resp.Items, buildOrderSummaryPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}

	order, ok := h.loadOwnedOrder(w, r, identity)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetailPayload(order))
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadOwnedOrder(w, r, identity); !ok {
		return
	}

	var req cancelOrderRequest
	if err := decodeJSONBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(w, r, err)
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ActorID: identity.UID,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetailPayload(order))
}

type requestReturnRequest struct {
	Reason      string              `json:"reason"`
	Notes       string              `json:"notes"`
	ItemIDs     []string            `json:"item_ids"`
	BankDetails *bankDetailsPayload `json:"bank_details"`
}

func (h *OrderHandlers) requestReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadOwnedOrder(w, r, identity); !ok {
		return
	}

	var req requestReturnRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cmd := services.RequestReturnCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
		Reason:  strings.TrimSpace(req.Reason),
		Notes:   strings.TrimSpace(req.Notes),
		ItemIDs: req.ItemIDs,
	}
	if req.BankDetails != nil {
		cmd.BankDetails = &domain.BankDetails{
			AccountHolder: strings.TrimSpace(req.BankDetails.AccountHolder),
			AccountNumber: strings.TrimSpace(req.BankDetails.AccountNumber),
			IFSC:          strings.ToUpper(strings.TrimSpace(req.BankDetails.IFSC)),
			BankName:      strings.TrimSpace(req.BankDetails.BankName),
		}
	}

	order, err := h.orders.RequestReturn(ctx, cmd)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetailPayload(order))
}

func (h *OrderHandlers) cancelReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadOwnedOrder(w, r, identity); !ok {
		return
	}

	order, err := h.orders.CancelReturn(ctx, services.CancelReturnCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetailPayload(order))
}

type createReviewRequest struct {
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

func (h *OrderHandlers) createReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "reviews are unavailable", http.StatusServiceUnavailable))
		return
	}
	if _, ok := h.loadOwnedOrder(w, r, identity); !ok {
		return
	}

	var req createReviewRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	review, err := h.reviews.Create(ctx, services.CreateReviewCommand{
		OrderID:   chi.URLParam(r, "orderID"),
		ProductID: strings.TrimSpace(req.ProductID),
		UserID:    identity.UID,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Body:      strings.TrimSpace(req.Body),
	})
	if err != nil {
		h.writeReviewError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildReviewPayload(review))
}

// loadOwnedOrder fetches the order and hides other users' orders behind 404.
func (h *OrderHandlers) loadOwnedOrder(w http.ResponseWriter, r *http.Request, identity *auth.Identity) (services.Order, bool) {
	ctx := r.Context()
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "order id is required", http.StatusBadRequest))
		return services.Order{}, false
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		h.writeOrderError(w, r, err)
		return services.Order{}, false
	}
	if order.UserID != identity.UID {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderNotFound, "order not found", http.StatusNotFound))
		return services.Order{}, false
	}
	return order, true
}

func (h *OrderHandlers) requireOrders(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return nil, false
	}
	if h.orders == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "orders are unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	return identity, true
}

func (h *OrderHandlers) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderNotFound, "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderNotCancellable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderNotCancellable, "order can no longer be cancelled", http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderInvalidTransition, "order state does not allow this operation", http.StatusConflict))
	case errors.Is(err, services.ErrReturnNotEligible):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeReturnNotEligible, "order is not eligible for return", http.StatusConflict))
	case errors.Is(err, services.ErrReturnWindowExpired):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeReturnWindowExpired, "return window has expired", http.StatusConflict))
	case errors.Is(err, services.ErrReturnAlreadyRequested):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeReturnAlreadyRequested, "a return is already in progress", http.StatusConflict))
	case errors.Is(err, services.ErrReturnNotCancellable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeReturnNotCancellable, "return can no longer be cancelled", http.StatusConflict))
	case errors.Is(err, services.ErrBankDetailsRequired):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeBankDetailsRequired, "bank details are required for cash on delivery refunds", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeConflict, "order was modified concurrently; retry", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "order operation failed", http.StatusInternalServerError))
	}
}

func (h *OrderHandlers) writeReviewError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReviewNotEligible):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeReviewNotAllowed, "order must be delivered before reviewing", http.StatusConflict))
	case errors.Is(err, services.ErrReviewConflict):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeReviewExists, "a review for this product already exists", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "review operation failed", http.StatusInternalServerError))
	}
}
