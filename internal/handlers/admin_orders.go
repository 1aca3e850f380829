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

// AdminOrderHandlers exposes the staff order management endpoints: listing,
// status transitions, return resolution, manual refunds, and audit log reads.
type AdminOrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
	system services.SystemService
}

// NewAdminOrderHandlers constructs the admin order handlers.
func NewAdminOrderHandlers(authn *auth.Authenticator, orders services.OrderService, system services.SystemService) *AdminOrderHandlers {
	return &AdminOrderHandlers{
		authn:  authn,
		orders: orders,
		system: system,
	}
}

// Routes wires the admin order endpoints onto the provided router.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession(auth.RoleAdmin, auth.RoleStaff))
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}/status", h.transitionStatus)
	r.Post("/orders/{orderID}/return/approve", h.approveReturn)
	r.Post("/orders/{orderID}/return/reject", h.rejectReturn)
	r.Post("/orders/{orderID}/return/complete", h.completeReturn)
	r.Post("/orders/{orderID}/refunds", h.recordRefund)
	r.Get("/audit-logs", h.listAuditLogs)
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireOrders(w, r) {
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

	filter := services.OrderListFilter{
		UserID:     strings.TrimSpace(r.URL.Query().Get("user_id")),
		Status:     queryValues(r, "status"),
		DateRange:  dateRange,
		Pagination: pager,
	}
	if intent := strings.TrimSpace(r.URL.Query().Get("payment_intent_id")); intent != "" {
		filter.PaymentIntentID = &intent
	}

	page, err := h.orders.ListOrders(ctx, filter)
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

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireOrders(w, r) {
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetailPayload(order))
}

type transitionStatusRequest struct {
	Status         string           `json:"status"`
	Reason         string           `json:"reason"`
	ExpectedStatus string           `json:"expected_status"`
	Tracking       *trackingPayload `json:"tracking"`
}

func (h *AdminOrderHandlers) transitionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireOrders(w, r) {
		return
	}

	var req transitionStatusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cmd := services.OrderStatusTransitionCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		TargetStatus: domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		ActorID:      identity.UID,
		Reason:       strings.TrimSpace(req.Reason),
	}
	if expected := strings.ToLower(strings.TrimSpace(req.ExpectedStatus)); expected != "" {
		status := domain.OrderStatus(expected)
		cmd.ExpectedStatus = &status
	}
	if req.Tracking != nil {
		cmd.Tracking = &domain.Tracking{
			Carrier: strings.TrimSpace(req.Tracking.Carrier),
			Number:  strings.TrimSpace(req.Tracking.Number),
			URL:     strings.TrimSpace(req.Tracking.URL),
		}
	}

	order, err := h.orders.TransitionStatus(ctx, cmd)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetailPayload(order))
}

func (h *AdminOrderHandlers) approveReturn(w http.ResponseWriter, r *http.Request) {
	h.resolveReturn(w, r, services.ReturnResolutionApprove)
}

func (h *AdminOrderHandlers) rejectReturn(w http.ResponseWriter, r *http.Request) {
	h.resolveReturn(w, r, services.ReturnResolutionReject)
}

func (h *AdminOrderHandlers) completeReturn(w http.ResponseWriter, r *http.Request) {
	h.resolveReturn(w, r, services.ReturnResolutionComplete)
}

type resolveReturnRequest struct {
	Notes string `json:"notes"`
}

func (h *AdminOrderHandlers) resolveReturn(w http.ResponseWriter, r *http.Request, action services.ReturnResolution) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireOrders(w, r) {
		return
	}

	var req resolveReturnRequest
	if err := decodeJSONBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(w, r, err)
		return
	}

	order, err := h.orders.ResolveReturn(ctx, services.ResolveReturnCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ActorID: identity.UID,
		Action:  action,
		Notes:   strings.TrimSpace(req.Notes),
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetailPayload(order))
}

type recordRefundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h *AdminOrderHandlers) recordRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok || !h.requireOrders(w, r) {
		return
	}

	var req recordRefundRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	order, err := h.orders.RecordRefund(ctx, services.RecordRefundCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ActorID: identity.UID,
		Amount:  req.Amount,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetailPayload(order))
}

func (h *AdminOrderHandlers) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "audit logs are unavailable", http.StatusServiceUnavailable))
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

	page, err := h.system.ListAuditLogs(ctx, services.AuditLogFilter{
		TargetRef:  strings.TrimSpace(r.URL.Query().Get("target_ref")),
		Actor:      strings.TrimSpace(r.URL.Query().Get("actor")),
		ActorType:  strings.TrimSpace(r.URL.Query().Get("actor_type")),
		Action:     strings.TrimSpace(r.URL.Query().Get("action")),
		DateRange:  dateRange,
		Pagination: pager,
	})
	if err != nil {
		if errors.Is(err, services.ErrAuditLogUnavailable) {
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "audit logs are unavailable", http.StatusServiceUnavailable))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to load audit logs", http.StatusInternalServerError))
		return
	}

	items := make([]map[string]any, 0, len(page.Items))
	for _, entry := range page.Items {
		item := map[string]any{
			"id":         entry.ID,
			"actor":      entry.Actor,
			"actor_type": entry.ActorType,
			"action":     entry.Action,
			"target_ref": entry.TargetRef,
			"severity":   entry.Severity,
			"created_at": formatTime(entry.CreatedAt),
		}
		if len(entry.Metadata) > 0 {
			item["metadata"] = entry.Metadata
		}
		items = append(items, item)
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":           items,
		"next_page_token": page.NextPageToken,
	})
}

func (h *AdminOrderHandlers) requireOrders(w http.ResponseWriter, r *http.Request) bool {
	if h.orders == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnavailable, "orders are unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminOrderHandlers) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderNotFound, "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOrderInvalidTransition, err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrReturnNotEligible):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeReturnNotEligible, "order has no pending return", http.StatusConflict))
	case errors.Is(err, services.ErrRefundNotAllowed):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeRefundNotAllowed, err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeConflict, "order was modified concurrently; retry", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "order operation failed", http.StatusInternalServerError))
	}
}
