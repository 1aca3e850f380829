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

// CheckoutHandlers exposes checkout session creation for authenticated users.
// Idempotency for the session endpoint is enforced by router middleware keyed
// on the Idempotency-Key header.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs handlers enforcing session authentication
// before invoking the checkout service.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
	}
}

// Routes wires the checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession())
	}
	r.Post("/sessions", h.createSession)
}

type createCheckoutSessionRequest struct {
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress *addressPayload `json:"shipping_address"`
	SuccessURL      string          `json:"success_url"`
	CancelURL       string          `json:"cancel_url"`
}

type checkoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	PSP         string `json:"psp"`
	RedirectURL string `json:"redirect_url,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "checkout is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createCheckoutSessionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if req.ShippingAddress == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "shipping address is required", http.StatusBadRequest))
		return
	}

	method := domain.PaymentMethodKind(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	switch method {
	case domain.PaymentMethodCard, domain.PaymentMethodCOD:
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "payment method must be card or cod", http.StatusBadRequest))
		return
	}

	session, err := h.checkout.CreateCheckoutSession(ctx, services.CreateCheckoutSessionCommand{
		UserID:          identity.UID,
		Email:           identity.Email,
		PaymentMethod:   method,
		ShippingAddress: req.ShippingAddress.toDomain(),
		SuccessURL:      strings.TrimSpace(req.SuccessURL),
		CancelURL:       strings.TrimSpace(req.CancelURL),
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	resp := checkoutSessionResponse{
		SessionID:   session.SessionID,
		PSP:         session.PSP,
		RedirectURL: session.RedirectURL,
	}
	if !session.ExpiresAt.IsZero() {
		resp.ExpiresAt = formatTime(session.ExpiresAt)
	}
	writeJSONResponse(w, http.StatusCreated, resp)
}

func (h *CheckoutHandlers) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutCartNotReady):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeCartNotFound, "cart is empty or missing", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOutOfStock, "insufficient stock", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodePaymentFailed, "payment provider rejected the session", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "checkout is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "checkout failed", http.StatusInternalServerError))
	}
}
