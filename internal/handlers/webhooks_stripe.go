package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/platform/httpx"
	"github.com/glowcart/api/internal/services"
)

// stripePayloadLimit caps webhook bodies well above Stripe's documented event
// sizes while still bounding memory.
const stripePayloadLimit = 1 << 20

// StripeWebhookHandlers verifies and dispatches Stripe events into the
// checkout and order services.
type StripeWebhookHandlers struct {
	checkout      services.CheckoutService
	orders        services.OrderService
	signingSecret func(ctx context.Context) (string, error)
	logger        func(ctx context.Context, event string, fields map[string]any)
}

// StripeWebhookOption customises webhook handler construction.
type StripeWebhookOption func(*StripeWebhookHandlers)

// WithStripeCheckoutService wires the checkout service.
func WithStripeCheckoutService(checkout services.CheckoutService) StripeWebhookOption {
	return func(h *StripeWebhookHandlers) { h.checkout = checkout }
}

// WithStripeOrderService wires the order service for refund settlement.
func WithStripeOrderService(orders services.OrderService) StripeWebhookOption {
	return func(h *StripeWebhookHandlers) { h.orders = orders }
}

// WithStripeSigningSecret wires the webhook signing secret resolver. A
// resolver lets the secret rotate without restarting the server.
func WithStripeSigningSecret(resolve func(ctx context.Context) (string, error)) StripeWebhookOption {
	return func(h *StripeWebhookHandlers) { h.signingSecret = resolve }
}

// WithStripeLogger wires the structured logging closure.
func WithStripeLogger(logger func(ctx context.Context, event string, fields map[string]any)) StripeWebhookOption {
	return func(h *StripeWebhookHandlers) { h.logger = logger }
}

// NewStripeWebhookHandlers constructs the Stripe webhook handlers.
func NewStripeWebhookHandlers(opts ...StripeWebhookOption) *StripeWebhookHandlers {
	h := &StripeWebhookHandlers{
		logger: func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes wires the webhook endpoint onto the provided router.
func (h *StripeWebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleEvent)
}

func (h *StripeWebhookHandlers) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := readLimitedBody(r, stripePayloadLimit)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	event, err := h.verify(ctx, payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger(ctx, "webhook.stripe.signature_invalid", map[string]any{"error": err.Error()})
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnauthenticated, "invalid webhook signature", http.StatusUnauthorized))
		return
	}

	if err := h.dispatch(ctx, event); err != nil {
		// Order mismatches are acknowledged so Stripe stops retrying; real
		// failures surface as 500 to trigger a retry.
		if errors.Is(err, services.ErrCheckoutOrderNotFound) || errors.Is(err, services.ErrOrderNotFound) || errors.Is(err, services.ErrRefundNotFound) {
			h.logger(ctx, "webhook.stripe.unmatched", map[string]any{
				"type":  string(event.Type),
				"event": event.ID,
				"error": err.Error(),
			})
			writeJSONResponse(w, http.StatusOK, map[string]any{"received": true})
			return
		}
		h.logger(ctx, "webhook.stripe.dispatch_failed", map[string]any{
			"type":  string(event.Type),
			"event": event.ID,
			"error": err.Error(),
		})
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to process event", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"received": true})
}

func (h *StripeWebhookHandlers) verify(ctx context.Context, payload []byte, signature string) (stripe.Event, error) {
	if h.signingSecret == nil {
		return stripe.Event{}, errors.New("webhook signing secret is not configured")
	}
	secret, err := h.signingSecret(ctx)
	if err != nil {
		return stripe.Event{}, err
	}
	return webhook.ConstructEvent(payload, signature, secret)
}

func (h *StripeWebhookHandlers) dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return h.handleSessionCompleted(ctx, event)
	case "payment_intent.succeeded":
		return h.handlePaymentSucceeded(ctx, event)
	case "payment_intent.payment_failed":
		return h.handlePaymentFailed(ctx, event)
	case "refund.updated", "charge.refund.updated":
		return h.handleRefundUpdated(ctx, event)
	default:
		h.logger(ctx, "webhook.stripe.ignored", map[string]any{"type": string(event.Type)})
		return nil
	}
}

func (h *StripeWebhookHandlers) handleSessionCompleted(ctx context.Context, event stripe.Event) error {
	if h.checkout == nil {
		return errors.New("checkout service is not configured")
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return err
	}

	cmd := services.PaymentSucceededCommand{SessionID: session.ID}
	if session.PaymentIntent != nil {
		cmd.PaymentIntentID = session.PaymentIntent.ID
	}
	_, err := h.checkout.HandlePaymentSucceeded(ctx, cmd)
	return err
}

func (h *StripeWebhookHandlers) handlePaymentSucceeded(ctx context.Context, event stripe.Event) error {
	if h.checkout == nil {
		return errors.New("checkout service is not configured")
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return err
	}

	_, err := h.checkout.HandlePaymentSucceeded(ctx, services.PaymentSucceededCommand{
		PaymentIntentID: intent.ID,
	})
	return err
}

func (h *StripeWebhookHandlers) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	if h.checkout == nil {
		return errors.New("checkout service is not configured")
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return err
	}

	reason := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}
	_, err := h.checkout.HandlePaymentFailed(ctx, services.PaymentFailedCommand{
		PaymentIntentID: intent.ID,
		Reason:          reason,
	})
	return err
}

// handleRefundUpdated settles refunds previously recorded by staff. The
// outbound refund call stamps orderId/refundId metadata so the event can be
// matched back.
func (h *StripeWebhookHandlers) handleRefundUpdated(ctx context.Context, event stripe.Event) error {
	if h.orders == nil {
		return errors.New("order service is not configured")
	}
	var refund stripe.Refund
	if err := json.Unmarshal(event.Data.Raw, &refund); err != nil {
		return err
	}

	orderID := refund.Metadata["orderId"]
	refundID := refund.Metadata["refundId"]
	if orderID == "" || refundID == "" {
		h.logger(ctx, "webhook.stripe.refund_unlabelled", map[string]any{"refund": refund.ID})
		return nil
	}

	var status domain.RefundStatus
	switch refund.Status {
	case stripe.RefundStatusSucceeded:
		status = domain.RefundStatusSucceeded
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		status = domain.RefundStatusFailed
	default:
		// Pending refunds settle on a later event.
		return nil
	}

	stripeRefundID := refund.ID
	_, err := h.orders.SettleRefund(ctx, services.SettleRefundCommand{
		OrderID:        orderID,
		RefundID:       refundID,
		Status:         status,
		StripeRefundID: &stripeRefundID,
		ProcessedAt:    time.Unix(event.Created, 0).UTC(),
	})
	return err
}
