package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	stripe "github.com/stripe/stripe-go/v78"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/services"
)

const testStripeSecret = "whsec_test_secret"

func newStripeRouter(opts ...StripeWebhookOption) chi.Router {
	base := []StripeWebhookOption{
		WithStripeSigningSecret(func(ctx context.Context) (string, error) {
			return testStripeSecret, nil
		}),
	}
	router := chi.NewRouter()
	NewStripeWebhookHandlers(append(base, opts...)...).Routes(router)
	return router
}

func signedStripeRequest(t *testing.T, eventType, object string) *http.Request {
	t.Helper()
	now := time.Now().Unix()
	payload := fmt.Sprintf(
		`{"id":"evt_1","api_version":%q,"created":%d,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, now, eventType, object,
	)
	mac := hmac.New(sha256.New, []byte(testStripeSecret))
	fmt.Fprintf(mac, "%d.%s", now, payload)

	req := httptest.NewRequest(http.MethodPost, "/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", now, hex.EncodeToString(mac.Sum(nil))))
	return req
}

func TestStripeWebhookSessionCompleted(t *testing.T) {
	var got services.PaymentSucceededCommand
	checkout := &stubCheckoutService{
		paymentSucceededFunc: func(ctx context.Context, cmd services.PaymentSucceededCommand) (services.Order, error) {
			got = cmd
			return sampleOrder("usr_1"), nil
		},
	}
	router := newStripeRouter(WithStripeCheckoutService(checkout))

	req := signedStripeRequest(t, "checkout.session.completed",
		`{"id":"cs_test_1","payment_intent":{"id":"pi_123"}}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.SessionID != "cs_test_1" || got.PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected command: %+v", got)
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["received"] != true {
		t.Fatalf("expected ack, got %v", resp)
	}
}

func TestStripeWebhookPaymentFailed(t *testing.T) {
	var got services.PaymentFailedCommand
	checkout := &stubCheckoutService{
		paymentFailedFunc: func(ctx context.Context, cmd services.PaymentFailedCommand) (services.Order, error) {
			got = cmd
			return sampleOrder("usr_1"), nil
		},
	}
	router := newStripeRouter(WithStripeCheckoutService(checkout))

	req := signedStripeRequest(t, "payment_intent.payment_failed",
		`{"id":"pi_456","last_payment_error":{"message":"card declined"}}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.PaymentIntentID != "pi_456" || got.Reason != "card declined" {
		t.Fatalf("unexpected command: %+v", got)
	}
}

func TestStripeWebhookRefundSettled(t *testing.T) {
	var got services.SettleRefundCommand
	orders := &stubOrderService{
		settleRefundFunc: func(ctx context.Context, cmd services.SettleRefundCommand) (services.Order, error) {
			got = cmd
			return sampleOrder("usr_1"), nil
		},
	}
	router := newStripeRouter(WithStripeOrderService(orders))

	req := signedStripeRequest(t, "refund.updated",
		`{"id":"re_789","status":"succeeded","metadata":{"orderId":"ord_1","refundId":"ref_1"}}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.OrderID != "ord_1" || got.RefundID != "ref_1" {
		t.Fatalf("unexpected command: %+v", got)
	}
	if got.Status != domain.RefundStatusSucceeded {
		t.Fatalf("expected succeeded status, got %q", got.Status)
	}
	if got.StripeRefundID == nil || *got.StripeRefundID != "re_789" {
		t.Fatalf("expected stripe refund id, got %v", got.StripeRefundID)
	}
}

func TestStripeWebhookRefundPendingIgnored(t *testing.T) {
	orders := &stubOrderService{
		settleRefundFunc: func(ctx context.Context, cmd services.SettleRefundCommand) (services.Order, error) {
			t.Fatal("pending refunds should not settle")
			return services.Order{}, nil
		},
	}
	router := newStripeRouter(WithStripeOrderService(orders))

	req := signedStripeRequest(t, "refund.updated",
		`{"id":"re_790","status":"pending","metadata":{"orderId":"ord_1","refundId":"ref_1"}}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestStripeWebhookUnmatchedOrderAcked(t *testing.T) {
	checkout := &stubCheckoutService{
		paymentSucceededFunc: func(ctx context.Context, cmd services.PaymentSucceededCommand) (services.Order, error) {
			return services.Order{}, services.ErrCheckoutOrderNotFound
		},
	}
	router := newStripeRouter(WithStripeCheckoutService(checkout))

	req := signedStripeRequest(t, "payment_intent.succeeded", `{"id":"pi_orphan"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected acknowledgement for unmatched order, got %d", rr.Code)
	}
}

func TestStripeWebhookBadSignature(t *testing.T) {
	checkout := &stubCheckoutService{
		paymentSucceededFunc: func(ctx context.Context, cmd services.PaymentSucceededCommand) (services.Order, error) {
			t.Fatal("service should not be called with a bad signature")
			return services.Order{}, nil
		},
	}
	router := newStripeRouter(WithStripeCheckoutService(checkout))

	req := httptest.NewRequest(http.MethodPost, "/stripe", strings.NewReader(`{"id":"evt_2"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestStripeWebhookIgnoresUnknownEvent(t *testing.T) {
	router := newStripeRouter()

	req := signedStripeRequest(t, "customer.created", `{"id":"cus_1"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for ignored event, got %d", rr.Code)
	}
}
