package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the provider-neutral payment state stored on orders.
type Status string

const (
	// StatusPending: the shopper has not completed payment or the PSP has not
	// confirmed it yet.
	StatusPending Status = "pending"
	// StatusSucceeded: the PSP captured the funds.
	StatusSucceeded Status = "succeeded"
	// StatusFailed: the PSP reports a terminal failure.
	StatusFailed Status = "failed"
	// StatusRefunded: some or all of the payment was returned.
	StatusRefunded Status = "refunded"
)

// ErrUnsupportedProvider is returned when no registered provider can serve
// the request.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// CheckoutLineItem is one cart line carried into the PSP checkout session.
type CheckoutLineItem struct {
	Name        string
	Description string
	SKU         string
	Quantity    int64
	Amount      int64
	Currency    string
}

// CheckoutSessionRequest is everything needed to open a hosted checkout.
type CheckoutSessionRequest struct {
	Amount         int64
	Currency       string
	CustomerID     string
	SuccessURL     string
	CancelURL      string
	Locale         string
	Metadata       map[string]string
	IdempotencyKey string
	Items          []CheckoutLineItem
	AllowPromotion bool
}

// CheckoutSession is what the client needs to hand the shopper to the PSP.
type CheckoutSession struct {
	ID           string
	Provider     string
	ClientSecret string
	RedirectURL  string
	IntentID     string
	ExpiresAt    time.Time
	Raw          map[string]any
}

// ConfirmRequest finalizes a session where the PSP requires an explicit
// server-side confirm.
type ConfirmRequest struct {
	IntentID       string
	PaymentID      string
	IdempotencyKey string
	Metadata       map[string]string
}

// CaptureRequest captures an authorized payment, optionally partially.
type CaptureRequest struct {
	IntentID       string
	Amount         *int64
	IdempotencyKey string
	Metadata       map[string]string
}

// RefundRequest asks the PSP to return funds, optionally partially.
type RefundRequest struct {
	IntentID       string
	Amount         *int64
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
}

// LookupRequest fetches current PSP state for reconciliation.
type LookupRequest struct {
	IntentID string
}

// PaymentDetails is the normalized view of a PSP payment object.
type PaymentDetails struct {
	Provider   string
	IntentID   string
	Status     Status
	Amount     int64
	Currency   string
	Captured   bool
	CapturedAt *time.Time
	RefundedAt *time.Time
	Raw        map[string]any
}

// Provider is the adapter contract each PSP integration implements.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	Confirm(ctx context.Context, req ConfirmRequest) (PaymentDetails, error)
	Capture(ctx context.Context, req CaptureRequest) (PaymentDetails, error)
	Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error)
	LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error)
}

// Manager routes each payment operation to the right provider, using the
// caller's preference, then currency routing, then the default.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
}

// ManagerOption configures a Manager during construction.
type ManagerOption func(*Manager)

// WithDefaultProvider sets the provider used when nothing else matches.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = provider
	}
}

// WithCurrencyRoutes maps currencies to providers, e.g. JPY to a local PSP.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for currency, provider := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(currency))] = strings.TrimSpace(provider)
		}
	}
}

func providerKey(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

// NewManager registers the given providers. When Stripe is among them it
// becomes the default unless an option says otherwise.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	registered := make(map[string]Provider, len(providers))
	for name, provider := range providers {
		key := providerKey(name)
		if key == "" || provider == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", name)
		}
		registered[key] = provider
	}
	m := &Manager{providers: registered}
	if _, ok := registered["stripe"]; ok {
		m.defaultProvider = "stripe"
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// PaymentContext carries the routing hints for one operation.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
	Metadata          map[string]string
}

func (m *Manager) resolveProvider(ctx PaymentContext) (string, Provider, error) {
	if m == nil {
		return "", nil, errors.New("payments: manager is nil")
	}
	if len(m.providers) == 0 {
		return "", nil, errors.New("payments: no providers registered")
	}
	if preferred := providerKey(ctx.PreferredProvider); preferred != "" {
		if p, ok := m.providers[preferred]; ok {
			return preferred, p, nil
		}
	}
	if currency := strings.ToUpper(strings.TrimSpace(ctx.Currency)); currency != "" && m.currencyRoutes != nil {
		if routed, ok := m.currencyRoutes[currency]; ok {
			key := providerKey(routed)
			if p, ok := m.providers[key]; ok {
				return key, p, nil
			}
		}
	}
	if def := providerKey(m.defaultProvider); def != "" {
		if p, ok := m.providers[def]; ok {
			return def, p, nil
		}
	}
	if len(m.providers) == 1 {
		for key, p := range m.providers {
			return key, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// CreateCheckoutSession resolves a provider and opens a session with it.
func (m *Manager) CreateCheckoutSession(ctx context.Context, paymentCtx PaymentContext, req CheckoutSessionRequest) (CheckoutSession, error) {
	key, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return CheckoutSession{}, err
	}
	session, err := provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return CheckoutSession{}, err
	}
	session.Provider = key
	return session, nil
}

// Confirm delegates to the resolved provider.
func (m *Manager) Confirm(ctx context.Context, paymentCtx PaymentContext, req ConfirmRequest) (PaymentDetails, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	return provider.Confirm(ctx, req)
}

// Capture delegates to the resolved provider.
func (m *Manager) Capture(ctx context.Context, paymentCtx PaymentContext, req CaptureRequest) (PaymentDetails, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	return provider.Capture(ctx, req)
}

// Refund delegates to the resolved provider.
func (m *Manager) Refund(ctx context.Context, paymentCtx PaymentContext, req RefundRequest) (PaymentDetails, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	return provider.Refund(ctx, req)
}

// LookupPayment delegates to the resolved provider.
func (m *Manager) LookupPayment(ctx context.Context, paymentCtx PaymentContext, req LookupRequest) (PaymentDetails, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	return provider.LookupPayment(ctx, req)
}
