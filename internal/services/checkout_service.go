package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/payments"
	"github.com/glowcart/api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrCheckoutCartNotReady indicates the cart is empty or missing required data.
	ErrCheckoutCartNotReady = errors.New("checkout: cart not ready")
	// ErrCheckoutInsufficientStock indicates a cart line exceeds available stock.
	ErrCheckoutInsufficientStock = errors.New("checkout: insufficient stock")
	// ErrCheckoutPaymentFailed indicates the PSP session could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
	// ErrCheckoutOrderNotFound indicates no order matches the payment reference.
	ErrCheckoutOrderNotFound = errors.New("checkout: order not found")
)

// checkoutSessionManager abstracts payments.Manager for easier testing.
type checkoutSessionManager interface {
	CreateCheckoutSession(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
}

// CheckoutConfig carries storefront checkout settings sourced from configuration.
type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	EnableCOD  bool
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Orders   OrderService
	Pricer   CartPricer
	Payments checkoutSessionManager
	Config   CheckoutConfig
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	orders   OrderService
	pricer   CartPricer
	payments checkoutSessionManager
	config   CheckoutConfig
	now      func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("checkout service: product repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order service is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	config := deps.Config
	config.Currency = strings.ToUpper(strings.TrimSpace(config.Currency))
	if config.Currency == "" {
		config.Currency = "INR"
	}

	return &checkoutService{
		carts:    deps.Carts,
		products: deps.Products,
		orders:   deps.Orders,
		pricer:   deps.Pricer,
		payments: deps.Payments,
		config:   config,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateCheckoutSession validates the cart, opens a PSP session for card
// payments, records the pending order, and clears the cart.
func (s *checkoutService) CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error) {
	userID := strings.TrimSpace(cmd.UserID)
	email := strings.TrimSpace(cmd.Email)
	if userID == "" || email == "" {
		return CheckoutSession{}, fmt.Errorf("%w: user id and email are required", ErrCheckoutInvalidInput)
	}
	switch cmd.PaymentMethod {
	case domain.PaymentMethodCard:
	case domain.PaymentMethodCOD:
		if !s.config.EnableCOD {
			return CheckoutSession{}, fmt.Errorf("%w: cash on delivery is disabled", ErrCheckoutInvalidInput)
		}
	default:
		return CheckoutSession{}, fmt.Errorf("%w: unsupported payment method %q", ErrCheckoutInvalidInput, cmd.PaymentMethod)
	}
	if strings.TrimSpace(cmd.ShippingAddress.Line1) == "" || strings.TrimSpace(cmd.ShippingAddress.Country) == "" {
		return CheckoutSession{}, fmt.Errorf("%w: shipping address is incomplete", ErrCheckoutInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return CheckoutSession{}, fmt.Errorf("%w: no cart", ErrCheckoutCartNotReady)
		}
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if len(cart.Items) == 0 {
		return CheckoutSession{}, fmt.Errorf("%w: cart is empty", ErrCheckoutCartNotReady)
	}
	if cart.Currency == "" {
		cart.Currency = s.config.Currency
	}

	if err := s.validateStock(ctx, cart); err != nil {
		return CheckoutSession{}, err
	}

	breakdown, err := s.priceCart(ctx, cart)
	if err != nil {
		return CheckoutSession{}, err
	}
	estimate := estimateFromBreakdown(breakdown)
	cart.Estimate = &estimate

	var (
		session         CheckoutSession
		paymentIntentID *string
	)

	if cmd.PaymentMethod == domain.PaymentMethodCard {
		pspSession, err := s.payments.CreateCheckoutSession(ctx, payments.PaymentContext{
			Currency: cart.Currency,
		}, payments.CheckoutSessionRequest{
			Amount:         breakdown.Total,
			Currency:       cart.Currency,
			CustomerID:     userID,
			SuccessURL:     firstNonEmpty(cmd.SuccessURL, s.config.SuccessURL),
			CancelURL:      firstNonEmpty(cmd.CancelURL, s.config.CancelURL),
			IdempotencyKey: checkoutIdempotencyKey(userID, cart),
			Metadata: map[string]string{
				"userId": userID,
				"email":  email,
			},
			Items: checkoutLineItems(cart),
		})
		if err != nil {
			s.logger(ctx, "checkout.session.create_failed", map[string]any{
				"userId": userID,
				"error":  err.Error(),
			})
			return CheckoutSession{}, fmt.Errorf("%w: %v", ErrCheckoutPaymentFailed, err)
		}

		session = CheckoutSession{
			SessionID:   pspSession.ID,
			PSP:         pspSession.Provider,
			RedirectURL: pspSession.RedirectURL,
			ExpiresAt:   pspSession.ExpiresAt,
		}
		if pspSession.IntentID != "" {
			intent := pspSession.IntentID
			paymentIntentID = &intent
		}
	} else {
		session = CheckoutSession{
			PSP:         "cod",
			RedirectURL: firstNonEmpty(cmd.SuccessURL, s.config.SuccessURL),
		}
	}

	order, err := s.orders.CreateFromCart(ctx, CreateOrderFromCartCommand{
		Cart:            cart,
		UserID:          userID,
		Email:           email,
		PaymentMethod:   cmd.PaymentMethod,
		ShippingAddress: cmd.ShippingAddress,
		PaymentIntentID: paymentIntentID,
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	if err := s.carts.Delete(ctx, userID); err != nil && !isRepoNotFound(err) {
		s.logger(ctx, "checkout.cart.clear_failed", map[string]any{
			"userId": userID,
			"order":  order.ID,
			"error":  err.Error(),
		})
	}

	// COD orders skip the PSP and confirm immediately.
	if cmd.PaymentMethod == domain.PaymentMethodCOD {
		if _, err := s.orders.TransitionStatus(ctx, OrderStatusTransitionCommand{
			OrderID:      order.ID,
			TargetStatus: domain.OrderStatusConfirmed,
		}); err != nil {
			return CheckoutSession{}, err
		}
	}

	session.SessionID = firstNonEmpty(session.SessionID, order.ID)
	return session, nil
}

// HandlePaymentSucceeded confirms the pending order matching the payment intent.
func (s *checkoutService) HandlePaymentSucceeded(ctx context.Context, cmd PaymentSucceededCommand) (Order, error) {
	order, err := s.findOrderByIntent(ctx, cmd.PaymentIntentID)
	if err != nil {
		return Order{}, err
	}

	// Replayed webhooks are acknowledged without a second transition.
	if order.Status != domain.OrderStatusPending {
		return order, nil
	}

	expected := domain.OrderStatusPending
	return s.orders.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:        order.ID,
		TargetStatus:   domain.OrderStatusConfirmed,
		ExpectedStatus: &expected,
	})
}

// HandlePaymentFailed marks the pending order as failed.
func (s *checkoutService) HandlePaymentFailed(ctx context.Context, cmd PaymentFailedCommand) (Order, error) {
	order, err := s.findOrderByIntent(ctx, cmd.PaymentIntentID)
	if err != nil {
		return Order{}, err
	}

	if order.Status != domain.OrderStatusPending {
		return order, nil
	}

	expected := domain.OrderStatusPending
	return s.orders.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:        order.ID,
		TargetStatus:   domain.OrderStatusFailed,
		Reason:         strings.TrimSpace(cmd.Reason),
		ExpectedStatus: &expected,
	})
}

func (s *checkoutService) findOrderByIntent(ctx context.Context, intentID string) (Order, error) {
	intent := strings.TrimSpace(intentID)
	if intent == "" {
		return Order{}, fmt.Errorf("%w: payment intent id is required", ErrCheckoutInvalidInput)
	}

	page, err := s.orders.ListOrders(ctx, OrderListFilter{PaymentIntentID: &intent})
	if err != nil {
		return Order{}, err
	}
	if len(page.Items) == 0 {
		return Order{}, fmt.Errorf("%w: intent %s", ErrCheckoutOrderNotFound, intent)
	}
	return page.Items[0], nil
}

func (s *checkoutService) validateStock(ctx context.Context, cart Cart) error {
	for _, item := range cart.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if isRepoNotFound(err) {
				return fmt.Errorf("%w: product %s no longer exists", ErrCheckoutCartNotReady, item.ProductID)
			}
			return fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
		}
		if product.Status != domain.ProductStatusActive {
			return fmt.Errorf("%w: product %s is unavailable", ErrCheckoutCartNotReady, item.ProductID)
		}
		if product.Stock < item.Quantity {
			return fmt.Errorf("%w: product %s has %d in stock", ErrCheckoutInsufficientStock, item.ProductID, product.Stock)
		}
	}
	return nil
}

func (s *checkoutService) priceCart(ctx context.Context, cart Cart) (PricingBreakdown, error) {
	if s.pricer == nil {
		return naiveBreakdown(cart), nil
	}
	return s.pricer.PriceCart(ctx, cart)
}

func checkoutLineItems(cart Cart) []payments.CheckoutLineItem {
	items := make([]payments.CheckoutLineItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, payments.CheckoutLineItem{
			Name:     item.Title,
			SKU:      item.SKU,
			Quantity: int64(item.Quantity),
			Amount:   item.UnitPrice,
			Currency: cart.Currency,
		})
	}
	return items
}

// checkoutIdempotencyKey hashes the cart contents so retried submissions with
// an unchanged cart reuse the same PSP session.
func checkoutIdempotencyKey(userID string, cart Cart) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	for _, item := range cart.Items {
		h.Write([]byte(item.ProductID))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(item.Quantity)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(item.UnitPrice, 10)))
		h.Write([]byte{0})
	}
	if cart.CouponCode != nil {
		h.Write([]byte(*cart.CouponCode))
	}
	return "checkout_" + hex.EncodeToString(h.Sum(nil))[:32]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
