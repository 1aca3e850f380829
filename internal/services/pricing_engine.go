package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/glowcart/api/internal/domain"
)

var (
	// ErrCartPricingInvalidInput signals bad request data such as negative
	// prices or quantities.
	ErrCartPricingInvalidInput = errors.New("cart pricing: invalid input")
	// ErrCartPricingOverflow is returned when a line amount exceeds int64.
	ErrCartPricingOverflow = errors.New("cart pricing: amount overflow")
)

// CartPricingEngine turns a cart plus an optional resolved coupon into a
// deterministic breakdown. All arithmetic is integer math on minor units.
type CartPricingEngine struct {
	coupons CouponService
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

type CartPricingEngineDeps struct {
	Coupons CouponService
	Now     func() time.Time
	Logger  func(context.Context, string, map[string]any)
}

func NewCartPricingEngine(deps CartPricingEngineDeps) (*CartPricingEngine, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &CartPricingEngine{
		coupons: deps.Coupons,
		now: func() time.Time {
			return now().UTC()
		},
		logger: logger,
	}, nil
}

// PriceCart computes the full breakdown for the cart. The coupon, if the cart
// carries a code and a coupon service is wired, is resolved against the
// post-item-discount subtotal and clamped so the cart never goes negative.
func (e *CartPricingEngine) PriceCart(ctx context.Context, cart Cart) (PricingBreakdown, error) {
	breakdown := PricingBreakdown{
		Currency: strings.TrimSpace(cart.Currency),
		Items:    make([]ItemPricingBreakdown, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		line, err := priceCartItem(item)
		if err != nil {
			return PricingBreakdown{}, err
		}

		lineSubtotal, err := mulInt64(item.UnitPrice, int64(item.Quantity))
		if err != nil {
			return PricingBreakdown{}, err
		}
		breakdown.Subtotal, err = addInt64(breakdown.Subtotal, lineSubtotal)
		if err != nil {
			return PricingBreakdown{}, err
		}
		breakdown.ItemDiscount, err = addInt64(breakdown.ItemDiscount, line.Discount)
		if err != nil {
			return PricingBreakdown{}, err
		}
		breakdown.TotalQuantity += item.Quantity
		breakdown.Items = append(breakdown.Items, line)
	}

	// Shipping waivers depend on cart-wide aggregates, so they run after the
	// per-item pass. The threshold is measured against the post-item-discount
	// subtotal, the same basis the coupon resolution uses.
	discountedSubtotal := breakdown.Subtotal - breakdown.ItemDiscount
	for i := range breakdown.Items {
		item := cart.Items[i]
		if item.Shipping == nil || item.Shipping.Charges <= 0 {
			continue
		}
		policy := *item.Shipping
		switch {
		case policy.FreeShippingThreshold > 0 && discountedSubtotal >= policy.FreeShippingThreshold:
			breakdown.Items[i].ShippingWaived = true
			breakdown.Items[i].ShippingReason = domain.ShippingWaivedSubtotal
		case policy.FreeShippingMinQuantity > 0 && breakdown.TotalQuantity >= policy.FreeShippingMinQuantity:
			breakdown.Items[i].ShippingWaived = true
			breakdown.Items[i].ShippingReason = domain.ShippingWaivedQuantity
		default:
			breakdown.Items[i].ShippingCharge = policy.Charges
			var err error
			breakdown.Shipping, err = addInt64(breakdown.Shipping, policy.Charges)
			if err != nil {
				return PricingBreakdown{}, err
			}
		}
	}

	if cart.CouponCode != nil && strings.TrimSpace(*cart.CouponCode) != "" && e.coupons != nil {
		coupon, err := e.coupons.Resolve(ctx, strings.TrimSpace(*cart.CouponCode), discountedSubtotal, e.now())
		if err != nil {
			return PricingBreakdown{}, err
		}
		breakdown.CouponDiscount = couponDiscount(coupon, discountedSubtotal)
	}

	breakdown.Total = breakdown.Subtotal - breakdown.ItemDiscount - breakdown.CouponDiscount + breakdown.Shipping
	return breakdown, nil
}

func priceCartItem(item CartItem) (ItemPricingBreakdown, error) {
	if item.Quantity <= 0 {
		return ItemPricingBreakdown{}, fmt.Errorf("%w: item %s quantity must be positive", ErrCartPricingInvalidInput, item.ID)
	}
	if item.UnitPrice < 0 {
		return ItemPricingBreakdown{}, fmt.Errorf("%w: item %s has negative price", ErrCartPricingInvalidInput, item.ID)
	}

	discountedUnit, err := applyDiscount(item.UnitPrice, item.Discount)
	if err != nil {
		return ItemPricingBreakdown{}, fmt.Errorf("item %s: %w", item.ID, err)
	}

	lineTotal, err := mulInt64(discountedUnit, int64(item.Quantity))
	if err != nil {
		return ItemPricingBreakdown{}, err
	}
	lineDiscount, err := mulInt64(item.UnitPrice-discountedUnit, int64(item.Quantity))
	if err != nil {
		return ItemPricingBreakdown{}, err
	}

	return ItemPricingBreakdown{
		ItemID:         item.ID,
		ProductID:      item.ProductID,
		Quantity:       item.Quantity,
		UnitPrice:      item.UnitPrice,
		DiscountedUnit: discountedUnit,
		Discount:       lineDiscount,
		LineTotal:      lineTotal,
	}, nil
}

// applyDiscount computes the per-unit price after a product discount.
// Percentages truncate toward zero; fixed amounts floor at zero.
func applyDiscount(price int64, discount *domain.Discount) (int64, error) {
	if discount == nil {
		return price, nil
	}

	switch discount.Type {
	case domain.DiscountTypePercentage:
		if discount.Value < 0 || discount.Value > 100 {
			return 0, fmt.Errorf("%w: percentage discount out of range", ErrCartPricingInvalidInput)
		}
		return price - price*discount.Value/100, nil
	case domain.DiscountTypeFixed:
		if discount.Value < 0 {
			return 0, fmt.Errorf("%w: fixed discount is negative", ErrCartPricingInvalidInput)
		}
		if discount.Value >= price {
			return 0, nil
		}
		return price - discount.Value, nil
	default:
		return 0, fmt.Errorf("%w: unknown discount type %q", ErrCartPricingInvalidInput, discount.Type)
	}
}

// couponDiscount values a coupon against the post-item-discount subtotal and
// clamps the result so the discount never exceeds what is left to pay.
func couponDiscount(coupon Coupon, discountedSubtotal int64) int64 {
	if discountedSubtotal <= 0 {
		return 0
	}

	var amount int64
	switch coupon.Type {
	case domain.DiscountTypePercentage:
		amount = discountedSubtotal * coupon.Value / 100
	case domain.DiscountTypeFixed:
		amount = coupon.Value
	}

	if amount < 0 {
		return 0
	}
	if amount > discountedSubtotal {
		return discountedSubtotal
	}
	return amount
}

func mulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, ErrCartPricingOverflow
	}
	return a * b, nil
}

func addInt64(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrCartPricingOverflow
	}
	return a + b, nil
}
