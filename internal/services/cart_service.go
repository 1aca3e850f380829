package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: cart repository is required")
	errCartProductsRequired   = errors.New("cart service: product repository is required")
)

const (
	cartIDPrefix     = "cart_"
	cartItemIDPrefix = "ci_"

	maxCartItemQuantity = 20
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartNotFound indicates the requested cart does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartItemNotFound indicates the referenced cart line does not exist.
var ErrCartItemNotFound = errors.New("cart service: item not found")

// ErrCartProductUnavailable indicates the product is missing or not active.
var ErrCartProductUnavailable = errors.New("cart service: product unavailable")

// ErrCartOutOfStock indicates the requested quantity exceeds available stock.
var ErrCartOutOfStock = errors.New("cart service: out of stock")

// CartPricer calculates totals for a cart snapshot.
type CartPricer interface {
	PriceCart(ctx context.Context, cart Cart) (PricingBreakdown, error)
}

// CartServiceDeps wires the repositories and pricing dependencies for cart operations.
type CartServiceDeps struct {
	Repository      repositories.CartRepository
	Products        repositories.ProductRepository
	Pricer          CartPricer
	Coupons         CouponService
	Clock           func() time.Time
	DefaultCurrency string
	IDGenerator     func() string
	Logger          func(context.Context, string, map[string]any)
}

type cartService struct {
	repo     repositories.CartRepository
	products repositories.ProductRepository
	pricer   CartPricer
	coupons  CouponService
	newID    func() string
	now      func() time.Time
	currency string
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errCartProductsRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:     deps.Repository,
		products: deps.Products,
		pricer:   deps.Pricer,
		coupons:  deps.Coupons,
		newID:    idGen,
		now:      func() time.Time { return clock().UTC() },
		currency: currency,
		logger:   logger,
	}, nil
}

// GetOrCreateCart loads the active cart for the user, creating one when absent.
func (s *cartService) GetOrCreateCart(ctx context.Context, userID string) (Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.loadOrNewCart(ctx, uid)
	if err != nil {
		return Cart{}, err
	}

	return s.withEstimate(ctx, cart)
}

func (s *cartService) AddOrUpdateItem(ctx context.Context, cmd UpsertCartItemCommand) (Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return Cart{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}
	if cmd.Quantity > maxCartItemQuantity {
		return Cart{}, fmt.Errorf("%w: quantity may not exceed %d", ErrCartInvalidInput, maxCartItemQuantity)
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" && cmd.ItemID == nil {
		return Cart{}, fmt.Errorf("%w: product id or item id is required", ErrCartInvalidInput)
	}

	cart, err := s.loadOrNewCart(ctx, uid)
	if err != nil {
		return Cart{}, err
	}

	now := s.now()

	idx := -1
	if cmd.ItemID != nil {
		itemID := strings.TrimSpace(*cmd.ItemID)
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
		}
		productID = cart.Items[idx].ProductID
	} else {
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				idx = i
				break
			}
		}
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, fmt.Errorf("%w: product %s", ErrCartProductUnavailable, productID)
		}
		return Cart{}, s.translateRepoError(err)
	}
	if product.Status != domain.ProductStatusActive {
		return Cart{}, fmt.Errorf("%w: product %s", ErrCartProductUnavailable, productID)
	}
	if product.Stock < cmd.Quantity {
		return Cart{}, fmt.Errorf("%w: product %s has %d in stock", ErrCartOutOfStock, productID, product.Stock)
	}

	if idx >= 0 {
		cart.Items[idx].Quantity = cmd.Quantity
		cart.Items[idx].UpdatedAt = &now
	} else {
		cart.Items = append(cart.Items, newCartItem(cartItemIDPrefix+s.newID(), product, cmd.Quantity, now))
	}
	cart.UpdatedAt = now

	saved, err := s.repo.UpsertCart(ctx, cart)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	return s.withEstimate(ctx, saved)
}

func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	itemID := strings.TrimSpace(cmd.ItemID)
	if uid == "" || itemID == "" {
		return Cart{}, fmt.Errorf("%w: user id and item id are required", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, uid)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	items := make([]CartItem, 0, len(cart.Items))
	removed := false
	for _, item := range cart.Items {
		if item.ID == itemID {
			removed = true
			continue
		}
		items = append(items, item)
	}
	if !removed {
		return Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
	}

	saved, err := s.repo.ReplaceItems(ctx, uid, items)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	return s.withEstimate(ctx, saved)
}

func (s *cartService) Estimate(ctx context.Context, userID string) (PricingBreakdown, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return PricingBreakdown{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, uid)
	if err != nil {
		return PricingBreakdown{}, s.translateRepoError(err)
	}

	if s.pricer == nil {
		return naiveBreakdown(cart), nil
	}
	return s.pricer.PriceCart(ctx, cart)
}

func (s *cartService) ApplyCoupon(ctx context.Context, cmd ApplyCouponCommand) (Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if uid == "" || code == "" {
		return Cart{}, fmt.Errorf("%w: user id and coupon code are required", ErrCartInvalidInput)
	}
	if s.coupons == nil {
		return Cart{}, fmt.Errorf("%w: coupons are not enabled", ErrCartUnavailable)
	}

	cart, err := s.repo.GetCart(ctx, uid)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	if len(cart.Items) == 0 {
		return Cart{}, fmt.Errorf("%w: cart is empty", ErrCartInvalidInput)
	}

	// Validate against the post-item-discount subtotal the coupon would see.
	breakdown := naiveBreakdown(cart)
	if s.pricer != nil {
		withoutCoupon := cart
		withoutCoupon.CouponCode = nil
		breakdown, err = s.pricer.PriceCart(ctx, withoutCoupon)
		if err != nil {
			return Cart{}, err
		}
	}
	if _, err := s.coupons.Resolve(ctx, code, breakdown.Subtotal-breakdown.ItemDiscount, s.now()); err != nil {
		return Cart{}, err
	}

	cart.CouponCode = &code
	cart.UpdatedAt = s.now()

	saved, err := s.repo.UpsertCart(ctx, cart)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	return s.withEstimate(ctx, saved)
}

func (s *cartService) RemoveCoupon(ctx context.Context, userID string) (Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, uid)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	cart.CouponCode = nil
	cart.UpdatedAt = s.now()

	saved, err := s.repo.UpsertCart(ctx, cart)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	return s.withEstimate(ctx, saved)
}

func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	if err := s.repo.Delete(ctx, uid); err != nil && !isRepoNotFound(err) {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *cartService) loadOrNewCart(ctx context.Context, userID string) (Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !isRepoNotFound(err) {
		return Cart{}, s.translateRepoError(err)
	}

	fresh := Cart{
		ID:        cartIDPrefix + s.newID(),
		UserID:    userID,
		Currency:  s.currency,
		UpdatedAt: s.now(),
	}
	saved, err := s.repo.UpsertCart(ctx, fresh)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *cartService) withEstimate(ctx context.Context, cart Cart) (Cart, error) {
	if s.pricer == nil {
		estimate := estimateFromBreakdown(naiveBreakdown(cart))
		cart.Estimate = &estimate
		return cart, nil
	}

	breakdown, err := s.pricer.PriceCart(ctx, cart)
	if err != nil {
		s.logger(ctx, "cart.pricing.failed", map[string]any{
			"userId": cart.UserID,
			"error":  err.Error(),
		})
		return Cart{}, err
	}

	estimate := estimateFromBreakdown(breakdown)
	cart.Estimate = &estimate
	return cart, nil
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCartNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
	}
	return err
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func newCartItem(id string, product Product, quantity int, now time.Time) CartItem {
	item := CartItem{
		ID:           id,
		ProductID:    product.ID,
		SKU:          product.SKU,
		Title:        product.Title,
		Quantity:     quantity,
		UnitPrice:    product.Price,
		ReturnPolicy: product.ReturnPolicy,
		AddedAt:      now,
	}
	if len(product.Images) > 0 {
		item.Image = product.Images[0]
	}
	if product.Discount != nil {
		discount := *product.Discount
		item.Discount = &discount
	}
	if product.Shipping != nil {
		shipping := *product.Shipping
		item.Shipping = &shipping
	}
	return item
}

// naiveBreakdown sums undiscounted line totals when no pricer is wired.
func naiveBreakdown(cart Cart) PricingBreakdown {
	breakdown := PricingBreakdown{Currency: cart.Currency}
	for _, item := range cart.Items {
		breakdown.Subtotal += item.UnitPrice * int64(item.Quantity)
		breakdown.TotalQuantity += item.Quantity
	}
	breakdown.Total = breakdown.Subtotal
	return breakdown
}

func estimateFromBreakdown(b PricingBreakdown) CartEstimate {
	return CartEstimate{
		Subtotal:       b.Subtotal,
		ItemDiscount:   b.ItemDiscount,
		CouponDiscount: b.CouponDiscount,
		Shipping:       b.Shipping,
		Total:          b.Total,
	}
}
