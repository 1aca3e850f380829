package domain

// PricingBreakdown captures the aggregated monetary results of pricing a cart.
// Every amount is in minor units of Currency. The identity
// Total == Subtotal - ItemDiscount - CouponDiscount + Shipping holds exactly.
type PricingBreakdown struct {
	Currency       string
	Subtotal       int64
	ItemDiscount   int64
	CouponDiscount int64
	Shipping       int64
	Total          int64
	TotalQuantity  int
	Items          []ItemPricingBreakdown
}

// ItemPricingBreakdown stores the per-item pricing outputs after running the engine.
type ItemPricingBreakdown struct {
	ItemID         string
	ProductID      string
	Quantity       int
	UnitPrice      int64
	DiscountedUnit int64
	Discount       int64
	LineTotal      int64
	ShippingCharge int64
	ShippingWaived bool
	ShippingReason string
}

// Shipping waiver reasons recorded on item breakdowns.
const (
	// ShippingWaivedSubtotal means the cart subtotal met the item's threshold.
	ShippingWaivedSubtotal = "subtotal_threshold"
	// ShippingWaivedQuantity means the cart quantity met the item's minimum.
	ShippingWaivedQuantity = "min_quantity"
)
