package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// DiscountType identifies how a discount value is interpreted.
type DiscountType string

const (
	// DiscountTypePercentage applies value as a percentage of the price.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed subtracts value directly from the price, floored at zero.
	DiscountTypeFixed DiscountType = "fixed"
)

// Discount describes a per-product price reduction. Value is a percentage
// (0-100) or an amount in minor units depending on Type.
type Discount struct {
	Type  DiscountType
	Value int64
}

// ShippingPolicy stores per-product shipping charges and waiver thresholds.
// Charges are in minor units; a zero threshold disables that waiver rule.
type ShippingPolicy struct {
	Charges                 int64
	FreeShippingThreshold   int64
	FreeShippingMinQuantity int
}

// ReturnPolicy governs per-product return eligibility.
type ReturnPolicy struct {
	Returnable       bool
	ReturnWindowDays int
}

// DefaultReturnWindowDays applies when a returnable product does not specify
// its own window.
const DefaultReturnWindowDays = 30

// ProductStatus enumerates catalog publication states.
type ProductStatus string

const (
	// ProductStatusDraft indicates the product is not yet visible to shoppers.
	ProductStatusDraft ProductStatus = "draft"
	// ProductStatusActive indicates the product is live on the storefront.
	ProductStatusActive ProductStatus = "active"
	// ProductStatusArchived indicates the product has been retired.
	ProductStatusArchived ProductStatus = "archived"
)

// Product captures the catalog entry consumed by the storefront, cart, and
// order flows. Price is in minor units.
type Product struct {
	ID           string
	Slug         string
	SKU          string
	Title        string
	Description  string
	Brand        string
	Category     string
	Price        int64
	Currency     string
	Discount     *Discount
	Shipping     *ShippingPolicy
	ReturnPolicy ReturnPolicy
	Stock        int
	Status       ProductStatus
	Images       []string
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Cart aggregates the mutable shopping cart state for a user or guest session.
type Cart struct {
	ID         string
	UserID     string
	SessionID  string
	Currency   string
	CouponCode *string
	Items      []CartItem
	Estimate   *CartEstimate
	UpdatedAt  time.Time
}

// CartItem stores a single product entry within a cart. UnitPrice and the
// optional Discount/Shipping snapshots are copied from the product at add
// time so pricing stays stable while the customer shops.
type CartItem struct {
	ID           string
	ProductID    string
	SKU          string
	Title        string
	Image        string
	Quantity     int
	UnitPrice    int64
	Discount     *Discount
	Shipping     *ShippingPolicy
	ReturnPolicy ReturnPolicy
	AddedAt      time.Time
	UpdatedAt    *time.Time
}

// CartEstimate summarizes totals calculated for the cart, all minor units.
type CartEstimate struct {
	Subtotal       int64
	ItemDiscount   int64
	CouponDiscount int64
	Shipping       int64
	Total          int64
}

// Coupon describes an order-level discount code applied at checkout.
type Coupon struct {
	ID          string
	Code        string
	Type        DiscountType
	Value       int64
	MinSubtotal int64
	Active      bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CheckoutSession represents PSP checkout session metadata stored by services.
type CheckoutSession struct {
	SessionID   string
	PSP         string
	RedirectURL string
	ExpiresAt   time.Time
}

// PaymentMethodKind enumerates supported ways to pay for an order.
type PaymentMethodKind string

const (
	// PaymentMethodCard indicates an online card payment via the PSP.
	PaymentMethodCard PaymentMethodKind = "card"
	// PaymentMethodCOD indicates cash on delivery.
	PaymentMethodCOD PaymentMethodKind = "cod"
)

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order is placed but payment is not confirmed.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates payment succeeded (or COD accepted).
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing indicates the order is being picked and packed.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order has been handed to a carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled before shipment.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusReturned indicates a completed return took the goods back.
	OrderStatusReturned OrderStatus = "returned"
	// OrderStatusRefunded indicates the refund for a returned order settled.
	OrderStatusRefunded OrderStatus = "refunded"
	// OrderStatusFailed indicates payment failed and the order never proceeded.
	OrderStatusFailed OrderStatus = "failed"
)

// Order captures order state returned to handlers/services.
type Order struct {
	ID                  string
	OrderNumber         string
	UserID              string
	Email               string
	Status              OrderStatus
	Currency            string
	Totals              OrderTotals
	CouponCode          *string
	Items               []OrderItem
	PaymentMethod       PaymentMethodKind
	PaymentIntentID     *string
	ShippingAddress     *Address
	Tracking            *Tracking
	Return              *OrderReturn
	Refunds             []Refund
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ConfirmedAt         *time.Time
	ProcessingStartedAt *time.Time
	ShippedAt           *time.Time
	DeliveredAt         *time.Time
	CancelledAt         *time.Time
	ReturnedAt          *time.Time
	RefundedAt          *time.Time
	FailedAt            *time.Time
	CancelReason        *string
}

// OrderTotals holds rolled-up monetary fields in the smallest currency unit.
type OrderTotals struct {
	Subtotal       int64
	ItemDiscount   int64
	CouponDiscount int64
	Shipping       int64
	Total          int64
}

// OrderItem mirrors cart items at the time of checkout.
type OrderItem struct {
	ID           string
	ProductID    string
	SKU          string
	Title        string
	Image        string
	Quantity     int
	UnitPrice    int64
	Subtotal     int64
	ReturnPolicy ReturnPolicy
}

// Tracking stores carrier details captured when the order ships.
type Tracking struct {
	Carrier string
	Number  string
	URL     string
}

// ReturnStatus enumerates states of the nested return workflow.
type ReturnStatus string

const (
	// ReturnStatusRequested indicates the customer asked to return items.
	ReturnStatusRequested ReturnStatus = "requested"
	// ReturnStatusApproved indicates staff accepted the return request.
	ReturnStatusApproved ReturnStatus = "approved"
	// ReturnStatusRejected indicates staff declined the return; the order
	// stays delivered.
	ReturnStatusRejected ReturnStatus = "rejected"
	// ReturnStatusCompleted indicates goods were received back.
	ReturnStatusCompleted ReturnStatus = "completed"
	// ReturnStatusCancelled indicates the customer withdrew the request
	// before review.
	ReturnStatusCancelled ReturnStatus = "cancelled"
)

// OrderReturn is the nested return sub-record attached to an order once a
// return is requested. At most one non-terminal return exists per order.
type OrderReturn struct {
	Status      ReturnStatus
	Reason      string
	Notes       string
	ItemIDs     []string
	BankDetails *BankDetails
	RequestedAt time.Time
	ApprovedAt  *time.Time
	RejectedAt  *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// BankDetails collects refund destination information for COD orders, which
// have no card payment to reverse.
type BankDetails struct {
	AccountHolder string
	AccountNumber string
	IFSC          string
	BankName      string
}

// RefundStatus enumerates settlement states for a refund attempt.
type RefundStatus string

const (
	// RefundStatusPending indicates the refund was initiated but not settled.
	RefundStatusPending RefundStatus = "pending"
	// RefundStatusSucceeded indicates the refund settled.
	RefundStatusSucceeded RefundStatus = "succeeded"
	// RefundStatusFailed indicates the refund attempt failed.
	RefundStatusFailed RefundStatus = "failed"
)

// Refund is one entry in an order's append-only refund log.
type Refund struct {
	ID             string
	Amount         int64
	Currency       string
	Status         RefundStatus
	Reason         string
	StripeRefundID *string
	ProcessedAt    *time.Time
	CreatedAt      time.Time
}

// ReviewStatus indicates the moderation state of a review.
type ReviewStatus string

const (
	// ReviewStatusPending indicates the review awaits moderation.
	ReviewStatusPending ReviewStatus = "pending"
	// ReviewStatusPublished indicates the review is visible on the storefront.
	ReviewStatusPublished ReviewStatus = "published"
	// ReviewStatusRejected indicates the review has been rejected and is hidden.
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Review captures customer feedback for a product purchased in an order.
type Review struct {
	ID          string
	ProductID   string
	OrderID     string
	UserID      string
	Rating      int
	Title       string
	Body        string
	Status      ReviewStatus
	ModeratedBy *string
	ModeratedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Banner represents a promotional banner shown on the storefront.
type Banner struct {
	ID        string
	Title     string
	ImageURL  string
	TargetURL string
	Placement string
	StartsAt  *time.Time
	EndsAt    *time.Time
	Active    bool
	Views     int64
	Clicks    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveAt reports whether the banner should be served at the given instant.
func (b Banner) ActiveAt(now time.Time) bool {
	if !b.Active {
		return false
	}
	if b.StartsAt != nil && now.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && now.After(*b.EndsAt) {
		return false
	}
	return true
}

// BlogStatus enumerates blog post publication states.
type BlogStatus string

const (
	// BlogStatusDraft indicates the post is only visible in the admin console.
	BlogStatusDraft BlogStatus = "draft"
	// BlogStatusPublished indicates the post is live.
	BlogStatusPublished BlogStatus = "published"
)

// BlogPost is an editorial article served on the storefront. BodyHTML is
// sanitized before persistence.
type BlogPost struct {
	ID          string
	Slug        string
	Title       string
	Excerpt     string
	BodyHTML    string
	CoverImage  string
	Author      string
	Tags        []string
	Status      BlogStatus
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CompanyInfo is the singleton company profile served to the storefront.
type CompanyInfo struct {
	Name         string
	Tagline      string
	About        string
	Email        string
	Phone        string
	Address      string
	SocialLinks  map[string]string
	SupportHours string
	UpdatedAt    time.Time
}

// HeroSection is the singleton homepage hero content document.
type HeroSection struct {
	Heading    string
	Subheading string
	ImageURL   string
	CTALabel   string
	CTAURL     string
	UpdatedAt  time.Time
}

// LuxuryShowcaseItem is one tile in the curated homepage showcase.
type LuxuryShowcaseItem struct {
	Title     string
	ImageURL  string
	TargetURL string
	Position  int
}

// LuxuryShowcase is the singleton curated collection document.
type LuxuryShowcase struct {
	Heading   string
	Items     []LuxuryShowcaseItem
	UpdatedAt time.Time
}

// NewsletterSubscriber records an opted-in email address.
type NewsletterSubscriber struct {
	Email        string
	Source       string
	SubscribedAt time.Time
}

// User captures the minimal account projection used by auth and orders.
type User struct {
	ID           string
	Email        string
	Phone        string
	Name         string
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OTPPurpose distinguishes what a one-time passcode unlocks.
type OTPPurpose string

const (
	// OTPPurposeLogin authenticates a passwordless login.
	OTPPurposeLogin OTPPurpose = "login"
	// OTPPurposePasswordReset authorizes a password reset.
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// OTPChallenge stores a hashed one-time passcode issued to a target address.
type OTPChallenge struct {
	ID         string
	Target     string
	Purpose    OTPPurpose
	CodeHash   string
	ExpiresAt  time.Time
	Attempts   int
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Address represents postal address structures shared by user and order layers.
type Address struct {
	Recipient  string
	Line1      string
	Line2      *string
	City       string
	State      *string
	PostalCode string
	Country    string
	Phone      *string
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// AuditLogEntry stores normalized audit information for admin use.
type AuditLogEntry struct {
	ID        string
	Actor     string
	ActorType string
	Action    string
	TargetRef string
	Metadata  map[string]any
	IPHash    string
	UserAgent string
	Severity  string
	RequestID string
	CreatedAt time.Time
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
