package services

import (
	"context"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination           = domain.Pagination
	SortOrder            = domain.SortOrder
	Discount             = domain.Discount
	DiscountType         = domain.DiscountType
	ShippingPolicy       = domain.ShippingPolicy
	ReturnPolicy         = domain.ReturnPolicy
	Product              = domain.Product
	ProductStatus        = domain.ProductStatus
	Cart                 = domain.Cart
	CartItem             = domain.CartItem
	CartEstimate         = domain.CartEstimate
	Coupon               = domain.Coupon
	PricingBreakdown     = domain.PricingBreakdown
	ItemPricingBreakdown = domain.ItemPricingBreakdown
	CheckoutSession      = domain.CheckoutSession
	Order                = domain.Order
	OrderTotals          = domain.OrderTotals
	OrderItem            = domain.OrderItem
	OrderStatus          = domain.OrderStatus
	OrderReturn          = domain.OrderReturn
	ReturnStatus         = domain.ReturnStatus
	BankDetails          = domain.BankDetails
	Refund               = domain.Refund
	RefundStatus         = domain.RefundStatus
	Tracking             = domain.Tracking
	PaymentMethodKind    = domain.PaymentMethodKind
	Review               = domain.Review
	ReviewStatus         = domain.ReviewStatus
	Banner               = domain.Banner
	BlogPost             = domain.BlogPost
	CompanyInfo          = domain.CompanyInfo
	HeroSection          = domain.HeroSection
	LuxuryShowcase       = domain.LuxuryShowcase
	NewsletterSubscriber = domain.NewsletterSubscriber
	User                 = domain.User
	OTPChallenge         = domain.OTPChallenge
	OTPPurpose           = domain.OTPPurpose
	Address              = domain.Address
	SystemHealthReport   = domain.SystemHealthReport
	AuditLogEntry        = domain.AuditLogEntry
)

// OrderService encapsulates order lifecycle flows: creation, status
// transitions, cancellation, and the nested return/refund workflow.
type OrderService interface {
	CreateFromCart(ctx context.Context, cmd CreateOrderFromCartCommand) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	RequestReturn(ctx context.Context, cmd RequestReturnCommand) (Order, error)
	CancelReturn(ctx context.Context, cmd CancelReturnCommand) (Order, error)
	ResolveReturn(ctx context.Context, cmd ResolveReturnCommand) (Order, error)
	RecordRefund(ctx context.Context, cmd RecordRefundCommand) (Order, error)
	SettleRefund(ctx context.Context, cmd SettleRefundCommand) (Order, error)
}

// CartService manages mutable cart state and pricing estimates.
type CartService interface {
	GetOrCreateCart(ctx context.Context, userID string) (Cart, error)
	AddOrUpdateItem(ctx context.Context, cmd UpsertCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	Estimate(ctx context.Context, userID string) (PricingBreakdown, error)
	ApplyCoupon(ctx context.Context, cmd ApplyCouponCommand) (Cart, error)
	RemoveCoupon(ctx context.Context, userID string) (Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

// CheckoutService coordinates PSP session creation and payment confirmation.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error)
	HandlePaymentSucceeded(ctx context.Context, cmd PaymentSucceededCommand) (Order, error)
	HandlePaymentFailed(ctx context.Context, cmd PaymentFailedCommand) (Order, error)
}

// CatalogService manages products for storefront and admin surfaces.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CouponService manages order-level discount codes.
type CouponService interface {
	Resolve(ctx context.Context, code string, subtotal int64, now time.Time) (Coupon, error)
	List(ctx context.Context, pager Pagination) (domain.CursorPage[Coupon], error)
	Upsert(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error)
	Delete(ctx context.Context, couponID string) error
}

// BannerService serves active banners and records engagement counters.
type BannerService interface {
	ListActive(ctx context.Context) ([]Banner, error)
	RecordView(ctx context.Context, bannerID string) error
	RecordClick(ctx context.Context, bannerID string) error
	List(ctx context.Context, pager Pagination) (domain.CursorPage[Banner], error)
	Create(ctx context.Context, cmd UpsertBannerCommand) (Banner, error)
	Update(ctx context.Context, cmd UpsertBannerCommand) (Banner, error)
	Delete(ctx context.Context, bannerID string) error
}

// BlogService manages editorial posts with sanitized HTML bodies.
type BlogService interface {
	ListPublished(ctx context.Context, filter BlogListFilter) (domain.CursorPage[BlogPost], error)
	GetBySlug(ctx context.Context, slug string) (BlogPost, error)
	List(ctx context.Context, filter BlogListFilter) (domain.CursorPage[BlogPost], error)
	Create(ctx context.Context, cmd UpsertBlogPostCommand) (BlogPost, error)
	Update(ctx context.Context, cmd UpsertBlogPostCommand) (BlogPost, error)
	Delete(ctx context.Context, postID string) error
}

// ContentService serves and maintains the singleton storefront content
// documents (company info, hero section, luxury showcase).
type ContentService interface {
	GetCompanyInfo(ctx context.Context) (CompanyInfo, error)
	UpsertCompanyInfo(ctx context.Context, cmd UpsertCompanyInfoCommand) (CompanyInfo, error)
	GetHeroSection(ctx context.Context) (HeroSection, error)
	UpsertHeroSection(ctx context.Context, cmd UpsertHeroSectionCommand) (HeroSection, error)
	GetLuxuryShowcase(ctx context.Context) (LuxuryShowcase, error)
	UpsertLuxuryShowcase(ctx context.Context, cmd UpsertLuxuryShowcaseCommand) (LuxuryShowcase, error)
}

// NewsletterService records storefront newsletter subscriptions.
type NewsletterService interface {
	Subscribe(ctx context.Context, cmd SubscribeNewsletterCommand) (NewsletterSubscriber, bool, error)
	Unsubscribe(ctx context.Context, email string) error
	List(ctx context.Context, pager Pagination) (domain.CursorPage[NewsletterSubscriber], error)
}

// ReviewService coordinates review submission and moderation workflows.
type ReviewService interface {
	Create(ctx context.Context, cmd CreateReviewCommand) (Review, error)
	ListByProduct(ctx context.Context, cmd ListProductReviewsCommand) (domain.CursorPage[Review], error)
	ListPending(ctx context.Context, pager Pagination) (domain.CursorPage[Review], error)
	Moderate(ctx context.Context, cmd ModerateReviewCommand) (Review, error)
}

// OTPService issues and verifies one-time passcodes for login and password
// reset flows.
type OTPService interface {
	SendLoginOTP(ctx context.Context, cmd SendOTPCommand) error
	VerifyLoginOTP(ctx context.Context, cmd VerifyOTPCommand) (SessionResult, error)
	SendPasswordResetOTP(ctx context.Context, cmd SendOTPCommand) error
	VerifyPasswordResetOTP(ctx context.Context, cmd VerifyOTPCommand) (ResetTicket, error)
	ResetPassword(ctx context.Context, cmd ResetPasswordCommand) error
}

// UserService exposes the minimal customer profile surface.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (User, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error)
}

// SystemService aggregates utility endpoints (health checks, audit logs, counters).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	ListAuditLogs(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[AuditLogEntry], error)
	NextCounterValue(ctx context.Context, cmd CounterCommand) (int64, error)
}

// AuditLogService centralizes immutable audit log persistence and retrieval.
type AuditLogService interface {
	Record(ctx context.Context, record AuditLogRecord)
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[AuditLogEntry], error)
}

// OrderEventType labels lifecycle events published for asynchronous dispatch.
type OrderEventType string

const (
	OrderEventCreated         OrderEventType = "order.created"
	OrderEventConfirmed       OrderEventType = "order.confirmed"
	OrderEventStatusChanged   OrderEventType = "order.status_changed"
	OrderEventCancelled       OrderEventType = "order.cancelled"
	OrderEventFailed          OrderEventType = "order.failed"
	OrderEventReturnRequested OrderEventType = "order.return_requested"
	OrderEventReturnCancelled OrderEventType = "order.return_cancelled"
	OrderEventReturnApproved  OrderEventType = "order.return_approved"
	OrderEventReturnRejected  OrderEventType = "order.return_rejected"
	OrderEventReturnCompleted OrderEventType = "order.return_completed"
	OrderEventRefundProcessed OrderEventType = "order.refund_processed"
)

// OrderEvent is the message published after an order lifecycle transition.
// The mail dispatcher renders transactional email from these payloads.
type OrderEvent struct {
	Type         OrderEventType     `json:"type"`
	OrderID      string             `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	UserID       string             `json:"user_id"`
	Email        string             `json:"email"`
	Status       domain.OrderStatus `json:"status"`
	ReturnStatus string             `json:"return_status,omitempty"`
	RefundAmount int64              `json:"refund_amount,omitempty"`
	Currency     string             `json:"currency,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// OrderEventPublisher accepts order lifecycle events for downstream processing.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
}

// ErrorTranslator converts repository or platform errors into domain-aware sentinel errors.
type ErrorTranslator interface {
	Translate(err error) error
}

// Command and DTO definitions ------------------------------------------------

type OrderListFilter = repositories.OrderListFilter
type ProductListFilter = repositories.ProductListFilter
type BlogListFilter = repositories.BlogListFilter

type CreateOrderFromCartCommand struct {
	Cart            Cart
	UserID          string
	Email           string
	PaymentMethod   PaymentMethodKind
	ShippingAddress Address
	PaymentIntentID *string
	OrderNumber     *string
}

type OrderStatusTransitionCommand struct {
	OrderID        string
	TargetStatus   OrderStatus
	ActorID        string
	Reason         string
	Tracking       *Tracking
	ExpectedStatus *OrderStatus
}

type CancelOrderCommand struct {
	OrderID string
	ActorID string
	Reason  string
}

type RequestReturnCommand struct {
	OrderID     string
	UserID      string
	Reason      string
	Notes       string
	ItemIDs     []string
	BankDetails *BankDetails
}

type CancelReturnCommand struct {
	OrderID string
	UserID  string
}

// ResolveReturnCommand drives staff-side return decisions: approve, reject,
// or complete an approved return.
type ResolveReturnCommand struct {
	OrderID string
	ActorID string
	Action  ReturnResolution
	Notes   string
}

// ReturnResolution enumerates staff decisions on a return request.
type ReturnResolution string

const (
	ReturnResolutionApprove  ReturnResolution = "approve"
	ReturnResolutionReject   ReturnResolution = "reject"
	ReturnResolutionComplete ReturnResolution = "complete"
)

type RecordRefundCommand struct {
	OrderID string
	ActorID string
	Amount  int64
	Reason  string
}

type SettleRefundCommand struct {
	OrderID        string
	RefundID       string
	Status         RefundStatus
	StripeRefundID *string
	ProcessedAt    time.Time
}

type UpsertCartItemCommand struct {
	UserID    string
	ItemID    *string
	ProductID string
	Quantity  int
}

type RemoveCartItemCommand struct {
	UserID string
	ItemID string
}

type ApplyCouponCommand struct {
	UserID string
	Code   string
}

type CreateCheckoutSessionCommand struct {
	UserID          string
	Email           string
	PaymentMethod   PaymentMethodKind
	ShippingAddress Address
	SuccessURL      string
	CancelURL       string
}

type PaymentSucceededCommand struct {
	PaymentIntentID string
	SessionID       string
}

type PaymentFailedCommand struct {
	PaymentIntentID string
	Reason          string
}

type UpsertProductCommand struct {
	Product Product
	ActorID string
}

type UpsertCouponCommand struct {
	Coupon  Coupon
	ActorID string
}

type UpsertBannerCommand struct {
	Banner  Banner
	ActorID string
}

type UpsertBlogPostCommand struct {
	Post    BlogPost
	ActorID string
}

type UpsertCompanyInfoCommand struct {
	Info    CompanyInfo
	ActorID string
}

type UpsertHeroSectionCommand struct {
	Hero    HeroSection
	ActorID string
}

type UpsertLuxuryShowcaseCommand struct {
	Showcase LuxuryShowcase
	ActorID  string
}

type SubscribeNewsletterCommand struct {
	Email  string
	Source string
}

type CreateReviewCommand struct {
	OrderID   string
	ProductID string
	UserID    string
	Rating    int
	Title     string
	Body      string
}

type ListProductReviewsCommand struct {
	ProductID  string
	Pagination Pagination
}

type ModerateReviewCommand struct {
	ReviewID string
	ActorID  string
	Status   ReviewStatus
}

type SendOTPCommand struct {
	Email string
}

type UpdateProfileCommand struct {
	UserID string
	Name   *string
	Phone  *string
}

type VerifyOTPCommand struct {
	Email string
	Code  string
}

// SessionResult carries the minted session token after OTP verification.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// ResetTicket is a short-lived token authorising a password reset.
type ResetTicket struct {
	Token     string
	ExpiresAt time.Time
}

type ResetPasswordCommand struct {
	Email       string
	ResetToken  string
	NewPassword string
}

// AuditLogRecord defines the payload accepted by the audit writer service.
type AuditLogRecord struct {
	Actor                 string
	ActorType             string
	Action                string
	TargetRef             string
	Severity              string
	RequestID             string
	OccurredAt            time.Time
	Metadata              map[string]any
	SensitiveMetadataKeys []string
	IPAddress             string
	UserAgent             string
}

type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	ActorType  string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination Pagination
}

type CounterCommand struct {
	CounterID string
	Step      int64
}
