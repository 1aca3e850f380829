package repositories

import (
	"context"
	"time"

	domain "github.com/glowcart/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Carts() CartRepository
	Products() ProductRepository
	Coupons() CouponRepository
	Banners() BannerRepository
	BlogPosts() BlogRepository
	Content() ContentRepository
	Newsletter() NewsletterRepository
	Reviews() ReviewRepository
	Users() UserRepository
	OTP() OTPRepository
	AuditLogs() AuditLogRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order documents and provides query helpers for users and admins.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// CartRepository owns cart header + items persistence with optimistic locking guarantees.
type CartRepository interface {
	UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error)
	Delete(ctx context.Context, userID string) error
}

// ProductRepository stores catalog entries. Slug and SKU are unique; writes
// that violate either return a RepositoryError with IsConflict.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// CouponRepository maintains coupon definitions keyed by code.
type CouponRepository interface {
	Upsert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error)
	Delete(ctx context.Context, couponID string) error
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Coupon], error)
}

// BannerRepository stores promotional banners and their engagement counters.
type BannerRepository interface {
	Insert(ctx context.Context, banner domain.Banner) error
	Update(ctx context.Context, banner domain.Banner) error
	Delete(ctx context.Context, bannerID string) error
	FindByID(ctx context.Context, bannerID string) (domain.Banner, error)
	ListActive(ctx context.Context, now time.Time) ([]domain.Banner, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Banner], error)
	IncrementViews(ctx context.Context, bannerID string, delta int64) error
	IncrementClicks(ctx context.Context, bannerID string, delta int64) error
}

// BlogRepository stores editorial posts. Slugs are unique.
type BlogRepository interface {
	Insert(ctx context.Context, post domain.BlogPost) error
	Update(ctx context.Context, post domain.BlogPost) error
	Delete(ctx context.Context, postID string) error
	FindByID(ctx context.Context, postID string) (domain.BlogPost, error)
	FindBySlug(ctx context.Context, slug string) (domain.BlogPost, error)
	List(ctx context.Context, filter BlogListFilter) (domain.CursorPage[domain.BlogPost], error)
}

// ContentRepository stores the singleton storefront content documents.
type ContentRepository interface {
	GetCompanyInfo(ctx context.Context) (domain.CompanyInfo, error)
	UpsertCompanyInfo(ctx context.Context, info domain.CompanyInfo) (domain.CompanyInfo, error)
	GetHeroSection(ctx context.Context) (domain.HeroSection, error)
	UpsertHeroSection(ctx context.Context, hero domain.HeroSection) (domain.HeroSection, error)
	GetLuxuryShowcase(ctx context.Context) (domain.LuxuryShowcase, error)
	UpsertLuxuryShowcase(ctx context.Context, showcase domain.LuxuryShowcase) (domain.LuxuryShowcase, error)
}

// NewsletterRepository stores opted-in subscribers keyed by normalised email.
type NewsletterRepository interface {
	Upsert(ctx context.Context, subscriber domain.NewsletterSubscriber) (domain.NewsletterSubscriber, bool, error)
	Delete(ctx context.Context, email string) error
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.NewsletterSubscriber], error)
}

// ReviewRepository stores product reviews and their moderation meta.
type ReviewRepository interface {
	Insert(ctx context.Context, review domain.Review) (domain.Review, error)
	FindByID(ctx context.Context, reviewID string) (domain.Review, error)
	FindByOrderProduct(ctx context.Context, orderID string, productID string) (domain.Review, error)
	ListByProduct(ctx context.Context, productID string, filter ReviewListFilter) (domain.CursorPage[domain.Review], error)
	ListByStatus(ctx context.Context, status domain.ReviewStatus, pager domain.Pagination) (domain.CursorPage[domain.Review], error)
	UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus, update ReviewModerationUpdate) (domain.Review, error)
}

// UserRepository stores customer accounts keyed by ID with a unique email index.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// OTPRepository stores hashed one-time passcode challenges.
type OTPRepository interface {
	Insert(ctx context.Context, challenge domain.OTPChallenge) error
	FindActive(ctx context.Context, target string, purpose domain.OTPPurpose) (domain.OTPChallenge, error)
	Update(ctx context.Context, challenge domain.OTPChallenge) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// AuditLogRepository persists immutable audit trail entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type OrderListFilter struct {
	UserID          string
	Status          []string
	PaymentIntentID *string
	DateRange       domain.RangeQuery[time.Time]
	Pagination      domain.Pagination
}

type ProductListFilter struct {
	Status     []string
	Category   *string
	Brand      *string
	Tags       []string
	Pagination domain.Pagination
}

type BlogListFilter struct {
	Status        []string
	Tag           *string
	OnlyPublished bool
	Pagination    domain.Pagination
}

type ReviewListFilter struct {
	Status     []domain.ReviewStatus
	MinRating  *int
	Pagination domain.Pagination
}

// ReviewModerationUpdate carries moderation metadata for status transitions.
type ReviewModerationUpdate struct {
	ModeratedBy string
	ModeratedAt time.Time
}

type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	ActorType  string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
