package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/glowcart/api/internal/platform/firestore"
	"github.com/glowcart/api/internal/repositories"
)

// Registry bundles every Firestore-backed repository behind the
// repositories.Registry interface for dependency injection.
type Registry struct {
	provider *pfirestore.Provider

	orders     *OrderRepository
	carts      *CartRepository
	products   *ProductRepository
	coupons    *CouponRepository
	banners    *BannerRepository
	blogPosts  *BlogRepository
	content    *ContentRepository
	newsletter *NewsletterRepository
	reviews    *ReviewRepository
	users      *UserRepository
	otp        *OTPRepository
	auditLogs  *AuditLogRepository
	counters   *CounterRepository
	health     repositories.HealthRepository
}

// NewRegistry wires all repositories over a shared Firestore provider. The
// health repository is supplied by the caller since its dependency checks span
// more than Firestore.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	if health == nil {
		return nil, errors.New("registry requires health repository")
	}

	reg := &Registry{provider: provider, health: health}

	var err error
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, err
	}
	if reg.carts, err = NewCartRepository(provider); err != nil {
		return nil, err
	}
	if reg.products, err = NewProductRepository(provider); err != nil {
		return nil, err
	}
	if reg.coupons, err = NewCouponRepository(provider); err != nil {
		return nil, err
	}
	if reg.banners, err = NewBannerRepository(provider); err != nil {
		return nil, err
	}
	if reg.blogPosts, err = NewBlogRepository(provider); err != nil {
		return nil, err
	}
	if reg.content, err = NewContentRepository(provider); err != nil {
		return nil, err
	}
	if reg.newsletter, err = NewNewsletterRepository(provider); err != nil {
		return nil, err
	}
	if reg.reviews, err = NewReviewRepository(provider); err != nil {
		return nil, err
	}
	if reg.users, err = NewUserRepository(provider); err != nil {
		return nil, err
	}
	if reg.otp, err = NewOTPRepository(provider); err != nil {
		return nil, err
	}
	if reg.auditLogs, err = NewAuditLogRepository(provider); err != nil {
		return nil, err
	}
	if reg.counters, err = NewCounterRepository(provider); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

func (r *Registry) Orders() repositories.OrderRepository           { return r.orders }
func (r *Registry) Carts() repositories.CartRepository             { return r.carts }
func (r *Registry) Products() repositories.ProductRepository       { return r.products }
func (r *Registry) Coupons() repositories.CouponRepository         { return r.coupons }
func (r *Registry) Banners() repositories.BannerRepository         { return r.banners }
func (r *Registry) BlogPosts() repositories.BlogRepository         { return r.blogPosts }
func (r *Registry) Content() repositories.ContentRepository        { return r.content }
func (r *Registry) Newsletter() repositories.NewsletterRepository  { return r.newsletter }
func (r *Registry) Reviews() repositories.ReviewRepository         { return r.reviews }
func (r *Registry) Users() repositories.UserRepository             { return r.users }
func (r *Registry) OTP() repositories.OTPRepository                { return r.otp }
func (r *Registry) AuditLogs() repositories.AuditLogRepository     { return r.auditLogs }
func (r *Registry) Counters() repositories.CounterRepository       { return r.counters }
func (r *Registry) Health() repositories.HealthRepository          { return r.health }

// RunInTx executes fn inside a Firestore transaction. Repository calls made
// inside fn still issue their own reads and writes; the transaction scopes
// failure handling for callers that need atomic multi-document updates.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.provider.RunTransaction(ctx, func(txCtx context.Context, _ *firestore.Transaction) error {
		return fn(txCtx)
	})
}
