package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glowcart/api/internal/payments"
	"github.com/glowcart/api/internal/platform/config"
	"github.com/glowcart/api/internal/repositories"
	"github.com/glowcart/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Audit      services.AuditLogService
	Users      services.UserService
	Coupons    services.CouponService
	Carts      services.CartService
	Catalog    services.CatalogService
	Checkout   services.CheckoutService
	Orders     services.OrderService
	Reviews    services.ReviewService
	Banners    services.BannerService
	Blog       services.BlogService
	Content    services.ContentService
	Newsletter services.NewsletterService
	OTP        services.OTPService
	System     services.SystemService
}

// Infrastructure carries runtime collaborators whose lifecycle is owned by the
// caller rather than the repository registry.
type Infrastructure struct {
	Payments *payments.Manager
	Sessions services.SessionMinter
	Mailer   services.OTPMailer
	Events   services.OrderEventPublisher
	Build    services.BuildInfo
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, infra Infrastructure) (Services, error) {
	var svc Services
	logger := infra.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	auditSvc, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		Repository: reg.AuditLogs(),
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build audit log service: %w", err)
	}
	svc.Audit = auditSvc

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users: reg.Users(),
		Clock: time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	couponSvc, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: reg.Coupons(),
		Clock:   time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build coupon service: %w", err)
	}
	svc.Coupons = couponSvc

	pricer, err := services.NewCartPricingEngine(services.CartPricingEngineDeps{
		Coupons: couponSvc,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart pricing engine: %w", err)
	}

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository:      reg.Carts(),
		Products:        reg.Products(),
		Pricer:          pricer,
		Coupons:         couponSvc,
		Clock:           time.Now,
		DefaultCurrency: cfg.Checkout.Currency,
		Logger:          logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Carts = cartSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		Audit:    auditSvc,
		Clock:    time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Counters:   reg.Counters(),
		UnitOfWork: reg,
		Clock:      time.Now,
		Events:     infra.Events,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:    reg.Carts(),
		Products: reg.Products(),
		Orders:   orderSvc,
		Pricer:   pricer,
		Payments: infra.Payments,
		Config: services.CheckoutConfig{
			Currency:   cfg.Checkout.Currency,
			SuccessURL: cfg.Checkout.SuccessURL,
			CancelURL:  cfg.Checkout.CancelURL,
			EnableCOD:  cfg.Features.EnableCOD,
		},
		Clock:  time.Now,
		Logger: logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews: reg.Reviews(),
		Orders:  reg.Orders(),
		Clock:   time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build review service: %w", err)
	}
	svc.Reviews = reviewSvc

	bannerSvc, err := services.NewBannerService(services.BannerServiceDeps{
		Banners: reg.Banners(),
		Clock:   time.Now,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build banner service: %w", err)
	}
	svc.Banners = bannerSvc

	blogSvc, err := services.NewBlogService(services.BlogServiceDeps{
		Posts: reg.BlogPosts(),
		Clock: time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build blog service: %w", err)
	}
	svc.Blog = blogSvc

	contentSvc, err := services.NewContentService(services.ContentServiceDeps{
		Repository: reg.Content(),
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build content service: %w", err)
	}
	svc.Content = contentSvc

	newsletterSvc, err := services.NewNewsletterService(services.NewsletterServiceDeps{
		Subscribers: reg.Newsletter(),
		Clock:       time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build newsletter service: %w", err)
	}
	svc.Newsletter = newsletterSvc

	otpSvc, err := services.NewOTPService(services.OTPServiceDeps{
		Challenges: reg.OTP(),
		Users:      reg.Users(),
		Sessions:   infra.Sessions,
		Mailer:     infra.Mailer,
		Clock:      time.Now,
		OTPTTL:     cfg.Auth.OTPTTL,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build otp service: %w", err)
	}
	svc.OTP = otpSvc

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Counters:         reg.Counters(),
		Audit:            auditSvc,
		Clock:            time.Now,
		Build:            infra.Build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}
