package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/glowcart/api/internal/di"
	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/handlers"
	"github.com/glowcart/api/internal/mail"
	"github.com/glowcart/api/internal/payments"
	"github.com/glowcart/api/internal/platform/auth"
	"github.com/glowcart/api/internal/platform/config"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
	"github.com/glowcart/api/internal/platform/idempotency"
	"github.com/glowcart/api/internal/platform/jobs"
	"github.com/glowcart/api/internal/platform/observability"
	"github.com/glowcart/api/internal/platform/secrets"
	"github.com/glowcart/api/internal/repositories"
	firestoreRepo "github.com/glowcart/api/internal/repositories/firestore"
	"github.com/glowcart/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	requiredSecrets := requiredSecretNames(envValues)
	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecrets...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()

	orderTopic := pubsubClient.Topic(cfg.Events.OrderTopic)
	defer orderTopic.Stop()
	orderEvents, err := jobs.NewPubSubOrderEventPublisher(orderTopic)
	if err != nil {
		logger.Fatal("failed to initialise order event publisher", zap.Error(err))
	}

	mailSender := newMailSender(logger.Named("mail"), cfg.Mail)
	otpMailer, err := mail.NewOTPMailer(mailSender, cfg.Auth.OTPTTL)
	if err != nil {
		logger.Fatal("failed to initialise otp mailer", zap.Error(err))
	}

	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.PSP.StripeAPIKey,
		Logger: eventLogger(logger.Named("payments")),
		Clock:  time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe payment provider", zap.Error(err))
	}
	paymentManager, err := payments.NewManager(
		map[string]payments.Provider{"stripe": stripeProvider},
		payments.WithDefaultProvider("stripe"),
	)
	if err != nil {
		logger.Fatal("failed to initialise payment manager", zap.Error(err))
	}

	sessionIssuer, err := auth.NewSessionIssuer(cfg.Auth.JWTSigningKey, cfg.Auth.SessionTTL)
	if err != nil {
		logger.Fatal("failed to initialise session issuer", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(sessionIssuer)

	healthRepo, err := newHealthRepository(firestoreClient, fetcher)
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider, healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise repository registry", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Infrastructure{
		Payments: paymentManager,
		Sessions: sessionIssuer,
		Mailer:   otpMailer,
		Events:   orderEvents,
		Build:    buildInfo,
		Logger:   eventLogger(logger.Named("services")),
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}

	// Admin refunds trigger the outbound Stripe call; the webhook settles them.
	orderService := &cardRefundingOrderService{
		OrderService: container.Services.Orders,
		payments:     paymentManager,
		logger:       logger.Named("refunds"),
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	// The mail dispatcher consumes the order topic in-process. Deploys that
	// split it into its own binary only need this block moved.
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	var dispatcherWG sync.WaitGroup
	mailSub := pubsubClient.Subscription(cfg.Events.OrderTopic + "-mail")
	dispatcher, err := mail.NewDispatcher(mail.DispatcherDeps{
		Subscription: mailSub,
		Sender:       mailSender,
		Logger:       eventLogger(logger.Named("mail")),
	})
	if err != nil {
		logger.Fatal("failed to initialise mail dispatcher", zap.Error(err))
	}
	dispatcherWG.Add(1)
	go func() {
		defer dispatcherWG.Done()
		if err := dispatcher.Run(dispatcherCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("mail dispatcher stopped", zap.Error(err))
		}
	}()

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(container.Services.System),
	)

	publicHandlers := handlers.NewPublicHandlers(
		handlers.WithPublicBlogService(container.Services.Blog),
		handlers.WithPublicBannerService(container.Services.Banners),
		handlers.WithPublicContentService(container.Services.Content),
		handlers.WithPublicNewsletterService(container.Services.Newsletter),
		handlers.WithPublicCatalogService(container.Services.Catalog),
		handlers.WithPublicReviewService(container.Services.Reviews),
		handlers.WithPublicWelcomeSender(mailSender),
		handlers.WithPublicBannerEventLimit(cfg.RateLimits.BannerEventsPerMinute),
		handlers.WithPublicLogger(eventLogger(logger.Named("public"))),
	)
	authHandlers := handlers.NewAuthHandlers(
		handlers.WithAuthOTPService(container.Services.OTP),
		handlers.WithAuthSendLimit(cfg.RateLimits.OTPPerMinute),
		handlers.WithAuthLogger(eventLogger(logger.Named("auth"))),
	)
	meHandlers := handlers.NewMeHandlers(authenticator, container.Services.Users)
	cartHandlers := handlers.NewCartHandlers(authenticator, container.Services.Carts)
	checkoutHandlers := handlers.NewCheckoutHandlers(authenticator, container.Services.Checkout)
	orderHandlers := handlers.NewOrderHandlers(authenticator, orderService, container.Services.Reviews)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(authenticator, orderService, container.Services.System)
	adminCatalogHandlers := handlers.NewAdminCatalogHandlers(authenticator, container.Services.Catalog, container.Services.Coupons)
	adminContentHandlers := handlers.NewAdminContentHandlers(authenticator, container.Services.Banners, container.Services.Blog, container.Services.Content, container.Services.Newsletter)
	adminReviewHandlers := handlers.NewAdminReviewHandlers(authenticator, container.Services.Reviews)
	stripeWebhookHandlers := handlers.NewStripeWebhookHandlers(
		handlers.WithStripeCheckoutService(container.Services.Checkout),
		handlers.WithStripeOrderService(orderService),
		handlers.WithStripeSigningSecret(func(context.Context) (string, error) {
			return cfg.PSP.StripeWebhookSecret, nil
		}),
		handlers.WithStripeLogger(eventLogger(logger.Named("webhooks"))),
	)

	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		idempotencyMiddleware,
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithAuthRoutes(authHandlers.Routes),
		handlers.WithMeRoutes(func(r chi.Router) {
			meHandlers.Routes(r)
			r.Route("/cart", cartHandlers.Routes)
		}),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(func(r chi.Router) {
			r.Group(adminOrderHandlers.Routes)
			r.Group(adminCatalogHandlers.Routes)
			r.Group(adminContentHandlers.Routes)
			r.Group(adminReviewHandlers.Routes)
		}),
		handlers.WithWebhookRoutes(stripeWebhookHandlers.Routes),
	}
	if internalGuard := buildInternalGuard(logger.Named("auth"), cfg); internalGuard != nil {
		opts = append(opts, handlers.WithInternalMiddlewares(internalGuard))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("glowcart api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	dispatcherCancel()
	dispatcherWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

// eventLogger adapts zap to the event/fields logging closure services accept.
func eventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug(event, zFields...)
	}
}

func newMailSender(logger *zap.Logger, cfg config.MailConfig) mail.Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		logger.Warn("mail: no SMTP host configured; falling back to log sender")
		return &mail.LogSender{Logger: eventLogger(logger)}
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
	if err != nil {
		logger.Warn("mail: smtp sender init failed; falling back to log sender", zap.Error(err))
		return &mail.LogSender{Logger: eventLogger(logger)}
	}
	return sender
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newHealthRepository(client *firestore.Client, fetcher *secrets.Fetcher) (repositories.HealthRepository, error) {
	checks := make([]repositories.DependencyCheck, 0, 2)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok {
					switch st.Code() {
					case codes.NotFound:
						return nil
					}
				}
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	return repositories.NewDependencyHealthRepository(checks)
}

// buildInternalGuard protects the service-to-service route group. Google OIDC
// when an audience is configured, HMAC-signed requests otherwise.
func buildInternalGuard(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := observability.NewPrintfAdapter(logger)

	if audience := strings.TrimSpace(cfg.Security.OIDC.Audience); audience != "" {
		cache := auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL, auth.WithJWKSLogger(adapter))
		validator := auth.NewOIDCValidator(cache, auth.WithOIDCLogger(adapter))
		return validator.RequireOIDC(audience, cfg.Security.OIDC.Issuers)
	}

	hmacCfg := cfg.Security.HMAC
	if secret := strings.TrimSpace(hmacCfg.Secrets["internal"]); secret != "" {
		provider := auth.SecretProviderFunc(func(_ context.Context, name string) (string, error) {
			value := strings.TrimSpace(hmacCfg.Secrets[name])
			if value == "" {
				return "", fmt.Errorf("hmac secret %q not configured", name)
			}
			return value, nil
		})
		validator := auth.NewHMACValidator(provider, auth.NewInMemoryNonceStore(),
			auth.WithHMACLogger(adapter),
			auth.WithHMACHeaders(hmacCfg.SignatureHeader, hmacCfg.TimestampHeader, hmacCfg.NonceHeader),
			auth.WithHMACClockSkew(hmacCfg.ClockSkew),
			auth.WithHMACNonceTTL(hmacCfg.NonceTTL),
		)
		return validator.RequireHMAC("internal")
	}

	logger.Warn("auth: neither OIDC audience nor internal HMAC secret configured; internal routes disabled")
	return nil
}

// cardRefundingOrderService initiates the Stripe refund after staff record
// one against a card order. The orderId/refundId metadata lets the
// refund.updated webhook settle the matching entry.
type cardRefundingOrderService struct {
	services.OrderService
	payments *payments.Manager
	logger   *zap.Logger
}

func (s *cardRefundingOrderService) RecordRefund(ctx context.Context, cmd services.RecordRefundCommand) (services.Order, error) {
	order, err := s.OrderService.RecordRefund(ctx, cmd)
	if err != nil {
		return order, err
	}
	if order.PaymentMethod != domain.PaymentMethodCard || order.PaymentIntentID == nil || len(order.Refunds) == 0 {
		return order, nil
	}
	refund := order.Refunds[len(order.Refunds)-1]
	if refund.Status != domain.RefundStatusPending {
		return order, nil
	}

	amount := refund.Amount
	_, err = s.payments.Refund(ctx, payments.PaymentContext{Currency: order.Currency}, payments.RefundRequest{
		IntentID:       *order.PaymentIntentID,
		Amount:         &amount,
		Reason:         refund.Reason,
		IdempotencyKey: refund.ID,
		Metadata: map[string]string{
			"orderId":  order.ID,
			"refundId": refund.ID,
		},
	})
	if err != nil {
		// The refund entry stays pending; staff settle or retry it manually
		// once the provider issue clears.
		s.logger.Error("stripe refund request failed",
			zap.String("order_id", order.ID),
			zap.String("refund_id", refund.ID),
			zap.Error(err))
	}
	return order, nil
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		if value, ok := env[key]; ok {
			return strings.TrimSpace(value)
		}
		return ""
	}

	envLabel := strings.ToLower(lookup("API_SECURITY_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	projectMap := secretProjectMapFromEnv(env)
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIRESTORE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	versionPins := secretVersionPinsFromEnv(env)
	credentialsFile := lookup("API_SECRET_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if len(projectMap) > 0 {
		opts = append(opts, secrets.WithProjectMap(projectMap))
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if len(versionPins) > 0 {
		opts = append(opts, secrets.WithVersionPins(versionPins))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

func requiredSecretNames(env map[string]string) []string {
	required := []string{
		"PSP.StripeAPIKey",
		"PSP.StripeWebhookSecret",
		"Auth.JWTSigningKey",
		"Webhooks.SigningSecret",
	}

	hmacRaw := ""
	if env != nil {
		hmacRaw = strings.TrimSpace(env["API_SECURITY_HMAC_SECRETS"])
	}
	for _, key := range parseHMACSecretKeys(hmacRaw) {
		required = append(required, fmt.Sprintf("Security.HMAC.Secrets[%s]", key))
	}

	return uniqueStrings(required)
}

func secretProjectMapFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["API_SECRET_PROJECT_IDS"]
	}
	raw = strings.TrimSpace(raw)
	projects := make(map[string]string)
	if raw == "" {
		return projects
	}
	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		envLabel := strings.ToLower(strings.TrimSpace(parts[0]))
		project := strings.TrimSpace(parts[1])
		if envLabel == "" || project == "" {
			continue
		}
		projects[envLabel] = project
	}
	return projects
}

func secretVersionPinsFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["API_SECRET_VERSION_PINS"]
	}
	raw = strings.TrimSpace(raw)
	pins := make(map[string]string)
	if raw == "" {
		return pins
	}
	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		ref := strings.TrimSpace(parts[0])
		version := strings.TrimSpace(parts[1])
		if ref == "" || version == "" {
			continue
		}
		var prefix string
		if idx := strings.Index(ref, ":"); idx > 0 {
			schemeSplit := strings.Index(ref, "://")
			if schemeSplit == -1 || idx < schemeSplit {
				prefix = strings.ToLower(strings.TrimSpace(ref[:idx])) + ":"
				ref = strings.TrimSpace(ref[idx+1:])
			}
		}
		if strings.HasPrefix(ref, "sm://") {
			ref = "secret://" + strings.TrimPrefix(ref, "sm://")
		} else if !strings.HasPrefix(ref, "secret://") {
			ref = "secret://" + ref
		}
		ref = prefix + ref
		pins[ref] = version
	}
	return pins
}

func parseHMACSecretKeys(raw string) []string {
	values := parseKeyValueList(raw)
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, strings.ToLower(key))
	}
	sort.Strings(keys)
	return keys
}

func parseKeyValueList(raw string) map[string]string {
	result := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return result
	}
	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	return result
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
