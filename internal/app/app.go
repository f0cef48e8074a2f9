package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/harunzafer/fastsvelte/internal/ai"
	"github.com/harunzafer/fastsvelte/internal/auth"
	"github.com/harunzafer/fastsvelte/internal/billing"
	"github.com/harunzafer/fastsvelte/internal/cache"
	"github.com/harunzafer/fastsvelte/internal/config"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/event"
	handler "github.com/harunzafer/fastsvelte/internal/handler/http"
	"github.com/harunzafer/fastsvelte/internal/oauth"
	"github.com/harunzafer/fastsvelte/internal/repository/postgres"
	"github.com/harunzafer/fastsvelte/internal/service"
	"github.com/harunzafer/fastsvelte/migrations"
	"github.com/harunzafer/fastsvelte/pkg/database"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
	"github.com/harunzafer/fastsvelte/pkg/health"
	"github.com/harunzafer/fastsvelte/pkg/httpclient"
	pkgkafka "github.com/harunzafer/fastsvelte/pkg/kafka"
	"github.com/harunzafer/fastsvelte/pkg/tracing"
)

const (
	serviceName = "fastsvelte-api"

	webhookDedupTTL = 24 * time.Hour
	eventDedupTTL   = 24 * time.Hour
)

// App wires together all dependencies and runs the API server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	cancelJWKS     context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// Redis and Kafka are optional: without them claims are kept in memory and
// onboarding runs inline.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracerShutdown, err := tracing.Init(ctx, tracing.NewConfig(serviceName, cfg.Environment, cfg.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, database.DefaultPostgresConfig(cfg.DatabaseURL), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL")

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = rdb
		logger.Info("connected to Redis")
	}

	var nonces cache.Claimer
	if cfg.OAuthStateSingleUse {
		nonces = a.claimer("oauth:nonce:", auth.StateTTL)
	}
	webhookSeen := a.claimer("stripe:event:", webhookDedupTTL)

	// Kafka
	var publisher pkgkafka.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	events := event.NewProducer(publisher, logger)

	// Outbound HTTP
	googleHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("google"),
		logger,
	)
	openaiCfg := httpclient.DefaultConfig()
	openaiCfg.Timeout = 30 * time.Second
	openaiCfg.MaxRetries = 1
	openaiHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(openaiCfg),
		httpclient.DefaultCircuitBreakerConfig("openai"),
		logger,
	)
	stripeHTTP := httpclient.New(httpclient.DefaultConfig())

	// Repositories
	tx := postgres.NewTransactor(pool)
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	orgRepo := postgres.NewOrganizationRepository(pool)
	oauthRepo := postgres.NewOAuthAccountRepository(pool)
	planRepo := postgres.NewPlanRepository(pool)
	orgPlanRepo := postgres.NewOrganizationPlanRepository(pool)
	usageRepo := postgres.NewUsageRepository(pool)
	noteRepo := postgres.NewNoteRepository(pool)

	// Services
	b2b := cfg.Mode == config.ModeB2B
	sessions := service.NewSessionManager(sessionRepo, userRepo, cfg.SessionMaxAge, cfg.SessionRefreshThreshold, logger)
	authSvc := service.NewAuthService(tx, userRepo, sessions, events, service.AuthOptions{
		B2B:                      b2b,
		RequireEmailVerification: cfg.RequireEmailVerification,
	}, logger)
	userSvc := service.NewUserService(userRepo, sessions, logger)
	resolver := service.NewPlanResolver(planRepo, orgPlanRepo, orgRepo)
	quotaSvc := service.NewQuotaService(resolver, usageRepo, logger)
	summarizer := ai.NewOpenAI(ai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	}, openaiHTTP)
	noteSvc := service.NewNoteService(noteRepo, quotaSvc, summarizer, logger)
	gateway := billing.NewStripeGateway(cfg.StripeAPIKey, billing.Options{HTTPClient: stripeHTTP.HTTPClient()})
	subscriptionSvc := service.NewSubscriptionService(gateway, orgRepo, planRepo, orgPlanRepo, resolver, webhookSeen, events,
		service.SubscriptionConfig{B2B: b2b, BaseWebURL: cfg.BaseWebURL}, logger)
	onboardingSvc := service.NewOnboardingService(orgRepo, userRepo, resolver, subscriptionSvc, events, logger)

	var oauthLogin handler.OAuthLogin = oauthUnavailable{}
	if cfg.GoogleClientID != "" {
		jwksCtx, cancelJWKS := context.WithCancel(context.Background())
		google, err := oauth.NewGoogle(jwksCtx, oauth.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
		}, googleHTTP)
		if err != nil {
			cancelJWKS()
			a.closeStores()
			return nil, fmt.Errorf("init google oauth: %w", err)
		}
		a.cancelJWKS = cancelJWKS
		oauthLogin = service.NewOAuthService(google, auth.NewStateSigner(cfg.StateSecret()), nonces,
			tx, userRepo, oauthRepo, sessions, events, b2b, logger)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, google login disabled")
	}

	if a.producer != nil {
		store := a.idempotencyStore()
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:      cfg.KafkaBrokers,
			GroupID:      event.OnboardingGroup,
			Topics:       []string{event.TopicOrganizationFirstSeen},
			MinBytes:     1,
			MaxBytes:     10e6,
			RetryBackoff: time.Second,
		}, pkgkafka.IdempotentHandler(store, event.OnboardingHandler(onboardingSvc, logger), logger), a.dlq, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return a.producer.Ping(ctx)
		})
	}

	cookies := auth.NewCookieManager(cfg.SessionCookieName, cfg.SessionMaxAge, cfg.IsDevelopment())
	router := handler.NewRouter(handler.RouterConfig{
		Auth:           handler.NewAuthHandler(authSvc, oauthLogin, cookies, cfg.BaseWebURL, logger),
		Users:          handler.NewUserHandler(userSvc, onboardingSvc, quotaSvc, logger),
		Notes:          handler.NewNoteHandler(noteSvc, logger),
		Billing:        handler.NewBillingHandler(subscriptionSvc, billing.NewWebhookVerifier(cfg.StripeWebhookSecret), logger),
		Cron:           handler.NewCronHandler(sessions, cfg.SessionRetentionDays, logger),
		Health:         healthHandler,
		Sessions:       sessions,
		Cookies:        cookies,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		CronSecret:     cfg.CronSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// claimer prefers Redis so claims are shared across replicas.
func (a *App) claimer(prefix string, ttl time.Duration) cache.Claimer {
	if a.redis != nil {
		return cache.NewRedisClaimer(a.redis, prefix, ttl)
	}
	return cache.NewMemoryClaimer(ttl)
}

func (a *App) idempotencyStore() pkgkafka.IdempotencyStore {
	if a.redis != nil {
		return pkgkafka.NewRedisIdempotencyStore(a.redis, "kafka:processed:", eventDedupTTL)
	}
	return pkgkafka.NewMemoryIdempotencyStore(eventDedupTTL)
}

// Run starts the HTTP server and the onboarding consumer, and blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	var wg sync.WaitGroup
	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.logger.Info("starting onboarding consumer", slog.String("group", event.OnboardingGroup))
			if err := a.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("onboarding consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("mode", a.cfg.Mode),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	err := a.Shutdown()
	wg.Wait()
	return errors.Join(runErr, err)
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Kafka consumer, then the producers
// 3. Tracer (flush pending spans)
// 4. Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.cancelJWKS != nil {
		a.cancelJWKS()
	}
	a.closeStores()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// oauthUnavailable answers Google login routes when no client is configured.
type oauthUnavailable struct{}

func (oauthUnavailable) LoginURL() (string, error) {
	return "", apperrors.Unavailable("google", errors.New("oauth client not configured"))
}

func (oauthUnavailable) Callback(context.Context, string, string) (*domain.User, string, error) {
	return nil, "", apperrors.Unavailable("google", errors.New("oauth client not configured"))
}
