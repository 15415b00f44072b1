package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/marketplace/internal/adapter/http"
	"github.com/iho/marketplace/internal/adapter/http/handler"
	"github.com/iho/marketplace/internal/adapter/http/middleware"
	"github.com/iho/marketplace/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/marketplace/internal/adapter/repository/redis"
	"github.com/iho/marketplace/internal/adapter/skinport"
	"github.com/iho/marketplace/internal/infrastructure/auth"
	"github.com/iho/marketplace/internal/infrastructure/config"
	"github.com/iho/marketplace/internal/infrastructure/eventpublisher"
	"github.com/iho/marketplace/internal/infrastructure/logger"
	"github.com/iho/marketplace/internal/infrastructure/metrics"
	pginfra "github.com/iho/marketplace/internal/infrastructure/postgres"
	redisinfra "github.com/iho/marketplace/internal/infrastructure/redis"
	"github.com/iho/marketplace/internal/usecase"
)

const (
	limiterCleanupInterval = time.Minute
	poolStatsInterval      = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "marketplace: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := requireSecret(cfg); err != nil {
		return err
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := pginfra.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := pginfra.NewPoolWithConfig(ctx, pginfra.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to PostgreSQL")

	redisClient, err := redisinfra.NewClientWithConfig(ctx, redisinfra.ClientConfig{URL: cfg.RedisURL, Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to Redis")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Repositories
	txManager := postgres.NewTxManager(pool)
	productRepo := postgres.NewProductRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	purchaseRepo := postgres.NewPurchaseRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	retrier := postgres.NewRetrier().WithMaxRetries(cfg.PurchaseMaxRetries).WithLogger(log)

	cache := redisrepo.NewCache(redisClient)
	idempotencyStore := redisrepo.NewIdempotencyStore(redisClient)

	priceSource := skinport.NewClient(skinport.Config{
		BaseURL:      cfg.SkinportAPIHost,
		AppID:        cfg.SkinportAppID,
		Currency:     cfg.SkinportCurrency,
		Timeout:      cfg.SkinportTimeout,
		RateInterval: cfg.SkinportRateInterval,
		RateBurst:    cfg.SkinportRateBurst,
		MaxRetries:   cfg.SkinportMaxRetries,
	}, skinport.WithLogger(log), skinport.WithObserver(m.ObserveUpstream))

	// Use cases
	purchaseUC := usecase.NewPurchaseUseCase(
		txManager, productRepo, ledgerRepo, purchaseRepo, outboxRepo, retrier, postgres.NewULIDGenerator(),
	).WithRecorder(m).WithLogger(log)

	authUC := usecase.NewAuthUseCase(
		txManager, userRepo, sessionRepo,
		auth.NewJWTManager(cfg.SessionSecret),
		postgres.NewULIDGenerator(), postgres.NewUUIDGenerator(),
		cfg.SessionTTL,
	)

	catalogUC := usecase.NewCatalogUseCase(cache, priceSource, usecase.CatalogConfig{
		CacheKey:       cfg.CatalogCacheKey,
		TTL:            cfg.CatalogCacheTTL,
		RefreshTimeout: cfg.CatalogRefreshTimeout,
		Logger:         &log,
		Recorder:       m,
	})

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst).OnLimited(m.ObserveRateLimited)
	go authLimiter.RunCleanup(ctx, limiterCleanupInterval)
	go trackPoolStats(ctx, pool, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuthHandler:        handler.NewAuthHandler(authUC, cfg.CookieSecure, log).WithRecorder(m),
		PurchaseHandler:    handler.NewPurchaseHandler(purchaseUC, log),
		CatalogHandler:     handler.NewCatalogHandler(catalogUC, log),
		HealthHandler:      handler.NewHealthHandler(pool, redisClient),
		MetricsHandler:     promhttp.Handler(),
		Authenticator:      authUC,
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		AuthRateLimiter:    authLimiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log,
	})

	// Outbox worker
	publisher, closePublisher := newOutboxPublisher(cfg, log)
	defer closePublisher()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		err := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Publisher:  publisher,
			Logger:     &log,
			Observe:    m.ObserveOutbox,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
		}).Start(workerCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down servers...")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	catalogUC.Wait()

	stopWorker()
	<-workerDone

	log.Info().Msg("servers stopped")
	return nil
}

func requireSecret(cfg *config.Config) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	return nil
}

// newOutboxPublisher picks Kafka when brokers are configured and falls back to logging events.
func newOutboxPublisher(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info().Msg("no Kafka brokers configured, outbox events will be logged")
		return eventpublisher.NewLogPublisher(log), func() {}
	}

	kp := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing outbox events to Kafka")

	return kp, func() {
		if err := kp.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Kafka writer")
		}
	}
}

func trackPoolStats(ctx context.Context, pool *pgxpool.Pool, m *metrics.Metrics) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		m.SetDBConnections(pool.Stat().AcquiredConns())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
