package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/numrent/internal/adapter/http"
	"github.com/iho/numrent/internal/adapter/http/handler"
	"github.com/iho/numrent/internal/adapter/http/middleware"
	"github.com/iho/numrent/internal/adapter/issuer/fivesim"
	postgresRepo "github.com/iho/numrent/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/numrent/internal/adapter/repository/redis"
	"github.com/iho/numrent/internal/infrastructure/auth"
	"github.com/iho/numrent/internal/infrastructure/config"
	"github.com/iho/numrent/internal/infrastructure/logger"
	"github.com/iho/numrent/internal/infrastructure/metrics"
	"github.com/iho/numrent/internal/infrastructure/postgres"
	"github.com/iho/numrent/internal/infrastructure/redis"
	"github.com/iho/numrent/internal/infrastructure/statuspoller"
	"github.com/iho/numrent/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	if cfg.MigrateOnStart {
		if err := migrate(cfg, l); err != nil {
			return err
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:     cfg.DatabaseURL,
		MaxConns:        cfg.DatabaseMaxConns,
		MinConns:        cfg.DatabaseMinConns,
		ConnectTimeout:  cfg.DatabaseTimeout,
		ApplicationName: "numrent",
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	l.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, redis.Options{
		URL:         cfg.RedisURL,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.RedisDialTimeout,
		ClientName:  "numrent",
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	l.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	rentalRepo := postgresRepo.NewRentalRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerTransactionRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	retrier := postgresRepo.NewRetrier(l)
	idGen := postgresRepo.NewULIDGenerator()

	pricingSettings := postgresRepo.NewPricingSettingsRepository(pool)
	pricingSource := redisRepo.NewPricingSource(
		pricingSettings,
		redisRepo.NewCache(redisClient, "numrent:cache:"),
		cfg.PricingCacheTTL,
		l,
	)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	issuer := fivesim.NewClient(fivesim.Config{
		BaseURL:        cfg.IssuerBaseURL,
		APIKey:         cfg.IssuerAPIKey,
		Operator:       cfg.IssuerOperator,
		Timeout:        cfg.IssuerTimeout,
		ReleaseRetries: cfg.IssuerReleaseRetries,
	}, m, l)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration, cfg.DelegationDuration)

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(accountRepo, idGen)
	pricingUC := usecase.NewPricingUseCase(issuer, pricingSource)
	if cfg.JWTSecret != "" {
		pricingUC = pricingUC.WithQuoteSigner(jwtManager, cfg.QuoteTTL)
	} else {
		l.Warn().Msg("no signing secret; quotes carry no token and acquire prices are only capped")
	}
	pricingAdminUC := usecase.NewPricingAdminUseCase(pricingSettings, pricingSource, auditRepo, idGen, l)
	walletUC := usecase.NewWalletUseCase(txManager, accountRepo, ledgerRepo, auditRepo, idGen, m)
	rentalUC := usecase.NewRentalUseCase(usecase.RentalUseCaseConfig{
		TxManager: txManager,
		Rentals:   rentalRepo,
		Accounts:  accountRepo,
		Wallet:    walletUC,
		Pricing:   pricingUC,
		Issuer:    issuer,
		AuditRepo: auditRepo,
		IDGen:     idGen,
		Retrier:   retrier,
		Metrics:   m,
		Logger:    l,
		RentalTTL: cfg.RentalTTL,
	})
	reconcileUC := usecase.NewReconciliationUseCase(accountRepo, ledgerRepo, rentalRepo, rentalUC, m, l)
	delegationUC := usecase.NewDelegationUseCase(accountRepo, jwtManager, auditRepo, idGen)

	// Initialize handlers
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	routerCfg := httpAdapter.RouterConfig{
		AccountHandler: handler.NewAccountHandler(accountUC),
		RentalHandler:  handler.NewRentalHandler(rentalUC),
		WalletHandler:  handler.NewWalletHandler(walletUC),
		PricingHandler: handler.NewPricingHandler(pricingUC),
		AdminHandler:   handler.NewAdminHandler(walletUC, delegationUC, reconcileUC),

		PricingAdminHandler: handler.NewPricingAdminHandler(pricingAdminUC),

		HealthHandler: handler.NewHealthHandler(
			handler.PingerFunc(pool.Ping),
			handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		),
		IdempotencyMiddleware: middleware.NewIdempotencyMiddleware(idempotencyStore, cfg.IdempotencyTTL, l),
		RateLimiter:           rateLimiter,
		MetricsHandler:        promhttp.Handler(),
		Logger:                l,
	}
	if cfg.AuthEnabled {
		routerCfg.Authenticator = jwtManager
	} else {
		l.Warn().Msg("token auth disabled; callers are identified by trusted headers")
	}

	server := newHTTPServer(cfg, httpAdapter.NewRouter(routerCfg))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down server...")
		shutdown(server, cfg.HTTPShutdownTimeout, l)
		return nil
	})

	if cfg.PollerEnabled {
		poller := statuspoller.New(statuspoller.Config{
			Rentals:      rentalUC,
			Issuer:       issuer,
			Metrics:      m,
			Logger:       l,
			BatchSize:    cfg.PollerBatchSize,
			Interval:     cfg.PollerInterval,
			RequestDelay: cfg.PollerRequestDelay,
			StuckAfter:   cfg.PollerStuckAfter,
		})
		g.Go(func() error {
			if err := poller.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("status poller: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		cleanupLimiters(gctx, rateLimiter, time.Hour)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	l.Info().Msg("server stopped")
	return nil
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           h,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
}

func shutdown(server *http.Server, timeout time.Duration, l zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}
}

func migrate(cfg *config.Config, l zerolog.Logger) error {
	migrator, err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, l)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(idle)
		}
	}
}
