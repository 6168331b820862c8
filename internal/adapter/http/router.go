package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/numrent/internal/adapter/http/handler"
	"github.com/iho/numrent/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler *handler.AccountHandler
	RentalHandler  *handler.RentalHandler
	WalletHandler  *handler.WalletHandler
	PricingHandler *handler.PricingHandler
	AdminHandler   *handler.AdminHandler
	HealthHandler  *handler.HealthHandler

	PricingAdminHandler *handler.PricingAdminHandler

	// Authenticator verifies bearer tokens. When nil, callers are taken
	// from trusted headers.
	Authenticator         middleware.Authenticator
	IdempotencyMiddleware *middleware.IdempotencyMiddleware
	RateLimiter           *middleware.RateLimiter
	MetricsHandler        http.Handler
	Logger                zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Metrics)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Get("/metrics", metricsHandler.ServeHTTP)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		if cfg.Authenticator != nil {
			r.Use(middleware.AuthMiddleware(cfg.Authenticator))
		} else {
			r.Use(middleware.TrustedHeaders)
		}

		// Idempotency keys are scoped to the caller, so this runs after auth.
		if cfg.IdempotencyMiddleware != nil {
			r.Use(cfg.IdempotencyMiddleware.Wrap)
		}

		r.Get("/prices/{route}/{service}", cfg.PricingHandler.Quote)

		r.Route("/rentals", func(r chi.Router) {
			r.Post("/", cfg.RentalHandler.Acquire)
			r.Get("/", cfg.RentalHandler.List)
			r.Get("/{id}", cfg.RentalHandler.Get)
			r.Post("/{id}/cancel", cfg.RentalHandler.Cancel)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", cfg.WalletHandler.Balances)
			r.Get("/transactions", cfg.WalletHandler.Transactions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", cfg.AccountHandler.Create)
				r.Get("/", cfg.AccountHandler.List)
				r.Get("/{id}", cfg.AccountHandler.Get)
				r.Post("/{id}/deposits", cfg.AdminHandler.Deposit)
				r.Post("/{id}/block", cfg.AccountHandler.Block)
				r.Post("/{id}/unblock", cfg.AccountHandler.Unblock)
			})

			r.Post("/delegations", cfg.AdminHandler.Delegate)
			r.Get("/reconciliation", cfg.AdminHandler.Reconciliation)
			r.Post("/reconciliation/settle", cfg.AdminHandler.Settle)

			r.Route("/pricing", func(r chi.Router) {
				r.Put("/markup", cfg.PricingAdminHandler.SetMarkup)
				r.Put("/exchange-rate", cfg.PricingAdminHandler.SetExchangeRate)
				r.Put("/overrides/{route}/{service}", cfg.PricingAdminHandler.SetOverride)
				r.Delete("/overrides/{route}/{service}", cfg.PricingAdminHandler.DeleteOverride)
			})
		})
	})

	return r
}
