package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/iho/marketplace/internal/adapter/http/handler"
	"github.com/iho/marketplace/internal/adapter/http/middleware"
	"github.com/iho/marketplace/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	PurchaseHandler *handler.PurchaseHandler
	CatalogHandler  *handler.CatalogHandler
	HealthHandler   *handler.HealthHandler
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	Authenticator    middleware.Authenticator
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	// AuthRateLimiter throttles register and login per client.
	AuthRateLimiter    *middleware.RateLimiter
	CORSAllowedOrigins []string
	Logger             zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(corsHandler(cfg.CORSAllowedOrigins))

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	requireSession := middleware.AuthMiddleware(cfg.Authenticator, cfg.Logger)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", cfg.CatalogHandler.List)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.AuthRateLimiter != nil {
					r.Use(cfg.AuthRateLimiter.Limit)
				}
				r.Post("/register", cfg.AuthHandler.Register)
				r.Post("/login", cfg.AuthHandler.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Post("/logout", cfg.AuthHandler.Logout)
				r.Post("/change-password", cfg.AuthHandler.ChangePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Route("/purchases", func(r chi.Router) {
				// Idempotency keys are scoped to the session user, so this runs after auth.
				if cfg.IdempotencyStore != nil {
					r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
				}
				r.Post("/", cfg.PurchaseHandler.Create)
			})

			r.Get("/me/balance", cfg.PurchaseHandler.Balance)
			r.Get("/me/purchases", cfg.PurchaseHandler.List)
		})
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Credentials (the session cookie) are never shared with a wildcard origin.
	allowCredentials := true
	for _, o := range origins {
		if o == "*" {
			allowCredentials = false
			break
		}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.IdempotencyKeyHeader},
		ExposedHeaders:   []string{middleware.IdempotencyReplayHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}).Handler
}
