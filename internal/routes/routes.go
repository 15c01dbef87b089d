package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/auth"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/handlers"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/middleware"
	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the /auth route group
type Options struct {
	RateLimit middleware.RateLimitConfig
	Cookie    auth.CookieConfig
	CSRF      middleware.CSRFConfig
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RegisterRoutes registers the login flow under /auth. Every route gets a
// client session cookie and CSRF protection; logout and me also require
// the persisted session token.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
	sessions auth.SessionStore,
	opts Options,
	logger *slog.Logger,
) {
	router.Route("/auth", func(r chi.Router) {
		r.Use(auth.ClientSession(opts.Cookie))
		r.Use(middleware.CSRFProtection(opts.CSRF, logger))

		r.Get("/login/status", authHandler.Status)

		// Credential and code submissions share the per-IP budget
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(opts.RateLimit))

			r.Post("/login", authHandler.Login)
			r.Post("/2fa/setup", authHandler.CompleteSetup)
			r.Post("/2fa/verify", authHandler.CompleteVerify)
			r.Post("/2fa/cancel", authHandler.Cancel)
			r.Post("/2fa/reset", authHandler.RequestReset)
			r.Post("/2fa/reset/consume", authHandler.ConsumeReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(tokenManager, sessions))

			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})
	})
}

// RegisterOps registers /health and /metrics
func RegisterOps(router chi.Router, db HealthChecker, gatherer prometheus.Gatherer) {
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})

	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
