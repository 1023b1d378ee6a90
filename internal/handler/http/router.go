package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/service"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/health"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/middleware"
)

// RouterConfig holds the knobs the router needs beyond its handlers.
type RouterConfig struct {
	TokenExpiry  time.Duration
	CookieSecure bool
	CORS         middleware.CORSConfig
}

// NewRouter creates a chi router with all explorer API routes registered.
func NewRouter(
	userService *service.UserService,
	explorerService *service.ExplorerService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("explorer-api"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("explorer"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler)
	r.Get("/health/ready", healthHandler.ReadinessHandler)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(userService, cfg.TokenExpiry, cfg.CookieSecure, logger)
	explorerHandler := NewExplorerHandler(explorerService, logger)
	dashboardHandler := NewDashboardHandler(explorerService, logger)

	// The session resolver validates the token and loads the identity once
	// per request.
	requireAuth := middleware.Auth(userService.ResolveSession)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.Get("/dashboard", dashboardHandler.List)
			r.Delete("/dashboard/search/{id}", dashboardHandler.DeleteSearch)
			r.Delete("/dashboard/image/{id}", dashboardHandler.DeleteImage)

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)

				r.Post("/search", explorerHandler.Search)
				r.Post("/image", explorerHandler.GenerateImage)
			})
		})
	})

	return r
}
