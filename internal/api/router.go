// Package api provides the HTTP API for BreathClean.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/api/handler"
	"github.com/breathclean/breathclean/internal/api/middleware"
	"github.com/breathclean/breathclean/internal/auth"
	"github.com/breathclean/breathclean/internal/route"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	BuildTime     string
	Logger        zerolog.Logger
	ServiceName   string
	Metrics       *middleware.Metrics
	TokenVerifier *auth.Verifier
	ScoreService  handler.ScoreComputer
	RouteService  *route.Service
	Subsystems    map[string]handler.Pinger
	Providers     map[string]handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "breathclean-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Subsystems, cfg.Providers)
	scoreHandler := handler.NewScoreHandler(cfg.ScoreService, cfg.Logger)
	routeHandler := handler.NewRouteHandler(cfg.RouteService, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.TokenVerifier)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Score computation - expensive fan-out, strict rate limiting
		r.With(expensiveRateLimit, middleware.RequireJSON).Post("/scores:compute", scoreHandler.ComputeScores)

		// Saved routes (authenticated) - user-based rate limiting
		r.Route("/me/routes", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireJSON)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per user
			r.Get("/", routeHandler.ListRoutes)
			r.Post("/", routeHandler.SaveRoute)
			r.Route("/{routeId}", func(r chi.Router) {
				r.Get("/", routeHandler.GetRoute)
				r.Delete("/", routeHandler.DeleteRoute)
				r.Put("/favorite", routeHandler.SetFavorite)
			})
		})
	})

	return r
}
