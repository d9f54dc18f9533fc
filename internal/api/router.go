// Package api provides the HTTP API for Scenify route planning.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/scenify/scenify/internal/api/handler"
	"github.com/scenify/scenify/internal/api/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Planner     handler.Planner

	// Protocol is the progress shape preferred when a client accepts both.
	Protocol string

	// RateLimit is the number of route computations allowed per client IP
	// per minute (default: 30).
	RateLimit int
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "scenify-api"
	}

	limit := middleware.RouteComputeRateLimit
	if cfg.RateLimit > 0 {
		limit = middleware.RateLimitConfig{RequestLimit: cfg.RateLimit, WindowLength: time.Minute}
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NoSniff)
	r.Use(middleware.CORS)

	opsHandler := handler.NewOpsHandler(cfg.Version)
	routesHandler := handler.NewRoutesHandler(handler.RoutesConfig{
		Planner:  cfg.Planner,
		Protocol: cfg.Protocol,
		Logger:   cfg.Logger,
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)

		r.With(middleware.RateLimitByIP(limit), middleware.RequireJSON).
			Post("/routes", routesHandler.ComputeRoutes)
	})

	return r
}
