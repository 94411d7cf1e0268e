package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/proposal-api/internal/auth"
	"github.com/straye-as/proposal-api/internal/config"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/http/handler"
	"github.com/straye-as/proposal-api/internal/http/middleware"
	"github.com/straye-as/proposal-api/internal/metrics"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/straye-as/proposal-api/docs" // registers the swagger spec
)

type Router struct {
	cfg               *config.Config
	logger            *zap.Logger
	metrics           *metrics.Metrics
	authMiddleware    *auth.Middleware
	rateLimiter       *middleware.RateLimiter
	healthHandler     *handler.HealthHandler
	pricingHandler    *handler.PricingHandler
	volumeTierHandler *handler.VolumeTierHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *metrics.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	healthHandler *handler.HealthHandler,
	pricingHandler *handler.PricingHandler,
	volumeTierHandler *handler.VolumeTierHandler,
) *Router {
	rateLimiter.ExemptSystemCallers(authMiddleware.IsSystemCaller)
	return &Router{
		cfg:               cfg,
		logger:            logger,
		metrics:           metrics,
		authMiddleware:    authMiddleware,
		rateLimiter:       rateLimiter,
		healthHandler:     healthHandler,
		pricingHandler:    pricingHandler,
		volumeTierHandler: volumeTierHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(rt.metrics.Middleware)
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", rt.healthHandler.Live)
	r.Get("/health/db", rt.healthHandler.Database)
	r.Handle("/metrics", rt.metrics.Handler())

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	writers := rt.authMiddleware.RequireRole(domain.RoleAdmin, domain.RoleSales, domain.RoleAPIService)
	admins := rt.authMiddleware.RequireRole(domain.RoleAdmin, domain.RoleAPIService)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.Limit)

		r.Route("/proposals/{id}", func(r chi.Router) {
			r.Get("/totals", rt.pricingHandler.GetTotals)
			r.Get("/margin-analysis", rt.pricingHandler.MarginAnalysis)
			r.Get("/audit-log", rt.pricingHandler.AuditLog)

			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/calculate", rt.pricingHandler.Calculate)
				r.Put("/discount", rt.pricingHandler.ApplyDiscount)
				r.Delete("/discount", rt.pricingHandler.RemoveDiscount)
				r.Put("/pax", rt.pricingHandler.UpdatePax)
			})
		})

		r.Route("/volume-discounts", func(r chi.Router) {
			r.Get("/", rt.volumeTierHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(admins)
				r.Post("/", rt.volumeTierHandler.Create)
				r.Put("/{tierId}", rt.volumeTierHandler.Update)
			})
		})
	})

	return r
}
