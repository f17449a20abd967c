package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-billing/internal/config"     // rate limit configuration
	"github.com/iliyamo/hotel-billing/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/hotel-billing/internal/middleware" // import middleware for JWT authentication and rate limiting
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check used by load balancers
// and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI registers the authenticated portal API under /v1. Every
// route first passes JWT verification (which injects the tenant) and
// then the per-tenant token-bucket rate limiter; the limiter runs after
// authentication so it can key budgets by hotel.
func RegisterAPI(e *echo.Echo, o *handler.OrderHandler, b *handler.BillingHandler, h *handler.HotelHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.NewTokenBucket(rlCfg, rdb))

	// Order lifecycle: open a tab, inspect busy state, edit under the
	// caller's last observed version, transition to BILLED.
	v1.POST("/orders", o.Create)
	v1.GET("/orders", o.List)
	v1.PUT("/orders/:id", o.Update)
	v1.PATCH("/orders/:id", o.UpdateStatus)

	// Billing: atomic invoice generation and tenant-scoped retrieval.
	v1.POST("/billing/generate", b.Generate)
	v1.GET("/billing/invoice/:id", b.GetInvoice)
	v1.GET("/billing/invoices", b.ListInvoices)

	// Tenant profile used by the portal's floor view.
	v1.GET("/hotel", h.Get)
}
