// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventix/ticketing/internal/handler"
	"github.com/eventix/ticketing/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: the health check
// used by load balancers and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers authentication routes.  Unauthenticated
// operations live under /v1/auth; /v1/me and /v1/auth/logout require a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated catalog endpoints.  cache
// may be nil when response caching is disabled; availability is never
// cached because clients act on its numbers.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	e.GET("/v1/events", p.ListEvents, cache)
	e.GET("/v1/events/:id", p.GetEvent, cache)
	e.GET("/v1/venues", p.ListVenues, cache)
	e.GET("/v1/occurrences/:id/availability", p.GetAvailability)
}

// RegisterGateway registers the payment gateway callback.  The gateway
// authenticates by knowing the transaction ID it was handed at payment
// start, not by a user token.
func RegisterGateway(e *echo.Echo, p *handler.PaymentHandler) {
	e.POST("/v1/payments/callback", p.GatewayCallback)
}
