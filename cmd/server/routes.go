package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes registers all HTTP routes
func registerRoutes(app *fiber.App, deps *Dependencies) {
	h := deps.Handlers

	// Probes and metrics (no auth required)
	h.Health.RegisterRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Public auth routes must be registered before the authenticated group,
	// whose middleware applies to every /v1 route registered after it.
	h.Auth.RegisterPublicRoutes(app.Group("/v1"))

	handlers := []fiber.Handler{deps.AuthMiddleware.RequireJWT()}
	if deps.RateLimitMiddleware != nil {
		handlers = append(handlers, deps.RateLimitMiddleware.Handler())
	}
	v1 := app.Group("/v1", handlers...)

	h.Auth.RegisterRoutes(v1)
	h.Organizations.RegisterRoutes(v1)
	h.People.RegisterRoutes(v1)
	h.Assignments.RegisterRoutes(v1)
	h.Exports.RegisterRoutes(v1)
}
