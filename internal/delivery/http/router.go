package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// SetupRoutes configures all HTTP routes. metricsHandler may be nil when
// metrics are disabled.
func SetupRoutes(app *fiber.App, handler *Handler, metricsHandler nethttp.Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// Prometheus scrape endpoint
	if metricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))
	}

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Post("/detect", handler.Detect)
		api.Get("/incidents", handler.ListIncidents)
		api.Get("/incidents/:id", handler.GetIncident)
	}
}
