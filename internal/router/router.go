package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/scim-mock-server/internal/config"
	"github.com/noah-isme/scim-mock-server/internal/handler"
	"github.com/noah-isme/scim-mock-server/internal/middleware"
	"github.com/noah-isme/scim-mock-server/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ResourceHandlers []*handler.ResourceHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/", handler.Home)
	app.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Fault injection only applies to the mocked resources.
	guards := []fiber.Handler{middleware.RateLimit("resources", cfg.RateLimitMax, cfg.RateLimitWindow)}
	if cfg.StrictMediaType {
		guards = append(guards, middleware.RequireSCIMMediaType())
	}
	guards = append(guards, middleware.FailWith(cfg.FailWith))

	for _, h := range deps.ResourceHandlers {
		if h == nil {
			continue
		}
		group := app.Group(h.Kind().Prefix(cfg.BasePath), guards...)
		h.Register(group)
	}
}
