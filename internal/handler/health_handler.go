package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/scim-mock-server/internal/config"
	"github.com/noah-isme/scim-mock-server/internal/utils"
)

// HomeMessage is returned by the root endpoint.
const HomeMessage = "GET request to the homepage"

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Resources   []string  `json:"resources"`
	LogDir      string    `json:"log_dir"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	resources := make([]string, 0, len(cfg.Resources))
	for _, kind := range cfg.Resources {
		resources = append(resources, kind.Prefix(cfg.BasePath))
	}

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Resources:   resources,
			LogDir:      cfg.LogDir,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

// Home answers the root endpoint.
func Home(c *fiber.Ctx) error {
	return c.SendString(HomeMessage)
}
