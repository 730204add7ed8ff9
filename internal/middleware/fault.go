package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/scim-mock-server/internal/observability"
	"github.com/noah-isme/scim-mock-server/internal/utils"
)

// Injected failure reasons recorded in mock_injected_failures_total.
const (
	ReasonMediaType  = "media_type"
	ReasonConfigured = "configured"
)

// RequireSCIMMediaType rejects POST and PUT requests whose Content-Type is
// not application/scim+json.
func RequireSCIMMediaType() fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != fiber.MethodPost && method != fiber.MethodPut {
			return c.Next()
		}

		mediaType, _, _ := strings.Cut(c.Get(fiber.HeaderContentType), ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), utils.MIMESCIMJSON) {
			return c.Next()
		}

		observability.InjectedFailures().
			WithLabelValues(ReasonMediaType, strconv.Itoa(fiber.StatusUnsupportedMediaType)).
			Inc()
		return utils.SendSCIMError(c, fiber.StatusUnsupportedMediaType, "content type must be "+utils.MIMESCIMJSON)
	}
}

// FailWith lets the wrapped handlers run, so the request is still journaled,
// and then replaces their response with a SCIM error carrying status.
// A status of zero disables the middleware.
func FailWith(status int) fiber.Handler {
	if status == 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	statusLabel := strconv.Itoa(status)
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		observability.InjectedFailures().WithLabelValues(ReasonConfigured, statusLabel).Inc()
		return utils.SendSCIMError(c, status, "")
	}
}
