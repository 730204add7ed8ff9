package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/scim-mock-server/internal/observability"
	"github.com/noah-isme/scim-mock-server/internal/utils"
)

// ReasonRateLimit marks responses throttled by RateLimit.
const ReasonRateLimit = "rate_limit"

// RateLimit throttles each client IP to max requests per window so callers
// can exercise their 429 handling. A max of zero disables the limiter.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if window <= 0 {
		window = time.Second
	}

	statusLabel := strconv.Itoa(fiber.StatusTooManyRequests)
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return identifier + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.InjectedFailures().WithLabelValues(ReasonRateLimit, statusLabel).Inc()
			return utils.SendSCIMError(c, fiber.StatusTooManyRequests, "")
		},
	})
}
