package ratelimit

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

// Middleware rejects requests over the limit with 429 RATE_LIMITED. Keys
// combine prefix, route path and client IP. A limiter error lets the request through.
func Middleware(limiter Limiter, prefix string) fiber.Handler {
	if limiter == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		key := prefix + ":" + c.Path() + ":" + c.IP()
		d, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return apperrors.NewRateLimited(secs)
		}
		return c.Next()
	}
}
