package observability

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UnmatchedRoute labels requests that no registered route handled.
const UnmatchedRoute = "unmatched"

const routeLabelKey = "observability.route"

// RequestLogger logs each request and records it in metrics. Register it
// before the error-handling middleware so the final status is known.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		metrics.RecordRequest(RouteLabel(c, err), c.Method(), status, latency)

		logger.Info("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

// RouteLabel returns the registered route template handling c, never the
// raw path, so metric keys stay bounded. Routing misses share
// UnmatchedRoute. The first label computed for a request is kept, letting
// outer middleware reuse what an inner one saw before it swallowed err.
func RouteLabel(c *fiber.Ctx, err error) string {
	if label, ok := c.Locals(routeLabelKey).(string); ok && label != "" {
		return label
	}

	label := UnmatchedRoute
	var fe *fiber.Error
	routingMiss := errors.As(err, &fe) && fe.Code == fiber.StatusNotFound
	if r := c.Route(); !routingMiss && r != nil && r.Path != "" {
		label = r.Path
	}
	c.Locals(routeLabelKey, label)
	return label
}
