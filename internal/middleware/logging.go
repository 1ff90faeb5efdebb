// Package middleware provides request logging and admin authorization
// middleware for the application.
package middleware

import (
	"log/slog"
	"time"

	"murmur/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// RequestLogging logs one structured line per request and threads a
// correlation ID through the request context.
func RequestLogging() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = observability.GenerateCorrelationID()
		}
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))
		c.Set("X-Correlation-ID", correlationID)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		observability.Logger.Info("request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("correlation_id", correlationID),
		)
		return err
	}
}
