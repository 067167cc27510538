package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware. Successful fast requests log
// at debug so steady-state traffic stays quiet; errors and slow requests log
// at warn.
func Logger(log zerolog.Logger) fiber.Handler {
	const slowThreshold = 500 * time.Millisecond

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		evt := log.Debug()
		if status >= 400 || latency >= slowThreshold {
			evt = log.Warn()
		}
		evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", latency).
			Msg("request completed")

		return err
	}
}
