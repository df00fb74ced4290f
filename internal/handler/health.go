package handler // HTTP handlers for the public, booking and admin endpoints

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Health is the liveness probe.  It returns "ok" with 200 as long as the
// process serves requests.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger checks a dependency.
type Pinger func(ctx context.Context) error

// Ready returns the readiness probe: 200 when ping succeeds, 503 otherwise.
func Ready(ping Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ping(c.Request().Context()); err != nil {
			log.Ctx(c.Request().Context()).Warn().Err(err).Msg("readiness check failed")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": "down"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready", "database": "up"})
	}
}
