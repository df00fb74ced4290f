package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// RequestLogger assigns every request an id (reusing X-Request-ID when the
// client sends one), attaches a request scoped zerolog logger to the
// request context and logs the completed request.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			id := req.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}
			c.Set(requestIDKey, id)
			c.Response().Header().Set(requestIDHeader, id)

			l := log.With().Str("request_id", id).Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = l.Error()
			case status >= 400:
				ev = l.Warn()
			default:
				ev = l.Info()
			}
			ev.Str("method", req.Method).
				Str("path", c.Path()).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Err(err).
				Msg("http request")
			return nil
		}
	}
}

// Recover converts panics into 500 responses and logs them.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("request_id", RequestID(c)).
						Str("method", c.Request().Method).
						Str("path", c.Path()).
						Interface("panic", r).
						Msg("recovered from panic")
					err = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
				}
			}()
			return next(c)
		}
	}
}
