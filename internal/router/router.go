package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jampad-booking/internal/handler"
)

// RegisterRoutes registers the probes: /healthz for liveness and /readyz,
// which checks the database.
func RegisterRoutes(e *echo.Echo, ready handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ready))
}

// RegisterPublic registers the unauthenticated read endpoints.  The venue
// list goes through the response cache; availability does not, since it
// changes with every booking.
func RegisterPublic(e *echo.Echo, v *handler.VenueHandler, b *handler.BookingHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/venues", v.List, cache)
	e.GET("/v1/venues/:venue/slots", b.Availability)
}
