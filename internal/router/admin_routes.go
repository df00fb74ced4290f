package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jampad-booking/internal/handler"
	"github.com/iliyamo/jampad-booking/internal/middleware"
	"github.com/iliyamo/jampad-booking/internal/utils"
)

// RegisterAdmin registers the operator endpoints.  Login and logout are
// open (login is rate limited); everything else requires a valid JWT with
// the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	e.POST("/v1/admin/login", h.Login, limit)
	e.POST("/v1/admin/logout", h.Logout)

	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.GET("/bookings", h.ListBookings)
	g.POST("/bookings", h.CreateBooking)
	g.DELETE("/bookings/:id", h.DeleteBooking)
	g.GET("/contacts", h.ListContacts)
}
