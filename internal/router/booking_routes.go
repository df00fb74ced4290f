package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jampad-booking/internal/handler"
)

// RegisterBooking registers the visitor booking flow, the payment callback
// and the contact form.  Submissions that write to the store pass through
// limit, the token bucket rate limiter.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, ct *handler.ContactHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings")
	g.POST("", b.Submit, limit)
	// :token may be "current" to use the pending booking cookie.
	g.GET("/:token/confirm", b.Confirm)
	g.DELETE("/:token", b.Cancel)

	e.POST("/v1/payments/webhook", b.PaymentWebhook)
	e.POST("/v1/contact", ct.Submit, limit)
}
