package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/jampad-booking/internal/model"
	"github.com/iliyamo/jampad-booking/internal/payment"
	"github.com/iliyamo/jampad-booking/internal/service"
)

// BookingAPI is the booking service as seen by the handlers.
type BookingAPI interface {
	Submit(ctx context.Context, req service.BookingRequest) (*service.PendingBooking, error)
	Confirm(ctx context.Context, token string) (*model.Reservation, error)
	ConfirmByPayment(ctx context.Context, paymentID string) (*model.Reservation, error)
	Cancel(ctx context.Context, token string) error
	Availability(ctx context.Context, venue, date string) ([]string, error)
	AdminBook(ctx context.Context, req service.BookingRequest) (*model.Reservation, error)
}

// BookingHandler serves the public booking flow.
type BookingHandler struct {
	Svc     BookingAPI
	Cookies *PendingCookie
}

// NewBookingHandler wires the booking handler.
func NewBookingHandler(svc BookingAPI, cookies *PendingCookie) *BookingHandler {
	if svc == nil || cookies == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, Cookies: cookies}
}

// Submit handles POST /v1/bookings.  On success it answers 201 with the
// pending booking and the payment redirect, and sets the pending cookie.
func (h *BookingHandler) Submit(c echo.Context) error {
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	pending, err := h.Svc.Submit(c.Request().Context(), req)
	if err != nil {
		return writeServiceError(c, err)
	}
	if err := h.Cookies.Set(c, pending.Token, pending.ExpiresAt); err != nil {
		log.Ctx(c.Request().Context()).Warn().Err(err).Msg("pending cookie not set")
	}
	return c.JSON(http.StatusCreated, pending)
}

// resolveToken reads the :token parameter.  The value "current" selects the
// token stored in the pending cookie.
func (h *BookingHandler) resolveToken(c echo.Context) (string, bool) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "current" {
		return h.Cookies.Token(c)
	}
	return token, token != ""
}

// Confirm handles GET /v1/bookings/:token/confirm, the payment return URL.
func (h *BookingHandler) Confirm(c echo.Context) error {
	token, ok := h.resolveToken(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found or expired"})
	}
	res, err := h.Svc.Confirm(c.Request().Context(), token)
	if err != nil {
		return writeServiceError(c, err)
	}
	h.Cookies.Clear(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "booking confirmed", "booking": res})
}

// Cancel handles DELETE /v1/bookings/:token.
func (h *BookingHandler) Cancel(c echo.Context) error {
	token, ok := h.resolveToken(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found or expired"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), token); err != nil {
		return writeServiceError(c, err)
	}
	h.Cookies.Clear(c)
	return c.NoContent(http.StatusNoContent)
}

// Availability handles GET /v1/venues/:venue/slots?date=DD-MM-YYYY and
// returns the slot labels already taken.
func (h *BookingHandler) Availability(c echo.Context) error {
	venue := c.Param("venue")
	labels, err := h.Svc.Availability(c.Request().Context(), venue, c.QueryParam("date"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue": venue, "booked_slots": labels})
}

// webhookEvent accepts either a bare {"id": "<charge id>"} body or an Omise
// event envelope whose data object is the charge.
type webhookEvent struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Data *struct {
		Object string `json:"object"`
		ID     string `json:"id"`
	} `json:"data"`
}

func (e webhookEvent) chargeID() string {
	if e.Data != nil && e.Data.Object == "charge" && e.Data.ID != "" {
		return e.Data.ID
	}
	return e.ID
}

// PaymentWebhook handles POST /v1/payments/webhook.  The charge id taken
// from the body is only a hint: the service re-fetches the payment from the
// gateway before promoting anything.
func (h *BookingHandler) PaymentWebhook(c echo.Context) error {
	var ev webhookEvent
	if err := c.Bind(&ev); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	id := ev.chargeID()
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id is required"})
	}
	res, err := h.Svc.ConfirmByPayment(c.Request().Context(), id)
	var perr *service.ProviderError
	if errors.As(err, &perr) && perr.Status == payment.StatusFailed {
		// Terminal; the booking was released and there is nothing to retry.
		return c.JSON(http.StatusOK, echo.Map{"payment_status": perr.Status, "released": true})
	}
	if errors.As(err, &perr) && perr.Status != "" {
		// Not captured yet; the gateway will call again.
		return c.JSON(http.StatusAccepted, echo.Map{"payment_status": perr.Status})
	}
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": res.ID, "payment_status": res.PaymentStatus})
}
