package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/jampad-booking/internal/model"
	"github.com/iliyamo/jampad-booking/internal/payment"
	"github.com/iliyamo/jampad-booking/internal/service"
)

// conflictView is the part of a conflicting booking shown to the requester.
type conflictView struct {
	VenueName string `json:"venue_name"`
	BandName  string `json:"band_name"`
	Date      string `json:"date"`
	Slots     string `json:"slots"`
	Status    string `json:"payment_status"`
}

func newConflictView(r *model.Reservation) *conflictView {
	if r == nil {
		return nil
	}
	return &conflictView{VenueName: r.VenueName, BandName: r.BandName, Date: r.Date, Slots: r.Slots, Status: string(r.PaymentStatus)}
}

// writeServiceError maps booking service errors to HTTP responses.
// Persistence and unexpected errors are logged and answered generically.
func writeServiceError(c echo.Context, err error) error {
	var (
		verr *service.ValidationError
		cerr *service.ConflictError
		perr *service.ProviderError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.As(err, &cerr):
		body := echo.Map{"error": "requested slots are already booked", "slots": cerr.Slots}
		if cerr.Existing == nil {
			body["error"] = "slots are being booked, please try again"
		} else {
			body["existing"] = newConflictView(cerr.Existing)
		}
		return c.JSON(http.StatusConflict, body)
	case errors.As(err, &perr) && perr.Status == payment.StatusFailed:
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment failed, the booking was released", "payment_status": perr.Status})
	case errors.As(err, &perr):
		log.Ctx(c.Request().Context()).Warn().Err(err).Msg("payment provider error")
		body := echo.Map{"error": "payment could not be processed, please try again"}
		if perr.Status != "" {
			body["payment_status"] = perr.Status
		}
		return c.JSON(http.StatusBadGateway, body)
	case errors.Is(err, service.ErrPendingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found or expired"})
	case errors.Is(err, service.ErrBookingFinal):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is already confirmed"})
	}
	log.Ctx(c.Request().Context()).Error().Err(err).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
