package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jampad-booking/internal/config"
)

// VenueHandler lists the bookable rooms and pricing.
type VenueHandler struct {
	Cfg config.BookingConfig
}

// List handles GET /v1/venues.
func (h *VenueHandler) List(c echo.Context) error {
	venues := h.Cfg.Venues
	if venues == nil {
		venues = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"venues":           venues,
		"slot_price_minor": h.Cfg.SlotPriceMinor,
		"currency":         h.Cfg.Currency,
		"hold_minutes":     int(h.Cfg.PendingTTL.Minutes()),
	})
}
