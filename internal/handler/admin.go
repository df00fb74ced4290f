package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/jampad-booking/internal/middleware"
	"github.com/iliyamo/jampad-booking/internal/model"
	"github.com/iliyamo/jampad-booking/internal/repository"
	"github.com/iliyamo/jampad-booking/internal/service"
	"github.com/iliyamo/jampad-booking/internal/utils"
)

// ReservationAdmin is the store surface used by the admin endpoints.
type ReservationAdmin interface {
	ListOrderedByCreatedAtDesc(ctx context.Context, rng *repository.DateRange) ([]model.Reservation, error)
	DeleteByID(ctx context.Context, id uint64) (bool, error)
}

// AdminHandler serves the operator surface: login, booking management and
// the contact inbox.
type AdminHandler struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	TokenTTLMin  int
	SecureCookie bool

	Bookings ReservationAdmin
	Contacts ContactStore
	Svc      BookingAPI
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /v1/admin/login.  The credentials come from
// configuration; the token is returned in the body and as a cookie.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(req.Username)), []byte(h.Username)) == 1
	passOK := utils.VerifyPassword(h.PasswordHash, req.Password)
	if !userOK || !passOK {
		log.Ctx(c.Request().Context()).Warn().Str("username", req.Username).Str("ip", c.RealIP()).Msg("admin login rejected")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.JWTSecret, h.Username, utils.RoleAdmin, h.TokenTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    access.Token,
		Path:     "/v1/admin",
		Expires:  access.Exp,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"token": access.Token, "expires": access.Exp})
}

// Logout handles POST /v1/admin/logout by clearing the session cookie.
func (h *AdminHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{Name: middleware.AdminCookieName, Value: "", Path: "/v1/admin", MaxAge: -1, HttpOnly: true, Secure: h.SecureCookie})
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// ListBookings handles GET /v1/admin/bookings with optional from_date and
// to_date (YYYY-MM-DD) filters on the creation date.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	from, err := service.ParseStoreDate("from_date", c.QueryParam("from_date"))
	if err != nil {
		return writeServiceError(c, err)
	}
	to, err := service.ParseStoreDate("to_date", c.QueryParam("to_date"))
	if err != nil {
		return writeServiceError(c, err)
	}
	var rng *repository.DateRange
	if !from.IsZero() || !to.IsZero() {
		rng = &repository.DateRange{From: from, To: to}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	list, err := h.Bookings.ListOrderedByCreatedAtDesc(ctx, rng)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list, "count": len(list)})
}

// CreateBooking handles POST /v1/admin/bookings: the booking is persisted
// immediately without payment.
func (h *AdminHandler) CreateBooking(c echo.Context) error {
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Svc.AdminBook(c.Request().Context(), req)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// DeleteBooking handles DELETE /v1/admin/bookings/:id.  The delete is hard
// and unconditional; 404 when the id is unknown.
func (h *AdminHandler) DeleteBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ok, err := h.Bookings.DeleteByID(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	log.Ctx(c.Request().Context()).Info().Uint64("reservation_id", id).Msg("booking deleted by admin")
	return c.NoContent(http.StatusNoContent)
}

// ListContacts handles GET /v1/admin/contacts.
func (h *AdminHandler) ListContacts(c echo.Context) error {
	list, err := h.Contacts.List(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": list, "count": len(list)})
}
