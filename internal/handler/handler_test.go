package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/jampad-booking/internal/model"
	"github.com/iliyamo/jampad-booking/internal/payment"
	"github.com/iliyamo/jampad-booking/internal/repository"
	"github.com/iliyamo/jampad-booking/internal/service"
	"github.com/iliyamo/jampad-booking/internal/utils"
)

type fakeBookings struct {
	submitted   service.BookingRequest
	pending     *service.PendingBooking
	confirmed   string
	byPayment   string
	cancelled   string
	booked      []string
	err         error
	reservation *model.Reservation
}

func (f *fakeBookings) Submit(_ context.Context, req service.BookingRequest) (*service.PendingBooking, error) {
	f.submitted = req
	return f.pending, f.err
}

func (f *fakeBookings) Confirm(_ context.Context, token string) (*model.Reservation, error) {
	f.confirmed = token
	return f.reservation, f.err
}

func (f *fakeBookings) ConfirmByPayment(_ context.Context, id string) (*model.Reservation, error) {
	f.byPayment = id
	return f.reservation, f.err
}

func (f *fakeBookings) Cancel(_ context.Context, token string) error {
	f.cancelled = token
	return f.err
}

func (f *fakeBookings) Availability(context.Context, string, string) ([]string, error) {
	return f.booked, f.err
}

func (f *fakeBookings) AdminBook(_ context.Context, req service.BookingRequest) (*model.Reservation, error) {
	f.submitted = req
	return f.reservation, f.err
}

type fakeContacts struct {
	saved []model.ContactMessage
	err   error
}

func (f *fakeContacts) Insert(_ context.Context, m *model.ContactMessage) error {
	if f.err != nil {
		return f.err
	}
	m.ID = uint64(len(f.saved) + 1)
	f.saved = append(f.saved, *m)
	return nil
}

func (f *fakeContacts) List(context.Context) ([]model.ContactMessage, error) { return f.saved, f.err }

type fakeAdminStore struct {
	rng     *repository.DateRange
	deleted uint64
	exists  bool
}

func (f *fakeAdminStore) ListOrderedByCreatedAtDesc(_ context.Context, rng *repository.DateRange) ([]model.Reservation, error) {
	f.rng = rng
	return []model.Reservation{{ID: 2}, {ID: 1}}, nil
}

func (f *fakeAdminStore) DeleteByID(_ context.Context, id uint64) (bool, error) {
	f.deleted = id
	return f.exists, nil
}

func newCookies() *PendingCookie {
	return NewPendingCookie("0123456789abcdef0123456789abcdef", "", false)
}

func do(e *echo.Echo, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bookingServer(svc BookingAPI) *echo.Echo {
	e := echo.New()
	h := NewBookingHandler(svc, newCookies())
	e.POST("/v1/bookings", h.Submit)
	e.GET("/v1/bookings/:token/confirm", h.Confirm)
	e.DELETE("/v1/bookings/:token", h.Cancel)
	e.GET("/v1/venues/:venue/slots", h.Availability)
	e.POST("/v1/payments/webhook", h.PaymentWebhook)
	return e
}

func TestSubmitSetsPendingCookie(t *testing.T) {
	svc := &fakeBookings{pending: &service.PendingBooking{Token: "tok", ExpiresAt: time.Now().Add(time.Minute)}}
	e := bookingServer(svc)

	rec := do(e, http.MethodPost, "/v1/bookings", `{"jampad":"Pad1","bandName":"X","timeSlots":"10-11","bookingDate":"01-01-2026"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Pad1", svc.submitted.Venue)
	assert.Equal(t, "10-11", svc.submitted.Slots)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, PendingCookieName, cookies[0].Name)

	// The cookie resolves the "current" token on the return trip.
	svc.reservation = &model.Reservation{ID: 9, PaymentStatus: model.PaymentCompleted}
	rec = do(e, http.MethodGet, "/v1/bookings/current/confirm", "", cookies[0])
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", svc.confirmed)
}

func TestConfirmCurrentWithoutCookie(t *testing.T) {
	svc := &fakeBookings{}
	rec := do(bookingServer(svc), http.MethodGet, "/v1/bookings/current/confirm", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, svc.confirmed)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"email": "is required"}}, http.StatusBadRequest},
		{"conflict", &service.ConflictError{Existing: &model.Reservation{BandName: "Other"}, Slots: []string{"10-11"}}, http.StatusConflict},
		{"busy", &service.ConflictError{}, http.StatusConflict},
		{"provider", &service.ProviderError{Op: "create order", Err: errors.New("down")}, http.StatusBadGateway},
		{"payment failed", &service.ProviderError{Op: "verify payment", Status: payment.StatusFailed}, http.StatusPaymentRequired},
		{"persistence", &service.PersistenceError{Op: "insert", Err: errors.New("db")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(bookingServer(&fakeBookings{err: tt.err}), http.MethodPost, "/v1/bookings", `{}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestConflictBodyShowsExistingBooking(t *testing.T) {
	svc := &fakeBookings{err: &service.ConflictError{
		Existing: &model.Reservation{VenueName: "Pad1", BandName: "Other", Date: "2026-01-01", Slots: "10-11", ContactEmail: "secret@example.com"},
		Slots:    []string{"10-11"},
	}}
	rec := do(bookingServer(svc), http.MethodPost, "/v1/bookings", `{}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"band_name":"Other"`)
	assert.NotContains(t, rec.Body.String(), "secret@example.com")
}

func TestCancelAndNotFound(t *testing.T) {
	svc := &fakeBookings{}
	e := bookingServer(svc)
	rec := do(e, http.MethodDelete, "/v1/bookings/abc", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc", svc.cancelled)

	svc.err = service.ErrPendingNotFound
	rec = do(e, http.MethodDelete, "/v1/bookings/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailability(t *testing.T) {
	rec := do(bookingServer(&fakeBookings{booked: []string{"10-11"}}), http.MethodGet, "/v1/venues/Pad1/slots?date=01-01-2026", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Venue  string   `json:"venue"`
		Booked []string `json:"booked_slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Pad1", body.Venue)
	assert.Equal(t, []string{"10-11"}, body.Booked)
}

func TestPaymentWebhook(t *testing.T) {
	t.Run("event envelope", func(t *testing.T) {
		svc := &fakeBookings{reservation: &model.Reservation{ID: 4, PaymentStatus: model.PaymentCompleted}}
		rec := do(bookingServer(svc), http.MethodPost, "/v1/payments/webhook",
			`{"id":"evnt_1","key":"charge.complete","data":{"object":"charge","id":"chrg_1"}}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "chrg_1", svc.byPayment)
	})
	t.Run("bare id", func(t *testing.T) {
		svc := &fakeBookings{reservation: &model.Reservation{ID: 4}}
		do(bookingServer(svc), http.MethodPost, "/v1/payments/webhook", `{"id":"chrg_2"}`)
		assert.Equal(t, "chrg_2", svc.byPayment)
	})
	t.Run("not captured yet", func(t *testing.T) {
		svc := &fakeBookings{err: &service.ProviderError{Op: "confirm", Status: payment.StatusAuthorized}}
		rec := do(bookingServer(svc), http.MethodPost, "/v1/payments/webhook", `{"id":"chrg_3"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})
	t.Run("failed charge", func(t *testing.T) {
		svc := &fakeBookings{err: &service.ProviderError{Op: "verify payment", Status: payment.StatusFailed}}
		rec := do(bookingServer(svc), http.MethodPost, "/v1/payments/webhook", `{"id":"chrg_4"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"released":true`)
	})
	t.Run("missing id", func(t *testing.T) {
		rec := do(bookingServer(&fakeBookings{}), http.MethodPost, "/v1/payments/webhook", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestContactSubmit(t *testing.T) {
	store := &fakeContacts{}
	h := &ContactHandler{Store: store, Now: func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }}
	e := echo.New()
	e.POST("/v1/contact", h.Submit)

	rec := do(e, http.MethodPost, "/v1/contact", `{"name":"A","email":"a@example.com","phone":"1","subject":"Hi","message":" hello "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "2026-03-04", store.saved[0].Date)
	assert.Equal(t, "hello", store.saved[0].Message)

	rec = do(e, http.MethodPost, "/v1/contact", `{"name":"A","email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject":"is required"`)
	assert.Len(t, store.saved, 1)
}

func adminServer(t *testing.T, store *fakeAdminStore, svc BookingAPI) *echo.Echo {
	t.Helper()
	hash, err := utils.HashPassword("s3cret", 4)
	require.NoError(t, err)
	h := &AdminHandler{
		Username:     "admin",
		PasswordHash: hash,
		JWTSecret:    "test-secret",
		TokenTTLMin:  5,
		Bookings:     store,
		Contacts:     &fakeContacts{},
		Svc:          svc,
	}
	e := echo.New()
	e.POST("/login", h.Login)
	e.GET("/bookings", h.ListBookings)
	e.POST("/bookings", h.CreateBooking)
	e.DELETE("/bookings/:id", h.DeleteBooking)
	e.GET("/contacts", h.ListContacts)
	return e
}

func TestAdminLogin(t *testing.T) {
	e := adminServer(t, &fakeAdminStore{}, &fakeBookings{})

	rec := do(e, http.MethodPost, "/login", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/login", `{"username":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Equal(t, "/v1/admin", rec.Result().Cookies()[0].Path)
}

func TestAdminListBookingsFilters(t *testing.T) {
	store := &fakeAdminStore{}
	e := adminServer(t, store, &fakeBookings{})

	rec := do(e, http.MethodGet, "/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, store.rng)
	assert.Contains(t, rec.Body.String(), `"count":2`)

	rec = do(e, http.MethodGet, "/bookings?from_date=2026-01-01&to_date=2026-01-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.rng)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), store.rng.To)

	rec = do(e, http.MethodGet, "/bookings?from_date=01-01-2026", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCreateAndDelete(t *testing.T) {
	store := &fakeAdminStore{}
	svc := &fakeBookings{reservation: &model.Reservation{ID: 3, PaymentStatus: model.PaymentAdminBooking, IsAdminBooking: true}}
	e := adminServer(t, store, svc)

	rec := do(e, http.MethodPost, "/bookings", `{"jampad":"Pad1","bandName":"Walk-in","timeSlots":"10-11","bookingDate":"01-01-2026"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Walk-in", svc.submitted.BandName)
	assert.Contains(t, rec.Body.String(), `"payment_status":"admin_booking"`)

	rec = do(e, http.MethodDelete, "/bookings/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, uint64(7), store.deleted)

	store.exists = true
	rec = do(e, http.MethodDelete, "/bookings/7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodDelete, "/bookings/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadyProbe(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	e.GET("/readyz", Ready(func(context.Context) error { return errors.New("down") }))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/readyz", "").Code)
}
