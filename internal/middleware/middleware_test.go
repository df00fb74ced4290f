package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/jampad-booking/internal/config"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret, sub, role string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "role": role, "exp": exp.Unix()})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func protected() *echo.Echo {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(testSecret), RequireRole("ADMIN"))
	g.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user": c.Get("user_id")})
	})
	return e
}

func TestJWTAuth(t *testing.T) {
	future := time.Now().Add(time.Hour)
	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"bearer admin", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signed(t, testSecret, "admin", "ADMIN", future))
		}, http.StatusOK},
		{"cookie admin", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AdminCookieName, Value: signed(t, testSecret, "admin", "ADMIN", future)})
		}, http.StatusOK},
		{"wrong secret", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signed(t, "other", "admin", "ADMIN", future))
		}, http.StatusUnauthorized},
		{"expired", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signed(t, testSecret, "admin", "ADMIN", time.Now().Add(-time.Minute)))
		}, http.StatusUnauthorized},
		{"wrong role", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signed(t, testSecret, "bob", "GUEST", future))
		}, http.StatusForbidden},
	}
	e := protected()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger())
	var seen string
	e.GET("/x", func(c echo.Context) error {
		seen = RequestID(c)
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	e := echo.New()
	e.Use(Recover())
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/v", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")

	cfg := config.RateLimitConfig{Prefix: "jampad:rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "jampad:rl:ip:10.0.0.7:route:POST /v1/bookings", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_user"
	assert.Equal(t, "jampad:rl:ip:10.0.0.7:user:anon", buildRateKey(cfg, c))
}
