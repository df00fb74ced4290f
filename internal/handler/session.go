package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

// PendingCookieName holds the signed token of the visitor's pending booking.
const PendingCookieName = "jampad_pending"

// PendingCookie signs the pending booking token into a cookie so that a
// browser returning from the payment page can confirm without carrying the
// token in the URL.
type PendingCookie struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewPendingCookie builds a cookie codec.  blockKey may be empty, in which
// case the value is signed but not encrypted.
func NewPendingCookie(hashKey, blockKey string, secure bool) *PendingCookie {
	var block []byte
	if blockKey != "" {
		block = []byte(blockKey)
	}
	return &PendingCookie{codec: securecookie.New([]byte(hashKey), block), secure: secure}
}

// Set stores token until exp.
func (p *PendingCookie) Set(c echo.Context, token string, exp time.Time) error {
	enc, err := p.codec.Encode(PendingCookieName, token)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     PendingCookieName,
		Value:    enc,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Token returns the token from a valid cookie.
func (p *PendingCookie) Token(c echo.Context) (string, bool) {
	ck, err := c.Cookie(PendingCookieName)
	if err != nil {
		return "", false
	}
	var token string
	if err := p.codec.Decode(PendingCookieName, ck.Value, &token); err != nil || token == "" {
		return "", false
	}
	return token, true
}

// Clear expires the cookie.
func (p *PendingCookie) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{Name: PendingCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: p.secure})
}
