package middleware

import "github.com/labstack/echo/v4"

// currentUserID returns the authenticated subject set by JWTAuth, or "anon"
// for public requests.  Rate limit keys use it to separate the admin from
// anonymous visitors sharing an address.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}

// RequestID returns the id assigned by RequestLogger, or "".
func RequestID(c echo.Context) string {
	s, _ := c.Get(requestIDKey).(string)
	return s
}
