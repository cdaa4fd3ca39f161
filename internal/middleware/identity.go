package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ContextSubject = "user_id"
	ContextRole    = "role"
)

// subject returns the authenticated account name, or "anon" when the
// request carries no valid token.
func subject(c echo.Context) string {
	switch v := c.Get(ContextSubject).(type) {
	case string:
		if v != "" {
			return v
		}
	case nil:
	default:
		return fmt.Sprint(v)
	}
	return "anon"
}
