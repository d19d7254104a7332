package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/helenjin/databases-proj-group27/internal/model"
)

const identityKey = "identity"

// Identifier resolves the caller behind a request.
type Identifier interface {
	Identify(r *http.Request) model.Identity
}

// Identify resolves the caller once per request and stores the result in
// the echo context. It must run after Conn.
func Identify(ids Identifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(identityKey, ids.Identify(c.Request()))
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Identify, or model.Anonymous.
func IdentityFrom(c echo.Context) model.Identity {
	id, _ := c.Get(identityKey).(model.Identity)
	return id
}

// SetIdentity overrides the stored identity, e.g. right after login or
// logout so the response reflects the new state.
func SetIdentity(c echo.Context, id model.Identity) {
	c.Set(identityKey, id)
}
