package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/helenjin/databases-proj-group27/internal/database"
)

// Leaser hands out one database connection per request.
type Leaser interface {
	Lease(ctx context.Context) *database.Lease
}

// Conn leases a connection before the handler runs and releases it when
// the handler returns, whatever the outcome. A failed lease is still stored
// so that handlers see the connection error when they ask for it.
func Conn(p Leaser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			lease := p.Lease(req.Context())
			defer lease.Release()
			c.SetRequest(req.WithContext(database.WithLease(req.Context(), lease)))
			return next(c)
		}
	}
}
