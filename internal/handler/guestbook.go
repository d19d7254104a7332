package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/repository"
)

type GuestbookHandler struct {
	QueryTimeout time.Duration
}

func NewGuestbookHandler(queryTimeout time.Duration) *GuestbookHandler {
	return &GuestbookHandler{QueryTimeout: queryTimeout}
}

// Add inserts the submitted name into the test table and goes back home.
// The field must be present; an empty value is stored as is.
func (h *GuestbookHandler) Add(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed form.")
	}
	if _, ok := form["name"]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing name.")
	}

	conn, err := database.ConnFrom(c.Request().Context())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.QueryTimeout)
	defer cancel()
	if err := repository.NewGuestbookRepo(conn).Add(ctx, form.Get("name")); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
