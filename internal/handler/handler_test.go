package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, "Page not found."},
		{"echo method", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method not allowed."},
		{"http error with message", echo.NewHTTPError(http.StatusBadRequest, "Missing name."), http.StatusBadRequest, "Missing name."},
		{"wrapped not found", fmt.Errorf("director: %w", apperrors.ErrNotFound), http.StatusNotFound, "Page not found."},
		{"connection", fmt.Errorf("acquire: %w", apperrors.ErrConnection), http.StatusServiceUnavailable, "The database is unavailable. Please try again later."},
		{"query", fmt.Errorf("list: %w: boom", apperrors.ErrQuery), http.StatusInternalServerError, "Something went wrong."},
		{"form", apperrors.DuplicateUser("User ada is already registered."), http.StatusConflict, "User ada is already registered."},
		{"unknown", assert.AnError, http.StatusInternalServerError, "Something went wrong."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestErrorHandlerHidesDetail(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	// no renderer registered: falls back to plain text
	NewErrorHandler(zap.NewNop())(fmt.Errorf("%w: password=hunter2", apperrors.ErrQuery), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong.", rec.Body.String())
}

func TestErrorHandlerSkipsCommitted(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "done"))

	NewErrorHandler(zap.NewNop())(assert.AnError, c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestFormStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, formStatus(apperrors.Validation("x")))
	assert.Equal(t, http.StatusConflict, formStatus(apperrors.DuplicateUser("x")))
	assert.Equal(t, http.StatusUnauthorized, formStatus(apperrors.Authentication("x")))
}

func TestPathParam(t *testing.T) {
	e := echo.New()
	var got string
	e.GET("/actors/:name", func(c echo.Context) error {
		var err error
		got, err = pathParam(c, "name")
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})

	for target, want := range map[string]string{
		"/actors/Al%20Pacino":   "Al Pacino",
		"/actors/AC%2FDC":       "AC/DC",
		"/actors/Caf%C3%A9":     "Café",
		"/actors/plain":         "plain",
		"/actors/100%25%20Real": "100% Real",
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, want, got, target)
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/up", Health(pinger{}))
	e.GET("/down", Health(pinger{err: assert.AnError}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/up", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
