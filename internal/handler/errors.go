package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
)

type errorPage struct {
	Status  int
	Message string
}

// NewErrorHandler maps handler errors onto status codes and renders the
// error page. Internal detail goes to the log only.
func NewErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		if rerr := c.Render(status, "error.html", errorPage{Status: status, Message: msg}); rerr != nil {
			logger.Error("render error page", zap.Error(rerr))
			_ = c.String(status, msg)
		}
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return he.Code, "Page not found."
		case http.StatusMethodNotAllowed:
			return he.Code, "Method not allowed."
		}
		if msg, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	if fe, ok := apperrors.AsForm(err); ok {
		return formStatus(fe), fe.Message
	}
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Page not found."
	case errors.Is(err, apperrors.ErrConnection):
		return http.StatusServiceUnavailable, "The database is unavailable. Please try again later."
	default:
		return http.StatusInternalServerError, "Something went wrong."
	}
}
