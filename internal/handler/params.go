package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// pathParam returns the named path argument decoded. Echo matches on the
// raw path when the request carried escapes, leaving params escaped.
func pathParam(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v, nil
	}
	s, err := url.PathUnescape(v)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Malformed path.")
	}
	return s, nil
}
