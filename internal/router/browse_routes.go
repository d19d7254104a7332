package router

import (
	"github.com/labstack/echo/v4"

	"github.com/helenjin/databases-proj-group27/internal/handler"
)

// RegisterBrowse registers the read-only pages. Middleware is attached per
// route rather than through a group so unknown paths stay 404 and wrong
// methods stay 405.
func RegisterBrowse(e *echo.Echo, b *handler.BrowseHandler, page []echo.MiddlewareFunc, cache echo.MiddlewareFunc) {
	mw := append(append([]echo.MiddlewareFunc{}, page...), cache)

	e.GET("/", b.Index, page...)
	e.GET("/movies", b.Movies, mw...)
	e.GET("/directors", b.Directors, mw...)
	e.GET("/genres", b.Genres, mw...)
	e.GET("/actors", b.Actors, mw...)
	e.GET("/movies/:title", b.Movie, mw...)
	e.GET("/directors/:name", b.Director, mw...)
	e.GET("/genres/:genre_name", b.Genre, mw...)
	e.GET("/actors/:name", b.Actor, mw...)
}
