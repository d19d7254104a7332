package router

import (
	"github.com/labstack/echo/v4"

	"github.com/helenjin/databases-proj-group27/internal/handler"
)

// RegisterAuth registers the login, registration and logout forms. Form
// submissions pass through the rate limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, page []echo.MiddlewareFunc, limiter echo.MiddlewareFunc) {
	submit := append(append([]echo.MiddlewareFunc{}, page...), limiter)

	e.GET("/login", a.LoginPage, page...)
	e.POST("/login", a.Login, submit...)
	e.GET("/register", a.RegisterPage, page...)
	e.POST("/register", a.Register, submit...)
	e.GET("/logout", a.Logout, page...)
	e.POST("/logout", a.Logout, page...)
}

// RegisterGuestbook registers the form behind the index page.
func RegisterGuestbook(e *echo.Echo, g *handler.GuestbookHandler, page []echo.MiddlewareFunc) {
	e.POST("/add", g.Add, page...)
}
