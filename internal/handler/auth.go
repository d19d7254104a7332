package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
	"github.com/helenjin/databases-proj-group27/internal/middleware"
	"github.com/helenjin/databases-proj-group27/internal/model"
	"github.com/helenjin/databases-proj-group27/internal/service"
)

// AuthHandler serves the login, registration and logout forms.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// authForm is the data behind login.html and register.html. Passwords are
// never echoed back.
type authForm struct {
	Error    string
	Username string
	Email    string
}

func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", authForm{})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed form.")
	}
	id, err := h.Auth.Login(c.Response(), c.Request(), in)
	if fe, ok := apperrors.AsForm(err); ok {
		return c.Render(formStatus(fe), "login.html", authForm{Error: fe.Message, Username: in.Username})
	}
	if err != nil {
		return err
	}
	middleware.SetIdentity(c, id)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) RegisterPage(c echo.Context) error {
	return c.Render(http.StatusOK, "register.html", authForm{})
}

// Register creates the account and sends the user on to log in.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed form.")
	}
	err := h.Auth.Register(c.Request().Context(), in)
	if fe, ok := apperrors.AsForm(err); ok {
		return c.Render(formStatus(fe), "register.html", authForm{Error: fe.Message, Username: in.Username, Email: in.Email})
	}
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Auth.Logout(c.Response(), c.Request()); err != nil {
		return err
	}
	middleware.SetIdentity(c, model.Anonymous)
	return c.Redirect(http.StatusSeeOther, "/")
}

func formStatus(fe *apperrors.FormError) int {
	switch {
	case errors.Is(fe, apperrors.ErrDuplicateUser):
		return http.StatusConflict
	case errors.Is(fe, apperrors.ErrAuthentication):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}
