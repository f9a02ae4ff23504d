package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/service"
)

// AuthHandler exposes the session endpoints: login, token validation,
// logout and the per-page access check.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// Login verifies credentials and issues a signed session token.  Lockout
// rejections come back as 401 with the remaining wait in the message.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		var locked *service.AccountLockedError
		switch {
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, service.ErrAccountDisabled),
			errors.Is(err, service.ErrTooManyAttempts):
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": err.Error()})
		case errors.As(err, &locked):
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": locked.Error()})
		}
		logrus.WithError(err).Error("login failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Login failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"session": echo.Map{
			"token":    res.Token,
			"expires":  res.Expires,
			"username": res.Username,
			"role":     res.Role,
		},
		"permissions": res.Permissions,
	})
}

// Validate confirms the presented token is still good and echoes the
// session identity back; the JWT middleware has already done the work.
func (h *AuthHandler) Validate(c echo.Context) error {
	role, _ := c.Get("role").(string)
	username, _ := c.Get("username").(string)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"session": echo.Map{
			"username":    username,
			"role":        role,
			"permissions": model.RolePermissions(model.Role(role)),
		},
	})
}

// Logout is a client-side operation with stateless tokens; the endpoint
// exists so clients have a uniform call to clear their session against.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logged out successfully"})
}

// CheckAccess answers whether the caller's role may open a given UI page,
// and where to send them if not.
func (h *AuthHandler) CheckAccess(c echo.Context) error {
	page := c.QueryParam("page")
	if page == "" {
		return fieldError(c, "page", "page is required")
	}
	role, _ := c.Get("role").(string)
	perms := model.RolePermissions(model.Role(role))
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"hasAccess":   model.PagePermission(perms, page),
		"defaultPage": perms.DefaultPage,
	})
}
