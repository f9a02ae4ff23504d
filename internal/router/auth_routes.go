package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nixflow/repair-tracker/internal/handler"
	"github.com/nixflow/repair-tracker/internal/middleware"
)

// RegisterAuth registers the session endpoints under /api/auth.  Login is
// public but rate limited per client IP; the rest require a valid token.
func RegisterAuth(e *echo.Echo, h *handler.AuthHandler, jwtSecret string, loginLimiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth")

	if loginLimiter != nil {
		g.POST("/login", h.Login, loginLimiter)
	} else {
		g.POST("/login", h.Login)
	}

	auth := middleware.JWTAuth(jwtSecret)
	g.GET("/validate", h.Validate, auth)
	g.POST("/logout", h.Logout, auth)
	g.GET("/check-access", h.CheckAccess, auth)
}
