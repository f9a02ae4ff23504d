package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nixflow/repair-tracker/internal/model"
)

// RequirePermission enforces that the authenticated account's role grants
// the capability selected by check.  The policy table in model is the
// single source of truth; nothing the client sends influences the
// decision.  It assumes JWTAuth already stored the role in the context.
func RequirePermission(check func(model.Permissions) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, _ := c.Get("role").(string)
			role, ok := model.ParseRole(raw)
			if !ok || !check(model.RolePermissions(role)) {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "Insufficient permissions"})
			}
			return next(c)
		}
	}
}
