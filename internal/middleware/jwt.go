package middleware // middleware contains reusable HTTP middleware for the API

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware
)

// JWTAuth returns an Echo middleware that validates a Bearer session token
// and injects the account identity into the request context under
// "user_id", "username" and "role".  Missing, expired and malformed tokens
// get distinct user-facing messages but are all rejected identically as
// unauthenticated.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Authentication required"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 enforced; a token signed with a different
			// algorithm is rejected like any other malformed token.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Invalid token"})
			}

			// Numeric JWT values decode as float64.
			if sub, ok := claims["sub"].(float64); ok {
				c.Set("user_id", uint64(sub))
			}
			if username, ok := claims["username"].(string); ok {
				c.Set("username", username)
			}
			if role, ok := claims["role"].(string); ok {
				c.Set("role", role)
			}
			return next(c)
		}
	}
}
