package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nixflow/repair-tracker/internal/handler"
)

// RegisterSystem registers the health probe and the static upload mount.
func RegisterSystem(e *echo.Echo, h *handler.HealthHandler, uploadDir string) {
	e.GET("/health", h.Health)
	e.Static("/uploads", uploadDir)
}
