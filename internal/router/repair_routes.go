package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nixflow/repair-tracker/internal/handler"
	"github.com/nixflow/repair-tracker/internal/middleware"
	"github.com/nixflow/repair-tracker/internal/model"
)

// RegisterRepairs registers the repair case endpoints under /api/repairs.
// Every route carries its own permission gate; the single public route is
// the tracking lookup, which is response-cached when a cache middleware is
// supplied.
func RegisterRepairs(e *echo.Echo, h *handler.RepairHandler, jwtSecret string, trackingCache echo.MiddlewareFunc) {
	g := e.Group("/api/repairs")
	auth := middleware.JWTAuth(jwtSecret)

	g.GET("", h.List, auth,
		middleware.RequirePermission(func(p model.Permissions) bool { return p.CanViewDashboard }))
	g.POST("", h.Create, auth,
		middleware.RequirePermission(func(p model.Permissions) bool { return p.CanAddRepair }))
	g.GET("/status/counts", h.StatusCounts, auth,
		middleware.RequirePermission(func(p model.Permissions) bool { return p.CanViewDashboard }))
	g.GET("/search/qr", h.SearchQR, auth,
		middleware.RequirePermission(func(p model.Permissions) bool { return p.CanScanQR }))
	g.GET("/reports/generate", h.Report, auth,
		middleware.RequirePermission(func(p model.Permissions) bool { return p.CanViewReports }))
	g.GET("/reports/export", h.Export, auth,
		middleware.RequirePermission(func(p model.Permissions) bool { return p.CanViewReports }))
	g.PATCH("/:id/status", h.UpdateStatus, auth,
		middleware.RequirePermission(func(p model.Permissions) bool { return p.CanEditRepair }))
	g.POST("/:id/notes", h.AddNote, auth)

	// Public tracking lookup, no auth.
	if trackingCache != nil {
		g.GET("/:id", h.Get, trackingCache)
	} else {
		g.GET("/:id", h.Get)
	}
}
