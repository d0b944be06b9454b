package router

import (
	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/handler"
	"github.com/inmoservicios/backend/internal/middleware"
)

// RegisterDashboard wires the home screen summary and the notification feed.
func RegisterDashboard(e *echo.Echo, h *handler.DashboardHandler, jwtSecret string) {
	g := e.Group("/api/dashboard", middleware.JWTAuth(jwtSecret))
	g.GET("/summary", h.Summary)
	g.PUT("/notifications/:id/read", h.MarkNotificationRead)
}

// RegisterPreferences wires the per-user settings blob.
func RegisterPreferences(e *echo.Echo, h *handler.PreferenceHandler, jwtSecret string) {
	g := e.Group("/api/preferences", middleware.JWTAuth(jwtSecret))
	g.GET("", h.Get)
	g.PUT("", h.Put)
}
