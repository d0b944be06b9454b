package router

import (
	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/authz"
	"github.com/inmoservicios/backend/internal/handler"
	"github.com/inmoservicios/backend/internal/middleware"
)

// RegisterProperties wires the property endpoints under /api/properties.
// Reads are open to every authenticated role; writes are limited to OWNER
// and ADMIN, with row-level ownership enforced inside the handlers.
func RegisterProperties(e *echo.Echo, h *handler.PropertyHandler, jwtSecret string) {
	g := e.Group("/api/properties", middleware.JWTAuth(jwtSecret))
	g.GET("", h.List)
	g.GET("/:id", h.Get)

	w := e.Group(
		"/api/properties",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(authz.RoleOwner, authz.RoleAdmin),
	)
	w.POST("", h.Create)
	w.PUT("/:id", h.Update)
	w.DELETE("/:id", h.Delete)
	w.POST("/:id/images", h.AddImage)
}
