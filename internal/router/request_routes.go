package router

import (
	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/handler"
	"github.com/inmoservicios/backend/internal/middleware"
)

// RegisterRequests wires the maintenance request lifecycle under
// /api/requests. Every route requires a session; who may do what to a given
// request depends on its parties, so the row-level checks live in the
// handlers rather than in role middleware.
func RegisterRequests(e *echo.Echo, h *handler.RequestHandler, jwtSecret string) {
	g := e.Group("/api/requests", middleware.JWTAuth(jwtSecret))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.PATCH("/:id/assign", h.Assign)
	g.DELETE("/:id", h.Delete)
}
