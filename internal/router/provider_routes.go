package router

import (
	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/authz"
	"github.com/inmoservicios/backend/internal/handler"
	"github.com/inmoservicios/backend/internal/middleware"
)

// RegisterProviders wires the provider directory and the provider-only
// profile endpoints. The directory is public so prospective tenants can
// browse without an account; it sits behind the response cache because the
// same searches repeat constantly and the data changes slowly.
func RegisterProviders(e *echo.Echo, h *handler.ProviderHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	pub := e.Group("/api/providers", cache)
	pub.GET("", h.Search)
	pub.GET("/:id", h.Get)
	pub.GET("/:id/reviews", h.Reviews)

	own := e.Group(
		"/api/providers",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(authz.RoleProvider),
	)
	own.PUT("/profile", h.UpdateMyProfile)
	own.GET("/my/profile", h.MyProfile)
	own.GET("/my/requests", h.MyRequests)
	own.GET("/my/stats", h.MyStats)
}
