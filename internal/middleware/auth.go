package middleware // middleware contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/authz"
	"github.com/inmoservicios/backend/internal/utils"
)

// Context keys under which JWTAuth stores the verified identity.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer session token
// and injects the token's identity claims into the request context. The
// provided secret must match the one used when issuing tokens.
//
// Failures are terminal for the request, always 401, and split three ways so
// clients can tell a dead session from a missing one: no header, expired
// token, and everything else ("invalid token"). There is no revocation list;
// a verified token is trusted until its natural expiry.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "access token required"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.VerifyToken(secret, raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"message": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// CurrentIdentity rebuilds the authz.Identity stored by JWTAuth. The bool is
// false when the middleware did not run or stored unexpected types.
func CurrentIdentity(c echo.Context) (authz.Identity, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	if !ok || id == 0 {
		return authz.Identity{}, false
	}
	role, ok := c.Get(CtxRole).(string)
	if !ok || role == "" {
		return authz.Identity{}, false
	}
	email, _ := c.Get(CtxEmail).(string)
	return authz.Identity{ID: id, Email: email, Role: role}, true
}
