package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/authz"
	"github.com/inmoservicios/backend/internal/config"
	"github.com/inmoservicios/backend/internal/repository"
	"github.com/inmoservicios/backend/internal/utils"
	"github.com/inmoservicios/backend/internal/validation"
)

// AuthHandler serves registration, login and the account endpoints.
type AuthHandler struct {
	Cfg       config.Config
	Users     *repository.UserRepo
	Providers *repository.ProviderRepo
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, providers *repository.ProviderRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Providers: providers}
}

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,min=5,max=30"`
	Role     string  `json:"role" validate:"omitempty,oneof=OWNER TENANT PROVIDER owner tenant provider"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=100"`
	Phone *string `json:"phone" validate:"omitempty,min=5,max=30"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// userJSON is the public shape of a user. The password hash never leaves the
// handler layer.
type userJSON struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserJSON(u repository.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     nullStr(u.Phone),
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

// Register creates an account and returns a fresh session token so the
// client is signed in immediately. The unique email index is the single
// source of truth for duplicates; there is no pre-check.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = authz.RoleTenant
	}
	if role == authz.RoleAdmin || !authz.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Users.Create(ctx, req.Email, req.Name, req.Phone, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not create user"})
	}

	if role == authz.RoleProvider {
		if err := h.Providers.EnsureProfile(ctx, id, req.Name); err != nil {
			c.Logger().Errorf("provider profile create failed for user %d: %v", id, err)
		}
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load user"})
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.TokenTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not issue token"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "user registered",
		"token":   tok.Token,
		"user":    toUserJSON(u),
	})
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password produce the same 401 body so the endpoint does not leak
// which emails exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "login failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "account is deactivated"})
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.TokenTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not issue token"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "login successful",
		"token":   tok.Token,
		"user":    toUserJSON(u),
	})
}

// Me returns the current account. The row is re-read on every call so a
// deactivated or deleted account answers 404 even with a still-valid token.
func (h *AuthHandler) Me(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetActiveByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load user"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserJSON(u)})
}

// UpdateProfile changes name and phone. Email and role are immutable here.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, ident.ID, req.Name, req.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not update profile"})
	}

	u, err := h.Users.GetByID(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load user"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "profile updated",
		"user":    toUserJSON(u),
	})
}

// ChangePassword verifies the current password before storing a new hash.
// A wrong current password is a 400 and leaves the stored hash untouched.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load user"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "current password is incorrect"})
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not update password"})
	}
	if err := h.Users.UpdatePasswordHash(ctx, ident.ID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not update password"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
