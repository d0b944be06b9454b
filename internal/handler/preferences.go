package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/repository"
)

// PreferenceHandler serves the per-user settings blob.
type PreferenceHandler struct {
	Prefs *repository.PreferenceRepo
}

func NewPreferenceHandler(prefs *repository.PreferenceRepo) *PreferenceHandler {
	return &PreferenceHandler{Prefs: prefs}
}

// defaultPreferences are merged under whatever the user has stored, so new
// settings get a value without a migration and a fresh account sees a full
// settings object on first read.
func defaultPreferences() map[string]any {
	return map[string]any{
		"theme":                "light",
		"language":             "es",
		"fontScale":            1.0,
		"emailNotifications":   true,
		"pushNotifications":    true,
		"requestStatusUpdates": true,
	}
}

// Get returns the caller's preferences merged over the defaults. A user who
// never saved anything gets the defaults, not a 404.
func (h *PreferenceHandler) Get(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	merged := defaultPreferences()
	stored, err := h.Prefs.Get(ctx, ident.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load preferences"})
	}
	for k, v := range stored {
		merged[k] = v
	}
	return c.JSON(http.StatusOK, echo.Map{"preferences": merged})
}

// Put replaces the caller's stored preferences. Unknown keys are kept as-is;
// the server does not own the settings schema.
func (h *PreferenceHandler) Put(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	var prefs map[string]any
	if err := c.Bind(&prefs); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if prefs == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Prefs.Put(ctx, ident.ID, prefs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not save preferences"})
	}

	merged := defaultPreferences()
	for k, v := range prefs {
		merged[k] = v
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "preferences saved",
		"preferences": merged,
	})
}
