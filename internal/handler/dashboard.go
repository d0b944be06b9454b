package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/repository"
)

// DashboardHandler serves the home screen summary and the per-user
// notification feed.
type DashboardHandler struct {
	Dashboard     *repository.DashboardRepo
	Notifications *repository.NotificationRepo
}

func NewDashboardHandler(dash *repository.DashboardRepo, notifs *repository.NotificationRepo) *DashboardHandler {
	return &DashboardHandler{Dashboard: dash, Notifications: notifs}
}

type notificationJSON struct {
	ID         uint64    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	EntityType string    `json:"entity_type"`
	EntityID   uint64    `json:"entity_id"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary returns the global counters plus the caller's five newest
// notifications in one payload, so the home screen needs a single round
// trip.
func (h *DashboardHandler) Summary(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	counts, err := h.Dashboard.Counts(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load dashboard"})
	}
	latest, err := h.Notifications.Latest(ctx, ident.ID, 5)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load notifications"})
	}

	notifs := make([]notificationJSON, 0, len(latest))
	for _, n := range latest {
		notifs = append(notifs, notificationJSON{
			ID:         n.ID,
			Title:      n.Title,
			Message:    n.Message,
			Type:       n.Type,
			EntityType: n.EntityType,
			EntityID:   n.EntityID,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt.UTC(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"stats": echo.Map{
			"active_properties":   counts.ActiveProperties,
			"pending_requests":    counts.PendingRequests,
			"available_providers": counts.AvailableProviders,
		},
		"notifications": notifs,
	})
}

// MarkNotificationRead flags one of the caller's notifications as read.
func (h *DashboardHandler) MarkNotificationRead(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid notification id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id, ident.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "notification not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not update notification"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "notification marked read"})
}
