package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/authz"
	"github.com/inmoservicios/backend/internal/queue"
	"github.com/inmoservicios/backend/internal/repository"
	queue_publisher "github.com/inmoservicios/backend/internal/service"
	"github.com/inmoservicios/backend/internal/validation"
)

// RequestHandler serves the maintenance request lifecycle endpoints.
type RequestHandler struct {
	Requests   *repository.RequestRepo
	Properties *repository.PropertyRepo
	Providers  *repository.ProviderRepo
}

func NewRequestHandler(reqs *repository.RequestRepo, props *repository.PropertyRepo, provs *repository.ProviderRepo) *RequestHandler {
	return &RequestHandler{Requests: reqs, Properties: props, Providers: provs}
}

type createRequestRequest struct {
	PropertyID    uint64   `json:"property_id" validate:"required"`
	Title         string   `json:"title" validate:"required,min=3,max=200"`
	Description   string   `json:"description" validate:"required,min=10,max=2000"`
	Category      string   `json:"category" validate:"required,oneof=plumbing electrical hvac carpentry painting cleaning gardening appliances general"`
	Priority      string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	EstimatedCost *float64 `json:"estimated_cost" validate:"omitempty,gte=0"`
}

type updateStatusRequest struct {
	Status        string     `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
	ActualCost    *float64   `json:"actual_cost" validate:"omitempty,gte=0"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	CompletedDate *time.Time `json:"completed_date"`
}

type assignProviderRequest struct {
	ProviderID  uint64     `json:"provider_id" validate:"required"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type requestJSON struct {
	ID              uint64     `json:"id"`
	PropertyID      uint64     `json:"property_id"`
	RequesterID     uint64     `json:"requester_id"`
	ProviderID      *uint64    `json:"provider_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	EstimatedCost   *float64   `json:"estimated_cost"`
	ActualCost      *float64   `json:"actual_cost"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	PropertyTitle   string     `json:"property_title"`
	PropertyAddress string     `json:"property_address"`
	PropertyCity    string     `json:"property_city"`
	RequesterName   string     `json:"requester_name"`
	RequesterEmail  string     `json:"requester_email"`
	RequesterPhone  *string    `json:"requester_phone"`
	ProviderName    *string    `json:"provider_name"`
	ProviderEmail   *string    `json:"provider_email"`
	ProviderPhone   *string    `json:"provider_phone"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toRequestJSON(m *repository.MaintenanceRequest) requestJSON {
	return requestJSON{
		ID:              m.ID,
		PropertyID:      m.PropertyID,
		RequesterID:     m.RequesterID,
		ProviderID:      nullID(m.ProviderID),
		Title:           m.Title,
		Description:     m.Description,
		Category:        m.Category,
		Priority:        m.Priority,
		Status:          m.Status,
		EstimatedCost:   nullFloat(m.EstimatedCost),
		ActualCost:      nullFloat(m.ActualCost),
		ScheduledAt:     nullTime(m.ScheduledAt),
		CompletedAt:     nullTime(m.CompletedAt),
		PropertyTitle:   m.PropertyTitle,
		PropertyAddress: m.PropertyAddress,
		PropertyCity:    m.PropertyCity,
		RequesterName:   m.RequesterName,
		RequesterEmail:  m.RequesterEmail,
		RequesterPhone:  nullStr(m.RequesterPhone),
		ProviderName:    nullStr(m.ProviderName),
		ProviderEmail:   nullStr(m.ProviderEmail),
		ProviderPhone:   nullStr(m.ProviderPhone),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

func parties(m *repository.MaintenanceRequest) authz.RequestParties {
	p := authz.RequestParties{
		RequesterID:     m.RequesterID,
		PropertyOwnerID: m.PropertyOwnerID,
	}
	if m.ProviderID.Valid {
		p.ProviderID = uint64(m.ProviderID.Int64)
	}
	return p
}

// publish sends a notification event on a short independent timeout. The
// request that triggered the event has already been committed; a broker
// outage only costs the notification.
func publish(ev queue.RequestEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = queue_publisher.PublishRequestEvent(ctx, ev)
}

func eventFrom(kind string, m *repository.MaintenanceRequest) queue.RequestEvent {
	ev := queue.RequestEvent{
		Kind:            kind,
		RequestID:       m.ID,
		RequestTitle:    m.Title,
		PropertyID:      m.PropertyID,
		PropertyTitle:   m.PropertyTitle,
		RequesterID:     m.RequesterID,
		PropertyOwnerID: m.PropertyOwnerID,
		Status:          m.Status,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if m.ProviderID.Valid {
		ev.ProviderID = uint64(m.ProviderID.Int64)
	}
	return ev
}

// List returns the requests visible to the caller. Admins see everything,
// providers see their assignments, everyone else sees requests they filed or
// requests against properties they own.
func (h *RequestHandler) List(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	pp := parsePage(c)
	f := repository.RequestFilter{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
		Priority: c.QueryParam("priority"),
		Page:     pp.Page,
		Limit:    pp.Limit,
	}
	if v := c.QueryParam("property_id"); v != "" {
		if id, err := parseUintParam(v); err == nil {
			f.PropertyID = id
		}
	}
	switch {
	case ident.IsAdmin():
		// unrestricted
	case ident.Role == authz.RoleProvider:
		f.ProviderID = ident.ID
	default:
		f.RequesterOrOwnerID = ident.ID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, total, err := h.Requests.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not list requests"})
	}
	out := make([]requestJSON, 0, len(list))
	for _, m := range list {
		out = append(out, toRequestJSON(m))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"requests":   out,
		"pagination": paginate(pp, total),
	})
}

// Get returns one request when the caller is a party to it.
func (h *RequestHandler) Get(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load request"})
	}
	if !authz.CanViewRequest(ident, parties(m)) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"request": toRequestJSON(m)})
}

// Create files a request against a property. Any authenticated non-provider
// may file one; the property owner is notified asynchronously.
func (h *RequestHandler) Create(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	var req createRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	prop, err := h.Properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load property"})
	}
	if !prop.Published && !authz.CanModify(ident, prop.OwnerID) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
	}

	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	m := &repository.MaintenanceRequest{
		PropertyID:    req.PropertyID,
		RequesterID:   ident.ID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      priority,
		EstimatedCost: floatOrNull(req.EstimatedCost),
	}
	if err := h.Requests.Create(ctx, m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not create request"})
	}

	created, err := h.Requests.GetByID(ctx, m.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load request"})
	}
	go publish(eventFrom(queue.KindRequestCreated, created))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "request created",
		"request": toRequestJSON(created),
	})
}

// UpdateStatus moves a request through its lifecycle. Property owners, the
// assigned provider and admins may transition; completing a request stamps
// completed_at.
func (h *RequestHandler) UpdateStatus(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request id"})
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load request"})
	}
	if !authz.CanUpdateRequestStatus(ident, parties(m)) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	up := repository.StatusUpdate{
		Status:      req.Status,
		ActualCost:  req.ActualCost,
		ScheduledAt: req.ScheduledDate,
		CompletedAt: req.CompletedDate,
	}
	// Completion stamps completed_at unless the caller backdated it.
	if req.Status == "completed" && up.CompletedAt == nil {
		now := time.Now().UTC()
		up.CompletedAt = &now
	}
	if err := h.Requests.UpdateStatus(ctx, id, up); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not update request"})
	}

	updated, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load request"})
	}
	go publish(eventFrom(queue.KindStatusChanged, updated))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "request updated",
		"request": toRequestJSON(updated),
	})
}

// Assign schedules a provider on a request and moves it to in_progress. Only
// the property owner or an admin may assign; the provider must exist, hold
// the PROVIDER role and be available.
func (h *RequestHandler) Assign(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request id"})
	}

	var req assignProviderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load request"})
	}
	if !authz.CanAssignProvider(ident, parties(m)) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	if m.Status != "pending" {
		return c.JSON(http.StatusConflict, echo.Map{"message": "request is not pending"})
	}

	prov, err := h.Providers.GetAssignable(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "provider not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load provider"})
	}
	if !prov.IsAvailable {
		return c.JSON(http.StatusConflict, echo.Map{"message": "provider is not available"})
	}

	if err := h.Requests.Assign(ctx, id, req.ProviderID, req.ScheduledAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not assign provider"})
	}

	updated, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load request"})
	}
	go publish(eventFrom(queue.KindProviderAssigned, updated))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "provider assigned",
		"request": toRequestJSON(updated),
	})
}

// Delete removes a pending request. The requester, the property owner and
// admins may delete; anything past pending must be cancelled instead.
func (h *RequestHandler) Delete(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load request"})
	}
	if !authz.CanDeleteRequest(ident, parties(m)) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	if m.Status != "pending" {
		return c.JSON(http.StatusConflict, echo.Map{"message": "only pending requests can be deleted"})
	}

	if err := h.Requests.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not delete request"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request deleted"})
}
