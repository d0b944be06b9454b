package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/authz"
	"github.com/inmoservicios/backend/internal/repository"
	"github.com/inmoservicios/backend/internal/validation"
)

// PropertyHandler serves the property CRUD and image endpoints.
type PropertyHandler struct {
	Properties *repository.PropertyRepo
}

func NewPropertyHandler(props *repository.PropertyRepo) *PropertyHandler {
	return &PropertyHandler{Properties: props}
}

type propertyRequest struct {
	Title        string   `json:"title" validate:"required,min=3,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=2000"`
	Address      string   `json:"address" validate:"required,min=3,max=255"`
	City         string   `json:"city" validate:"required,min=2,max=100"`
	State        string   `json:"state" validate:"required,min=2,max=100"`
	ZipCode      *string  `json:"zip_code" validate:"omitempty,max=20"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	PropertyType string   `json:"property_type" validate:"required,oneof=apartment house condo commercial office land other"`
	Bedrooms     int      `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms    int      `json:"bathrooms" validate:"gte=0,lte=50"`
	AreaSqm      *float64 `json:"area_sqm" validate:"omitempty,gte=0"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	Status       string   `json:"status" validate:"omitempty,oneof=available rented maintenance inactive"`
	Published    bool     `json:"published"`
}

type addImageRequest struct {
	ImageURL  string `json:"image_url" validate:"required,url"`
	IsPrimary bool   `json:"is_primary"`
}

type propertyJSON struct {
	ID           uint64    `json:"id"`
	OwnerID      uint64    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      *string   `json:"zip_code"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	PropertyType string    `json:"property_type"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    int       `json:"bathrooms"`
	AreaSqm      *float64  `json:"area_sqm"`
	Price        *float64  `json:"price"`
	Status       string    `json:"status"`
	Published    bool      `json:"published"`
	Images       []string  `json:"images"`
	OwnerName    string    `json:"owner_name"`
	OwnerEmail   string    `json:"owner_email"`
	OwnerPhone   *string   `json:"owner_phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toPropertyJSON(p *repository.Property) propertyJSON {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return propertyJSON{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Title:        p.Title,
		Description:  nullStr(p.Description),
		Address:      p.Address,
		City:         p.City,
		State:        p.State,
		ZipCode:      nullStr(p.ZipCode),
		Latitude:     nullFloat(p.Latitude),
		Longitude:    nullFloat(p.Longitude),
		PropertyType: p.PropertyType,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		AreaSqm:      nullFloat(p.AreaSqm),
		Price:        nullFloat(p.Price),
		Status:       p.Status,
		Published:    p.Published,
		Images:       images,
		OwnerName:    p.OwnerName,
		OwnerEmail:   p.OwnerEmail,
		OwnerPhone:   nullStr(p.OwnerPhone),
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

// List returns a filtered page of properties. mine=true restricts to the
// caller's own listings including drafts; everyone else only sees published
// rows unless they are an admin.
func (h *PropertyHandler) List(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	pp := parsePage(c)
	f := repository.PropertyFilter{
		City:         c.QueryParam("city"),
		PropertyType: c.QueryParam("property_type"),
		Status:       c.QueryParam("status"),
		Page:         pp.Page,
		Limit:        pp.Limit,
	}
	if v := c.QueryParam("min_price"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinPrice = &n
		}
	}
	if v := c.QueryParam("max_price"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxPrice = &n
		}
	}
	if c.QueryParam("mine") == "true" {
		f.OwnerID = ident.ID
	} else if !ident.IsAdmin() {
		f.PublishedOnly = true
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, total, err := h.Properties.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not list properties"})
	}
	out := make([]propertyJSON, 0, len(list))
	for _, p := range list {
		out = append(out, toPropertyJSON(p))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"properties": out,
		"pagination": paginate(pp, total),
	})
}

// Get returns one property. Unpublished listings are visible only to their
// owner and admins; everyone else gets a 404, not a 403, so drafts do not
// leak their existence.
func (h *PropertyHandler) Get(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid property id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load property"})
	}
	if !p.Published && !authz.CanModify(ident, p.OwnerID) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"property": toPropertyJSON(p)})
}

// Create inserts a listing owned by the caller. The route is limited to
// OWNER and ADMIN roles.
func (h *PropertyHandler) Create(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	var req propertyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	p := propertyFromRequest(&req)
	p.OwnerID = ident.ID

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Properties.Create(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not create property"})
	}
	created, err := h.Properties.GetByID(ctx, p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load property"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "property created",
		"property": toPropertyJSON(created),
	})
}

// Update rewrites a listing. Only the owner or an admin may modify it.
func (h *PropertyHandler) Update(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid property id"})
	}

	var req propertyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	existing, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load property"})
	}
	if !authz.CanModify(ident, existing.OwnerID) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	p := propertyFromRequest(&req)
	p.ID = id
	if err := h.Properties.Update(ctx, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not update property"})
	}
	updated, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load property"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "property updated",
		"property": toPropertyJSON(updated),
	})
}

// Delete removes a listing. Deletion is blocked with a 409 while pending or
// in-progress maintenance requests still reference it.
func (h *PropertyHandler) Delete(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid property id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	existing, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load property"})
	}
	if !authz.CanModify(ident, existing.OwnerID) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	if err := h.Properties.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"message": "property has active maintenance requests"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not delete property"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "property deleted"})
}

// AddImage attaches an image URL to a listing the caller owns.
func (h *PropertyHandler) AddImage(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid property id"})
	}

	var req addImageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	existing, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load property"})
	}
	if !authz.CanModify(ident, existing.OwnerID) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	img := &repository.PropertyImage{PropertyID: id, ImageURL: req.ImageURL, IsPrimary: req.IsPrimary}
	if err := h.Properties.AddImage(ctx, img); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not add image"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "image added",
		"image": echo.Map{
			"id":          img.ID,
			"property_id": img.PropertyID,
			"image_url":   img.ImageURL,
			"is_primary":  img.IsPrimary,
		},
	})
}

// propertyFromRequest maps the validated payload onto the storage model.
// An absent status defaults to available.
func propertyFromRequest(req *propertyRequest) *repository.Property {
	status := req.Status
	if status == "" {
		status = "available"
	}
	return &repository.Property{
		Title:        req.Title,
		Description:  strOrNull(req.Description),
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      strOrNull(req.ZipCode),
		Latitude:     floatOrNull(req.Latitude),
		Longitude:    floatOrNull(req.Longitude),
		PropertyType: req.PropertyType,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		AreaSqm:      floatOrNull(req.AreaSqm),
		Price:        floatOrNull(req.Price),
		Status:       status,
		Published:    req.Published,
	}
}
