package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/repository"
	"github.com/inmoservicios/backend/internal/validation"
)

// ProviderHandler serves the public provider directory and the
// provider-facing profile and stats endpoints.
type ProviderHandler struct {
	Providers *repository.ProviderRepo
	Requests  *repository.RequestRepo
}

func NewProviderHandler(provs *repository.ProviderRepo, reqs *repository.RequestRepo) *ProviderHandler {
	return &ProviderHandler{Providers: provs, Requests: reqs}
}

type updateProviderProfileRequest struct {
	BusinessName string   `json:"business_name" validate:"required,min=2,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=2000"`
	Categories   []string `json:"categories" validate:"required,min=1,max=20,dive,min=2,max=50"`
	ServiceAreas []string `json:"service_areas" validate:"required,min=1,max=50,dive,min=2,max=100"`
	HourlyRate   *float64 `json:"hourly_rate" validate:"omitempty,gte=0"`
	IsAvailable  bool     `json:"is_available"`
}

type providerJSON struct {
	ID           uint64    `json:"id"`
	UserID       uint64    `json:"user_id"`
	BusinessName string    `json:"business_name"`
	Description  *string   `json:"description"`
	Categories   []string  `json:"categories"`
	ServiceAreas []string  `json:"service_areas"`
	HourlyRate   *float64  `json:"hourly_rate"`
	Rating       float64   `json:"rating"`
	TotalReviews int64     `json:"total_reviews"`
	IsAvailable  bool      `json:"is_available"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}

type reviewJSON struct {
	ID           uint64    `json:"id"`
	Rating       int       `json:"rating"`
	Comment      *string   `json:"comment"`
	ReviewerName string    `json:"reviewer_name"`
	RequestTitle *string   `json:"request_title"`
	CreatedAt    time.Time `json:"created_at"`
}

func toProviderJSON(p *repository.Provider) providerJSON {
	return providerJSON{
		ID:           p.ID,
		UserID:       p.UserID,
		BusinessName: p.BusinessName,
		Description:  nullStr(p.Description),
		Categories:   p.Categories,
		ServiceAreas: p.ServiceAreas,
		HourlyRate:   nullFloat(p.HourlyRate),
		Rating:       p.Rating,
		TotalReviews: p.TotalReviews,
		IsAvailable:  p.IsAvailable,
		Name:         p.Name,
		Email:        p.Email,
		Phone:        nullStr(p.Phone),
		CreatedAt:    p.CreatedAt.UTC(),
	}
}

func toReviewJSON(rv *repository.Review) reviewJSON {
	return reviewJSON{
		ID:           rv.ID,
		Rating:       rv.Rating,
		Comment:      nullStr(rv.Comment),
		ReviewerName: rv.ReviewerName,
		RequestTitle: nullStr(rv.RequestTitle),
		CreatedAt:    rv.CreatedAt.UTC(),
	}
}

// Search returns a filtered page of active providers ordered by rating. The
// route is public and sits behind the response cache.
func (h *ProviderHandler) Search(c echo.Context) error {
	pp := parsePage(c)
	f := repository.ProviderFilter{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Location: c.QueryParam("location"),
		Page:     pp.Page,
		Limit:    pp.Limit,
	}
	if v := c.QueryParam("min_rating"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinRating = &n
		}
	}
	if v := c.QueryParam("max_hourly_rate"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxHourlyRate = &n
		}
	}
	if v := c.QueryParam("available"); v != "" {
		b := v == "true"
		f.Available = &b
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, total, err := h.Providers.Search(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not search providers"})
	}
	out := make([]providerJSON, 0, len(list))
	for _, p := range list {
		out = append(out, toProviderJSON(p))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"providers":  out,
		"pagination": paginate(pp, total),
	})
}

// Get returns one provider profile with its ten most recent reviews.
func (h *ProviderHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid provider id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "provider not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load provider"})
	}

	reviews, _, err := h.Providers.ListReviews(ctx, p.UserID, 1, 10)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load reviews"})
	}
	rvs := make([]reviewJSON, 0, len(reviews))
	for _, rv := range reviews {
		rvs = append(rvs, toReviewJSON(rv))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"provider": toProviderJSON(p),
		"reviews":  rvs,
	})
}

// Reviews returns a page of reviews for a provider, newest first.
func (h *ProviderHandler) Reviews(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid provider id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "provider not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load provider"})
	}

	pp := parsePage(c)
	reviews, total, err := h.Providers.ListReviews(ctx, p.UserID, pp.Page, pp.Limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load reviews"})
	}
	out := make([]reviewJSON, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReviewJSON(rv))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reviews":    out,
		"pagination": paginate(pp, total),
	})
}

// MyProfile returns the caller's own provider profile, including the
// availability flag drafts of the public view never hide.
func (h *ProviderHandler) MyProfile(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Providers.GetByUserID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "provider profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load profile"})
	}
	return c.JSON(http.StatusOK, echo.Map{"provider": toProviderJSON(p)})
}

// UpdateMyProfile rewrites the caller's provider profile. The aggregate
// rating and review count are never client-writable.
func (h *ProviderHandler) UpdateMyProfile(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	var req updateProviderProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validation.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p := &repository.Provider{
		UserID:       ident.ID,
		BusinessName: req.BusinessName,
		Description:  strOrNull(req.Description),
		Categories:   req.Categories,
		ServiceAreas: req.ServiceAreas,
		HourlyRate:   floatOrNull(req.HourlyRate),
		IsAvailable:  req.IsAvailable,
	}
	if err := h.Providers.UpdateProfile(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "provider profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not update profile"})
	}

	updated, err := h.Providers.GetByUserID(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load profile"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "profile updated",
		"provider": toProviderJSON(updated),
	})
}

// MyRequests lists the caller's assignments with the usual filters. It is
// the provider-facing slice of the request list.
func (h *ProviderHandler) MyRequests(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	pp := parsePage(c)
	f := repository.RequestFilter{
		ProviderID: ident.ID,
		Status:     c.QueryParam("status"),
		Category:   c.QueryParam("category"),
		Priority:   c.QueryParam("priority"),
		Page:       pp.Page,
		Limit:      pp.Limit,
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

// MyStats aggregates the caller's request counters, average cost, recent
// reviews and the last six months of completed earnings.
func (h *ProviderHandler) MyStats(c echo.Context) error {
	ident, ok := identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	stats, err := h.Requests.StatsForProvider(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load stats"})
	}
	earnings, err := h.Requests.MonthlyEarnings(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load earnings"})
	}
	reviews, _, err := h.Providers.ListReviews(ctx, ident.ID, 1, 5)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not load reviews"})
	}

	months := make([]echo.Map, 0, len(earnings))
	for _, e := range earnings {
		months = append(months, echo.Map{
			"month":     e.Month,
			"completed": e.Completed,
			"total":     e.Total,
		})
	}
	rvs := make([]reviewJSON, 0, len(reviews))
	for _, rv := range reviews {
		rvs = append(rvs, toReviewJSON(rv))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"stats": echo.Map{
			"total":       stats.Total,
			"pending":     stats.Pending,
			"in_progress": stats.InProgress,
			"completed":   stats.Completed,
			"cancelled":   stats.Cancelled,
			"avg_cost":    stats.AvgCost,
		},
		"monthly_earnings": months,
		"recent_reviews":   rvs,
	})
}
