package handler // handler contains the HTTP handlers for the API

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inmoservicios/backend/internal/authz"
	"github.com/inmoservicios/backend/internal/middleware"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

// pageParams holds validated pagination input. Limit is clamped to 1..100
// with a default of 20, matching the API contract.
type pageParams struct {
	Page  int
	Limit int
}

func parsePage(c echo.Context) pageParams {
	p := pageParams{Page: 1, Limit: 20}
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			p.Page = n
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			p.Limit = n
		}
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// pagination is the envelope attached to every list response.
type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func paginate(p pageParams, total int64) pagination {
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    int64(p.Page) < pages,
		HasPrev:    p.Page > 1,
	}
}

// identity pulls the authenticated principal from context. Routes behind
// JWTAuth always have one; the bool guards against wiring mistakes.
func identity(c echo.Context) (authz.Identity, bool) {
	return middleware.CurrentIdentity(c)
}

// parseID parses a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

func parseUintParam(v string) (uint64, error) {
	return strconv.ParseUint(v, 10, 64)
}

// Nullable column helpers: SQL nulls render as JSON null, not zero values.

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

func strOrNull(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func floatOrNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
