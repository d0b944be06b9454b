package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", query: "", wantPage: 1, wantLimit: 20},
		{name: "explicit", query: "page=3&limit=50", wantPage: 3, wantLimit: 50},
		{name: "limit capped", query: "limit=500", wantPage: 1, wantLimit: 100},
		{name: "zero page ignored", query: "page=0", wantPage: 1, wantLimit: 20},
		{name: "negative ignored", query: "page=-2&limit=-5", wantPage: 1, wantLimit: 20},
		{name: "garbage ignored", query: "page=abc&limit=xyz", wantPage: 1, wantLimit: 20},
	}

	e := echo.New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			p := parsePage(c)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantLimit, p.Limit)
		})
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		limit   int
		total   int64
		pages   int64
		hasNext bool
		hasPrev bool
	}{
		{name: "empty", page: 1, limit: 20, total: 0, pages: 0, hasNext: false, hasPrev: false},
		{name: "single page", page: 1, limit: 20, total: 5, pages: 1, hasNext: false, hasPrev: false},
		{name: "exact boundary", page: 1, limit: 20, total: 40, pages: 2, hasNext: true, hasPrev: false},
		{name: "middle page", page: 2, limit: 10, total: 35, pages: 4, hasNext: true, hasPrev: true},
		{name: "last page", page: 4, limit: 10, total: 35, pages: 4, hasNext: false, hasPrev: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := paginate(pageParams{Page: tc.page, Limit: tc.limit}, tc.total)
			assert.Equal(t, tc.pages, got.TotalPages)
			assert.Equal(t, tc.hasNext, got.HasNext)
			assert.Equal(t, tc.hasPrev, got.HasPrev)
			assert.Equal(t, tc.total, got.Total)
		})
	}
}
