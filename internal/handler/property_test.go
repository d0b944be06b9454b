package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmoservicios/backend/internal/repository"
	"github.com/inmoservicios/backend/internal/validation"
)

func newPropertyEnv(t *testing.T) (*echo.Echo, sqlmock.Sqlmock, *PropertyHandler) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e := echo.New()
	e.Validator = validation.New()
	return e, mock, NewPropertyHandler(repository.NewPropertyRepo(db))
}

var propertyCols = []string{
	"id", "owner_id", "title", "description", "address", "city", "state",
	"zip_code", "latitude", "longitude", "property_type", "bedrooms",
	"bathrooms", "area_sqm", "price", "status", "published",
	"owner_name", "owner_email", "owner_phone", "images", "created_at", "updated_at",
}

// propertyRows builds one joined row: property 3 owned by user 20.
func propertyRows(published bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(propertyCols).AddRow(
		3, 20, "Loft Centro", nil, "Av. Reforma 10", "CDMX", "CDMX",
		nil, nil, nil, "apartment", 2,
		1, nil, 12000.0, "available", published,
		"Olga Owner", "olga@example.com", nil, "https://img.example.com/1.jpg", now, now,
	)
}

func expectGetProperty(mock sqlmock.Sqlmock, published bool) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.id, p.owner_id, p.title")).
		WithArgs(uint64(3)).
		WillReturnRows(propertyRows(published))
}

func propertyCtx(e *echo.Echo, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := jsonCtx(e, method, "/api/properties/3", body)
	c.SetParamNames("id")
	c.SetParamValues("3")
	return c, rec
}

func TestPropertyGetUnpublishedVisibility(t *testing.T) {
	tests := []struct {
		name       string
		callerID   uint64
		callerRole string
		wantStatus int
	}{
		{name: "owner sees draft", callerID: 20, callerRole: "OWNER", wantStatus: http.StatusOK},
		{name: "admin sees draft", callerID: 1, callerRole: "ADMIN", wantStatus: http.StatusOK},
		// Drafts answer 404 to everyone else so their existence does not leak.
		{name: "stranger gets 404", callerID: 99, callerRole: "TENANT", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, mock, h := newPropertyEnv(t)
			expectGetProperty(mock, false)

			c, rec := propertyCtx(e, http.MethodGet, "")
			asIdentity(c, tc.callerID, "caller@example.com", tc.callerRole)
			require.NoError(t, h.Get(c))

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestPropertyUpdateForbiddenForNonOwner(t *testing.T) {
	e, mock, h := newPropertyEnv(t)
	expectGetProperty(mock, true)

	body := `{"title":"New title","address":"Av. Reforma 10","city":"CDMX","state":"CDMX","property_type":"apartment"}`
	c, rec := propertyCtx(e, http.MethodPut, body)
	asIdentity(c, 99, "other@example.com", "OWNER")
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPropertyDeleteConflict(t *testing.T) {
	e, mock, h := newPropertyEnv(t)
	expectGetProperty(mock, true)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM maintenance_requests")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	c, rec := propertyCtx(e, http.MethodDelete, "")
	asIdentity(c, 20, "olga@example.com", "OWNER")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "active maintenance requests")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyCreateValidation(t *testing.T) {
	e, _, h := newPropertyEnv(t)

	c, rec := jsonCtx(e, http.MethodPost, "/api/properties", `{"title":"x"}`)
	asIdentity(c, 20, "olga@example.com", "OWNER")
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")
}
