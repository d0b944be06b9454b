package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var providerCols = []string{
	"id", "user_id", "business_name", "description", "categories",
	"service_areas", "hourly_rate", "rating", "total_reviews",
	"is_available", "name", "email", "phone", "created_at", "updated_at",
}

func providerRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(providerCols).AddRow(
		1, 30, "Pro Plumbing", nil, `["plumbing"]`, `["CDMX"]`,
		350.0, 4.5, 12, true, "Pablo Pro", "pro@example.com", nil, now, now,
	)
}

func TestSearchEncodesJSONCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewProviderRepo(db)

	// A quote in the public query param must arrive as a valid JSON string
	// candidate, not a raw concatenation that MySQL rejects with error 3141.
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM providers p JOIN users u ON u.id = p.user_id WHERE u.role = 'PROVIDER' AND u.is_active = 1 AND JSON_CONTAINS(p.categories, ?) AND JSON_CONTAINS(p.service_areas, ?)")).
		WithArgs(`"plum\"bing"`, `"CDMX"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.id, p.user_id, p.business_name")).
		WithArgs(`"plum\"bing"`, `"CDMX"`, 20, 0).
		WillReturnRows(providerRows())

	out, total, err := repo.Search(context.Background(), ProviderFilter{
		Category: `plum"bing`,
		Location: "CDMX",
		Page:     1,
		Limit:    20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"plumbing"}, out[0].Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJSONScalar(t *testing.T) {
	assert.Equal(t, `"plumbing"`, jsonScalar("plumbing"))
	assert.Equal(t, `"plum\"bing"`, jsonScalar(`plum"bing`))
	assert.Equal(t, `"back\\slash"`, jsonScalar(`back\slash`))
}
