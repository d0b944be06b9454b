package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqlmock matches against whitespace-normalized SQL, so the expectation is
// written as a single line.
const activeRequestCountSQL = "SELECT COUNT(*) FROM maintenance_requests WHERE property_id = ? AND status IN ('pending','in_progress')"

func TestPropertyRepoDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPropertyRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(activeRequestCountSQL)).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM property_images WHERE property_id = ?")).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM properties WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyRepoDeleteBlockedByActiveRequests(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPropertyRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(activeRequestCountSQL)).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 3)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyRepoDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPropertyRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(activeRequestCountSQL)).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM property_images WHERE property_id = ?")).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM properties WHERE id = ?")).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyRepoAddImageClearsPreviousPrimary(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPropertyRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE property_images SET is_primary=0 WHERE property_id=?")).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO property_images (property_id, image_url, is_primary) VALUES (?,?,?)")).
		WithArgs(uint64(3), "https://img.example.com/1.jpg", true).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	img := &PropertyImage{PropertyID: 3, ImageURL: "https://img.example.com/1.jpg", IsPrimary: true}
	require.NoError(t, repo.AddImage(context.Background(), img))
	assert.Equal(t, uint64(11), img.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
