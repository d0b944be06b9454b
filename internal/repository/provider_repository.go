// This file defines the Provider profile model and repository methods for
// the public provider directory (search, detail, reviews) and the
// provider-facing profile update. Categories and service areas are stored as
// JSON arrays and filtered with JSON_CONTAINS.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Provider is a provider profile joined with its owning user row. One profile
// per user with role PROVIDER; the row is created at registration and deleted
// with the user (FK cascade).
type Provider struct {
	ID           uint64
	UserID       uint64
	BusinessName string
	Description  sql.NullString
	Categories   []string
	ServiceAreas []string
	HourlyRate   sql.NullFloat64
	Rating       float64
	TotalReviews int64
	IsAvailable  bool
	Name         string
	Email        string
	Phone        sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Review is one provider review. ProviderID references the provider's user
// id, matching the maintenance_requests.provider_id column.
type Review struct {
	ID           uint64
	ProviderID   uint64
	ReviewerID   uint64
	RequestID    sql.NullInt64
	Rating       int
	Comment      sql.NullString
	ReviewerName string
	RequestTitle sql.NullString
	CreatedAt    time.Time
}

// ProviderFilter captures the public search parameters plus pagination.
type ProviderFilter struct {
	Query         string
	Category      string
	Location      string
	MinRating     *float64
	MaxHourlyRate *float64
	Available     *bool
	Page          int
	Limit         int
}

type ProviderRepo struct{ DB *sql.DB }

func NewProviderRepo(db *sql.DB) *ProviderRepo { return &ProviderRepo{DB: db} }

const providerSelect = `
	SELECT p.id, p.user_id, p.business_name, p.description, p.categories,
	       p.service_areas, p.hourly_rate, p.rating, p.total_reviews,
	       p.is_available, u.name, u.email, u.phone, p.created_at, p.updated_at
	FROM providers p
	JOIN users u ON u.id = p.user_id`

// jsonScalar encodes a string as a JSON candidate for JSON_CONTAINS. These
// values arrive from public query params; a stray quote or backslash in a
// hand-quoted candidate is invalid JSON and a MySQL 3141 error.
func jsonScalar(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Search returns a page of active providers matching the filter, ordered by
// rating then review count, plus the total count before paging.
func (r *ProviderRepo) Search(ctx context.Context, f ProviderFilter) ([]*Provider, int64, error) {
	where := []string{"u.role = 'PROVIDER'", "u.is_active = 1"}
	args := []any{}

	if f.Query != "" {
		where = append(where, "(p.business_name LIKE ? OR p.description LIKE ? OR u.name LIKE ?)")
		term := "%" + f.Query + "%"
		args = append(args, term, term, term)
	}
	if f.Category != "" {
		where = append(where, "JSON_CONTAINS(p.categories, ?)")
		args = append(args, jsonScalar(f.Category))
	}
	if f.Location != "" {
		where = append(where, "JSON_CONTAINS(p.service_areas, ?)")
		args = append(args, jsonScalar(f.Location))
	}
	if f.MinRating != nil {
		where = append(where, "p.rating >= ?")
		args = append(args, *f.MinRating)
	}
	if f.MaxHourlyRate != nil {
		where = append(where, "p.hourly_rate <= ?")
		args = append(args, *f.MaxHourlyRate)
	}
	if f.Available != nil {
		where = append(where, "p.is_available = ?")
		args = append(args, *f.Available)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := "SELECT COUNT(*) FROM providers p JOIN users u ON u.id = p.user_id WHERE " + cond
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	listSQL := providerSelect + " WHERE " + cond +
		" ORDER BY p.rating DESC, p.total_reviews DESC LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, listSQL, append(args, f.Limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches an active provider by profile id. ErrNotFound covers both
// a missing row and a disabled account.
func (r *ProviderRepo) GetByID(ctx context.Context, id uint64) (*Provider, error) {
	return r.getOne(ctx, providerSelect+" WHERE p.id = ? AND u.role = 'PROVIDER' AND u.is_active = 1", id)
}

// GetByUserID fetches a provider profile by the owning user id.
func (r *ProviderRepo) GetByUserID(ctx context.Context, userID uint64) (*Provider, error) {
	return r.getOne(ctx, providerSelect+" WHERE p.user_id = ?", userID)
}

// GetAssignable returns the provider profile for a user only when the user
// exists, has the PROVIDER role and is active. The caller still checks the
// availability flag so it can report "not available" separately from 404.
func (r *ProviderRepo) GetAssignable(ctx context.Context, userID uint64) (*Provider, error) {
	return r.getOne(ctx,
		providerSelect+" WHERE p.user_id = ? AND u.role = 'PROVIDER' AND u.is_active = 1", userID)
}

// EnsureProfile creates a default profile row at registration time. The
// insert is idempotent via the unique user_id index.
func (r *ProviderRepo) EnsureProfile(ctx context.Context, userID uint64, businessName string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO providers (user_id, business_name, categories, service_areas)
		 VALUES (?,?,'[]','[]')`, userID, businessName)
	if isDuplicate(err) {
		return nil
	}
	return err
}

// UpdateProfile rewrites the provider-editable columns. The aggregate rating
// and review count are never client-writable.
func (r *ProviderRepo) UpdateProfile(ctx context.Context, p *Provider) error {
	cats, err := json.Marshal(p.Categories)
	if err != nil {
		return err
	}
	areas, err := json.Marshal(p.ServiceAreas)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE providers SET business_name=?, description=?, categories=?,
		 service_areas=?, hourly_rate=?, is_available=?, updated_at=CURRENT_TIMESTAMP
		 WHERE user_id=?`,
		p.BusinessName, p.Description, string(cats), string(areas),
		p.HourlyRate, p.IsAvailable, p.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReviews returns a page of reviews for a provider (keyed by user id),
// newest first, plus the total count.
func (r *ProviderRepo) ListReviews(ctx context.Context, providerUserID uint64, page, limit int) ([]*Review, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM provider_reviews WHERE provider_id = ?", providerUserID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT pr.id, pr.provider_id, pr.reviewer_id, pr.request_id,
		pr.rating, pr.comment, u.name, mr.title, pr.created_at
		FROM provider_reviews pr
		JOIN users u ON u.id = pr.reviewer_id
		LEFT JOIN maintenance_requests mr ON mr.id = pr.request_id
		WHERE pr.provider_id = ?
		ORDER BY pr.created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, providerUserID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Review
	for rows.Next() {
		rv := new(Review)
		if err := rows.Scan(&rv.ID, &rv.ProviderID, &rv.ReviewerID, &rv.RequestID,
			&rv.Rating, &rv.Comment, &rv.ReviewerName, &rv.RequestTitle, &rv.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ProviderRepo) getOne(ctx context.Context, query string, arg any) (*Provider, error) {
	rows, err := r.DB.QueryContext(ctx, query+" LIMIT 1", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanProvider(rows)
}

// scanProvider reads one joined row, decoding the JSON array columns. A bad
// blob in the DB degrades to an empty list rather than failing the request.
func scanProvider(rows *sql.Rows) (*Provider, error) {
	p := new(Provider)
	var cats, areas []byte
	err := rows.Scan(&p.ID, &p.UserID, &p.BusinessName, &p.Description, &cats,
		&areas, &p.HourlyRate, &p.Rating, &p.TotalReviews, &p.IsAvailable,
		&p.Name, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(cats) > 0 {
		_ = json.Unmarshal(cats, &p.Categories)
	}
	if len(areas) > 0 {
		_ = json.Unmarshal(areas, &p.ServiceAreas)
	}
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.ServiceAreas == nil {
		p.ServiceAreas = []string{}
	}
	return p, nil
}
