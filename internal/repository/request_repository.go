// This file defines the MaintenanceRequest model and repository methods for
// the request lifecycle: filing, assignment, status transitions and
// role-scoped listing. Status values are pending, in_progress, completed and
// cancelled; only pending requests can be deleted.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// MaintenanceRequest mirrors maintenance_requests joined with its property,
// requester and (optionally) assigned provider.
type MaintenanceRequest struct {
	ID              uint64
	PropertyID      uint64
	RequesterID     uint64
	ProviderID      sql.NullInt64
	Title           string
	Description     string
	Category        string
	Priority        string
	Status          string
	EstimatedCost   sql.NullFloat64
	ActualCost      sql.NullFloat64
	ScheduledAt     sql.NullTime
	CompletedAt     sql.NullTime
	PropertyTitle   string
	PropertyAddress string
	PropertyCity    string
	PropertyOwnerID uint64
	RequesterName   string
	RequesterEmail  string
	RequesterPhone  sql.NullString
	ProviderName    sql.NullString
	ProviderEmail   sql.NullString
	ProviderPhone   sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RequestFilter captures list filters plus pagination. The three id fields
// implement role scoping: RequesterID restricts to requests filed by that
// user, RequesterOrOwnerID additionally admits requests against properties
// the user owns, and ProviderID restricts to assignments. Zero means
// unrestricted.
type RequestFilter struct {
	RequesterID        uint64
	RequesterOrOwnerID uint64
	ProviderID         uint64
	PropertyID         uint64
	Status             string
	Category           string
	Priority           string
	Page               int
	Limit              int
}

// StatusUpdate names the optional fields a status transition may carry.
// Nil pointers leave the column untouched.
type StatusUpdate struct {
	Status      string
	ActualCost  *float64
	ScheduledAt *time.Time
	CompletedAt *time.Time
}

// ProviderStats aggregates a provider's request counters for the stats
// endpoint.
type ProviderStats struct {
	Total      int64
	Pending    int64
	InProgress int64
	Completed  int64
	Cancelled  int64
	AvgCost    float64
}

// MonthlyEarning is one month of completed work for a provider.
type MonthlyEarning struct {
	Month     string
	Completed int64
	Total     float64
}

type RequestRepo struct{ DB *sql.DB }

func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{DB: db} }

const requestSelect = `
	SELECT mr.id, mr.property_id, mr.requester_id, mr.provider_id, mr.title,
	       mr.description, mr.category, mr.priority, mr.status,
	       mr.estimated_cost, mr.actual_cost, mr.scheduled_at, mr.completed_at,
	       p.title, p.address, p.city, p.owner_id,
	       u.name, u.email, u.phone,
	       prov.name, prov.email, prov.phone,
	       mr.created_at, mr.updated_at
	FROM maintenance_requests mr
	JOIN properties p ON p.id = mr.property_id
	JOIN users u ON u.id = mr.requester_id
	LEFT JOIN users prov ON prov.id = mr.provider_id`

// List returns a page of requests matching the filter plus the total count.
func (r *RequestRepo) List(ctx context.Context, f RequestFilter) ([]*MaintenanceRequest, int64, error) {
	where := []string{}
	args := []any{}

	if f.RequesterID != 0 {
		where = append(where, "mr.requester_id = ?")
		args = append(args, f.RequesterID)
	}
	if f.RequesterOrOwnerID != 0 {
		where = append(where, "(mr.requester_id = ? OR p.owner_id = ?)")
		args = append(args, f.RequesterOrOwnerID, f.RequesterOrOwnerID)
	}
	if f.ProviderID != 0 {
		where = append(where, "mr.provider_id = ?")
		args = append(args, f.ProviderID)
	}
	if f.PropertyID != 0 {
		where = append(where, "mr.property_id = ?")
		args = append(args, f.PropertyID)
	}
	if f.Status != "" {
		where = append(where, "mr.status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "mr.category = ?")
		args = append(args, f.Category)
	}
	if f.Priority != "" {
		where = append(where, "mr.priority = ?")
		args = append(args, f.Priority)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM maintenance_requests mr
		JOIN properties p ON p.id = mr.property_id WHERE ` + cond
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	listSQL := requestSelect + " WHERE " + cond +
		" ORDER BY mr.created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, listSQL, append(args, f.Limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*MaintenanceRequest
	for rows.Next() {
		m := new(MaintenanceRequest)
		if err := scanRequest(rows, m); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches a single request with its joined parties. Returns
// ErrNotFound when the row does not exist.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (*MaintenanceRequest, error) {
	rows, err := r.DB.QueryContext(ctx, requestSelect+" WHERE mr.id = ? LIMIT 1", id)
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
	m := new(MaintenanceRequest)
	if err := scanRequest(rows, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a request and populates its ID. New requests start pending.
func (r *RequestRepo) Create(ctx context.Context, m *MaintenanceRequest) error {
	const q = `INSERT INTO maintenance_requests
		(property_id, requester_id, title, description, category, priority, estimated_cost)
		VALUES (?,?,?,?,?,?,?)`
	res, err := r.DB.ExecContext(ctx, q,
		m.PropertyID, m.RequesterID, m.Title, m.Description, m.Category,
		m.Priority, m.EstimatedCost)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// UpdateStatus applies a status transition and any optional fields that came
// with it. The SET clause is built dynamically so absent fields keep their
// stored values.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id uint64, up StatusUpdate) error {
	set := []string{"status = ?"}
	args := []any{up.Status}

	if up.ActualCost != nil {
		set = append(set, "actual_cost = ?")
		args = append(args, *up.ActualCost)
	}
	if up.ScheduledAt != nil {
		set = append(set, "scheduled_at = ?")
		args = append(args, *up.ScheduledAt)
	}
	if up.CompletedAt != nil {
		set = append(set, "completed_at = ?")
		args = append(args, *up.CompletedAt)
	}
	set = append(set, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE maintenance_requests SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Assign schedules a provider on a request and moves it to in_progress.
func (r *RequestRepo) Assign(ctx context.Context, id, providerID uint64, scheduledAt *time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE maintenance_requests
		 SET provider_id = ?, scheduled_at = ?, status = 'in_progress', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, providerID, scheduledAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a request.
func (r *RequestRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM maintenance_requests WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// StatsForProvider aggregates request counters and average cost for one
// provider.
func (r *RequestRepo) StatsForProvider(ctx context.Context, providerUserID uint64) (ProviderStats, error) {
	const q = `SELECT COUNT(*),
		SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END),
		COALESCE(AVG(actual_cost), 0)
		FROM maintenance_requests WHERE provider_id = ?`
	var s ProviderStats
	var pending, inProgress, completed, cancelled sql.NullInt64
	err := r.DB.QueryRowContext(ctx, q, providerUserID).Scan(
		&s.Total, &pending, &inProgress, &completed, &cancelled, &s.AvgCost)
	if err != nil {
		return ProviderStats{}, err
	}
	s.Pending = pending.Int64
	s.InProgress = inProgress.Int64
	s.Completed = completed.Int64
	s.Cancelled = cancelled.Int64
	return s, nil
}

// MonthlyEarnings returns completed work grouped by month for the last six
// months, newest first.
func (r *RequestRepo) MonthlyEarnings(ctx context.Context, providerUserID uint64) ([]MonthlyEarning, error) {
	const q = `SELECT DATE_FORMAT(completed_at, '%Y-%m'), COUNT(*), COALESCE(SUM(actual_cost), 0)
		FROM maintenance_requests
		WHERE provider_id = ? AND status = 'completed'
		  AND completed_at >= DATE_SUB(NOW(), INTERVAL 6 MONTH)
		GROUP BY DATE_FORMAT(completed_at, '%Y-%m')
		ORDER BY 1 DESC`
	rows, err := r.DB.QueryContext(ctx, q, providerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthlyEarning
	for rows.Next() {
		var e MonthlyEarning
		if err := rows.Scan(&e.Month, &e.Completed, &e.Total); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanRequest(rows *sql.Rows, m *MaintenanceRequest) error {
	err := rows.Scan(&m.ID, &m.PropertyID, &m.RequesterID, &m.ProviderID, &m.Title,
		&m.Description, &m.Category, &m.Priority, &m.Status,
		&m.EstimatedCost, &m.ActualCost, &m.ScheduledAt, &m.CompletedAt,
		&m.PropertyTitle, &m.PropertyAddress, &m.PropertyCity, &m.PropertyOwnerID,
		&m.RequesterName, &m.RequesterEmail, &m.RequesterPhone,
		&m.ProviderName, &m.ProviderEmail, &m.ProviderPhone,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
