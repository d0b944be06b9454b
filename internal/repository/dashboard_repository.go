package repository

import (
	"context"
	"database/sql"
)

// DashboardRepo aggregates the handful of global counters shown on the home
// screen. Read-only.
type DashboardRepo struct{ DB *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{DB: db} }

// DashboardCounts holds the summary counters.
type DashboardCounts struct {
	ActiveProperties   int64
	PendingRequests    int64
	AvailableProviders int64
}

// Counts runs the three summary queries. They are independent reads; a stale
// combination across them is acceptable for a dashboard.
func (r *DashboardRepo) Counts(ctx context.Context) (DashboardCounts, error) {
	var c DashboardCounts
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM properties WHERE published = 1 AND status = 'available'").
		Scan(&c.ActiveProperties); err != nil {
		return c, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM maintenance_requests WHERE status IN ('pending','in_progress')").
		Scan(&c.PendingRequests); err != nil {
		return c, err
	}
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM providers p JOIN users u ON u.id = p.user_id
		 WHERE p.is_available = 1 AND u.is_active = 1`).
		Scan(&c.AvailableProviders); err != nil {
		return c, err
	}
	return c, nil
}
