package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PreferenceRepo stores one JSON preference blob per user. Unknown keys pass
// through untouched so clients can evolve their settings without schema
// changes.
type PreferenceRepo struct{ DB *sql.DB }

func NewPreferenceRepo(db *sql.DB) *PreferenceRepo { return &PreferenceRepo{DB: db} }

// Get returns the stored preferences for a user, or ErrNotFound when the
// user has never saved any.
func (r *PreferenceRepo) Get(ctx context.Context, userID uint64) (map[string]any, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx,
		"SELECT preferences FROM user_preferences WHERE user_id = ?", userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	prefs := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &prefs); err != nil {
			return nil, err
		}
	}
	return prefs, nil
}

// Put upserts the preference blob for a user.
func (r *PreferenceRepo) Put(ctx context.Context, userID uint64, prefs map[string]any) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, preferences) VALUES (?,?)
		 ON DUPLICATE KEY UPDATE preferences = VALUES(preferences)`,
		userID, string(raw))
	return err
}
