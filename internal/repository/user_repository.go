package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/inmoservicios/backend/internal/utils"
)

// User mirrors the 'users' table. PasswordHash stays inside the repository
// and handler layers; response DTOs never include it.
type User struct {
	ID           uint64
	Email        string
	Name         string
	Phone        sql.NullString
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,phone,password_hash,role,is_active,created_at,updated_at"

// Create hashes the password and inserts the user, returning its ID. The
// unique index on email decides duplicates; a 1062 error maps to
// ErrEmailExists. phone may be nil.
func (r *UserRepo) Create(ctx context.Context, email, name string, phone *string, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, phone, password_hash, role) VALUES (?,?,?,?,?)",
		email, name, phone, hash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetActiveByID fetches a user by id but only when the account is active.
// Disabled accounts behave as missing for every authenticated read.
func (r *UserRepo) GetActiveByID(ctx context.Context, id uint64) (User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND is_active=1 LIMIT 1", id))
}

// UpdateProfile sets name and phone for a user. phone may be nil to clear it.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name string, phone *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, phone=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		name, phone, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash. Callers verify the current
// password first; this method never sees plain text.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		hash, id)
	return err
}

// SetActive flips the soft-disable flag. There is no hard delete of users.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		active, id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PasswordHash,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
