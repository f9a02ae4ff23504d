package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,password_hash,role,is_active,login_attempts,locked_until,last_login,created_at,updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var role string
	var lockedUntil, lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.IsActive,
		&u.LoginAttempts, &lockedUntil, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role, _ = model.ParseRole(role)
	if lockedUntil.Valid {
		t := lockedUntil.Time
		u.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// GetByUsername fetches a user by handle.  Returns (nil, nil) when no such
// user exists so callers can treat absence as a credential failure rather
// than a transport error.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// SaveLoginState persists the mutable login bookkeeping for a user: the
// failed-attempt counter, the lockout expiry and the last-login timestamp.
func (r *UserRepo) SaveLoginState(ctx context.Context, u *model.User) error {
	var lockedUntil, lastLogin interface{}
	if u.LockedUntil != nil {
		lockedUntil = u.LockedUntil.UTC()
	}
	if u.LastLogin != nil {
		lastLogin = u.LastLogin.UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_attempts=?, locked_until=?, last_login=? WHERE id=?",
		u.LoginAttempts, lockedUntil, lastLogin, u.ID)
	return err
}

// Create inserts a user with a freshly hashed password and returns its ID.
// Used by the seeding command; the API has no registration endpoint.
func (r *UserRepo) Create(ctx context.Context, username, password string, role model.Role, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, is_active) VALUES (?,?,?,1)",
		username, hash, string(role))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
