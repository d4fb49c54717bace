package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dunvault/dunvault/internal/platform/db"
	"github.com/dunvault/dunvault/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	UpdatePassword(ctx context.Context, id int64, digest string, mustChange bool) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const selectUser = `SELECT id, username, password_hash, COALESCE(full_name, ''), COALESCE(email, ''), role,
       COALESCE(dun, ''), is_active, must_change_password, last_login, created_at, updated_at
FROM users`

// FindByUsername fetches an account by exact username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE username = $1`, username))
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

// UpdatePassword stores a new digest.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, digest string, mustChange bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, must_change_password = $3, updated_at = NOW() WHERE id = $1`,
		id, digest, mustChange)
	if err != nil {
		return shared.StoreError("auth: update password", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TouchLastLogin records a successful login time.
func (r *PGRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at.UTC())
	return shared.StoreError("auth: touch last login", err)
}

func (r *PGRepository) scanOne(row pgx.Row) (*User, error) {
	var (
		user      User
		lastLogin pgtype.Timestamptz
	)
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &user.Email, &user.Role,
		&user.DUN, &user.IsActive, &user.MustChangePassword, &lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.StoreError("auth: find user", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
