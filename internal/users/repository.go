package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dunvault/dunvault/internal/platform/db"
	"github.com/dunvault/dunvault/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	Create(ctx context.Context, rec accountRecord) (*Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetPassword(ctx context.Context, id int64, digest string, mustChange bool) error
	SetPasswordExceptRole(ctx context.Context, role, digest string, mustChange bool) ([]int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

const accountColumns = `id, username, COALESCE(full_name, ''), COALESCE(email, ''), role, COALESCE(dun, ''),
       is_active, must_change_password, last_login, created_at`

// List returns every account ordered by DUN, role and username.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM users ORDER BY dun NULLS FIRST, role, username`)
	if err != nil {
		return nil, shared.StoreError("users: list", err)
	}
	defer rows.Close()
	accounts := make([]Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("users: list rows", err)
	}
	return accounts, nil
}

// FindByID loads one account.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
}

// FindByUsername loads one account by username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE username = $1`, username))
}

// Create inserts an account that must change its password on first login.
func (r *Repository) Create(ctx context.Context, rec accountRecord) (*Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO users (username, password_hash, full_name, email, role, dun, is_active, must_change_password)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, TRUE)
RETURNING `+accountColumns,
		rec.Username, rec.PasswordHash, optionalText(rec.FullName), optionalText(rec.Email), rec.Role, optionalText(rec.DUN))
	account, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, shared.InvalidInput("Username already exists")
		}
		return nil, err
	}
	return account, nil
}

// SetActive enables or disables an account.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return shared.StoreError("users: set active", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPassword replaces an account's digest.
func (r *Repository) SetPassword(ctx context.Context, id int64, digest string, mustChange bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, must_change_password = $3, updated_at = NOW() WHERE id = $1`,
		id, digest, mustChange)
	if err != nil {
		return shared.StoreError("users: set password", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPasswordExceptRole replaces the digest of every account whose role is
// not role and returns the ids it updated.
func (r *Repository) SetPasswordExceptRole(ctx context.Context, role, digest string, mustChange bool) ([]int64, error) {
	rows, err := r.db.Query(ctx, `UPDATE users SET password_hash = $2, must_change_password = $3, updated_at = NOW()
WHERE role <> $1
RETURNING id`, role, digest, mustChange)
	if err != nil {
		return nil, shared.StoreError("users: bulk set password", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, shared.StoreError("users: bulk set password", err)
	}
	return ids, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		a         Account
		lastLogin pgtype.Timestamptz
	)
	err := row.Scan(&a.ID, &a.Username, &a.FullName, &a.Email, &a.Role, &a.DUN,
		&a.IsActive, &a.MustChangePassword, &lastLogin, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.StoreError("users: scan", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	return &a, nil
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

var _ RepositoryPort = (*Repository)(nil)
