package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dunvault/dunvault/internal/platform/db"
	"github.com/dunvault/dunvault/internal/shared"
)

// Store persists audit entries in the audit_log table. It never updates or
// deletes rows.
type Store struct {
	db db.DBTX
}

// NewStore constructs a Store.
func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

// Record inserts the entry.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return errors.New("audit: store not initialised")
	}
	if entry.UserID == 0 || entry.Action == "" {
		return errors.New("audit: entry requires user_id and action")
	}
	var newValue []byte
	if len(entry.NewValue) > 0 {
		encoded, err := json.Marshal(entry.NewValue)
		if err != nil {
			return fmt.Errorf("audit: encode new_value: %w", err)
		}
		newValue = encoded
	}
	at := pgtype.Timestamptz{}
	if !entry.At.IsZero() {
		at = pgtype.Timestamptz{Time: entry.At.UTC(), Valid: true}
	}
	_, err := s.db.Exec(ctx, `INSERT INTO audit_log (user_id, action, table_name, record_id, ip_address, new_value, created_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		entry.UserID, entry.Action, optionalText(entry.TableName), entry.RecordID, optionalText(entry.IPAddress), newValue, at)
	return shared.StoreError("audit: insert", err)
}

// List returns entries newest first, joined with the acting account.
// It fetches limit+1 rows so callers can tell whether another page exists.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Row, error) {
	rows, err := s.db.Query(ctx, `SELECT a.id, a.user_id, COALESCE(u.username, ''), COALESCE(u.full_name, ''), a.action,
       COALESCE(a.table_name, ''), a.record_id, COALESCE(a.ip_address, ''), a.new_value, a.created_at
FROM audit_log a
LEFT JOIN users u ON u.id = a.user_id
ORDER BY a.created_at DESC, a.id DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, shared.StoreError("audit: list", err)
	}
	return scanRows(rows)
}

// ListByUser returns the most recent entries written by userID.
func (s *Store) ListByUser(ctx context.Context, userID int64, limit int) ([]Row, error) {
	rows, err := s.db.Query(ctx, `SELECT a.id, a.user_id, COALESCE(u.username, ''), COALESCE(u.full_name, ''), a.action,
       COALESCE(a.table_name, ''), a.record_id, COALESCE(a.ip_address, ''), a.new_value, a.created_at
FROM audit_log a
LEFT JOIN users u ON u.id = a.user_id
WHERE a.user_id = $1
ORDER BY a.created_at DESC, a.id DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, shared.StoreError("audit: list by user", err)
	}
	return scanRows(rows)
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	out := make([]Row, 0)
	for rows.Next() {
		var (
			row      Row
			newValue []byte
			created  time.Time
		)
		if err := rows.Scan(&row.ID, &row.UserID, &row.Username, &row.FullName, &row.Action,
			&row.TableName, &row.RecordID, &row.IPAddress, &newValue, &created); err != nil {
			return nil, shared.StoreError("audit: scan", err)
		}
		if len(newValue) > 0 {
			if err := json.Unmarshal(newValue, &row.NewValue); err != nil {
				return nil, fmt.Errorf("audit: decode new_value: %w", err)
			}
		}
		row.CreatedAt = created
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("audit: rows", err)
	}
	return out, nil
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
