package voters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/platform/db"
	"github.com/dunvault/dunvault/internal/shared"
)

// Repository is the voter store. Scoped methods must never return rows
// outside scope.
type Repository interface {
	List(ctx context.Context, scope authz.Scope, q Query, limit, offset int) ([]Voter, error)
	Get(ctx context.Context, id int64) (*Voter, error)
	UpdateTag(ctx context.Context, id int64, tag *Tag, at time.Time) (*Voter, error)
	TagCounts(ctx context.Context, scope authz.Scope) (TagCounts, error)
	Distinct(ctx context.Context, scope authz.Scope, column Column) ([]string, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PGRepository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const voterColumns = `id, bil, no_kp, no_kp_id_lain, jantina, tahun_lahir, nama_pemilih,
       COALESCE(kod_daerah_mengundi, ''), COALESCE(daerah_mengundi, ''), COALESCE(kod_lokaliti, ''),
       COALESCE(lokaliti, ''), COALESCE(dun, ''), tag, updated_at`

// List returns voters in scope ordered by bil.
func (r *PGRepository) List(ctx context.Context, scope authz.Scope, q Query, limit, offset int) ([]Voter, error) {
	w := listWhere(scope, q)
	pos := w.next()
	query := fmt.Sprintf(`SELECT %s FROM voters %s ORDER BY bil, id LIMIT $%d OFFSET $%d`,
		voterColumns, w.String(), pos, pos+1)
	args := append(w.args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.StoreError("voters: list", err)
	}
	defer rows.Close()

	out := make([]Voter, 0)
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("voters: list rows", err)
	}
	return out, nil
}

// Get loads one voter regardless of scope; callers check visibility.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Voter, error) {
	row := r.db.QueryRow(ctx, `SELECT `+voterColumns+` FROM voters WHERE id = $1`, id)
	v, err := scanVoter(row)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateTag sets or clears the tag and returns the updated row.
func (r *PGRepository) UpdateTag(ctx context.Context, id int64, tag *Tag, at time.Time) (*Voter, error) {
	var value pgtype.Text
	if tag != nil {
		value = pgtype.Text{String: string(*tag), Valid: true}
	}
	row := r.db.QueryRow(ctx, `UPDATE voters SET tag = $2, updated_at = $3 WHERE id = $1 RETURNING `+voterColumns,
		id, value, at.UTC())
	return scanVoter(row)
}

// TagCounts aggregates tags in scope.
func (r *PGRepository) TagCounts(ctx context.Context, scope authz.Scope) (TagCounts, error) {
	w := scopeWhere(scope)
	query := fmt.Sprintf(`SELECT COUNT(*),
       COUNT(*) FILTER (WHERE tag = 'Yes'),
       COUNT(*) FILTER (WHERE tag = 'Unsure'),
       COUNT(*) FILTER (WHERE tag = 'No')
FROM voters %s`, w.String())
	var counts TagCounts
	if err := r.db.QueryRow(ctx, query, w.args...).Scan(&counts.Total, &counts.Yes, &counts.Unsure, &counts.No); err != nil {
		return TagCounts{}, shared.StoreError("voters: tag counts", err)
	}
	return counts, nil
}

// Distinct lists the non-empty values of column in scope. Order is left to
// the caller.
func (r *PGRepository) Distinct(ctx context.Context, scope authz.Scope, column Column) ([]string, error) {
	name := column.sql()
	if name == "" {
		return nil, fmt.Errorf("voters: unknown column %d", column)
	}
	w := scopeWhere(scope)
	w.raw(name + " IS NOT NULL")
	w.raw(name + " <> ''")
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT DISTINCT %s FROM voters %s`, name, w.String()), w.args...)
	if err != nil {
		return nil, shared.StoreError("voters: distinct "+name, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, shared.StoreError("voters: distinct "+name, err)
	}
	return values, nil
}

func scanVoter(row pgx.Row) (*Voter, error) {
	var (
		v         Voter
		noKPLain  pgtype.Text
		tag       pgtype.Text
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&v.ID, &v.Bil, &v.NoKP, &noKPLain, &v.Jantina, &v.TahunLahir, &v.NamaPemilih,
		&v.KodDaerahMengundi, &v.DaerahMengundi, &v.KodLokaliti, &v.Lokaliti, &v.DUN, &tag, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.StoreError("voters: scan", err)
	}
	if noKPLain.Valid {
		s := noKPLain.String
		v.NoKPIDLain = &s
	}
	if tag.Valid {
		t := Tag(tag.String)
		v.Tag = &t
	}
	if updatedAt.Valid {
		ts := updatedAt.Time
		v.UpdatedAt = &ts
	}
	return &v, nil
}

var _ Repository = (*PGRepository)(nil)
