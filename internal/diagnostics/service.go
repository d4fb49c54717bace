package diagnostics

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/dunvault/dunvault/internal/platform/db"
	"github.com/dunvault/dunvault/internal/shared"
)

// Source loads the raw inputs of a report.
type Source interface {
	Load(ctx context.Context) ([]DUNCount, []AccountRef, error)
}

// PGSource reads both tables inside one read-only snapshot so the counts are
// consistent with each other.
type PGSource struct {
	conn db.Beginner
}

// NewPGSource constructs a PGSource.
func NewPGSource(conn db.Beginner) *PGSource {
	return &PGSource{conn: conn}
}

// Load implements Source.
func (s *PGSource) Load(ctx context.Context) ([]DUNCount, []AccountRef, error) {
	var (
		counts   []DUNCount
		accounts []AccountRef
	)
	err := db.WithSnapshot(ctx, s.conn, func(q db.DBTX) error {
		rows, err := q.Query(ctx, `SELECT COALESCE(NULLIF(TRIM(dun), ''), '') AS dun, COUNT(*)
FROM voters GROUP BY 1 ORDER BY 1`)
		if err != nil {
			return shared.StoreError("diagnostics: voter duns", err)
		}
		counts, err = pgx.CollectRows(rows, pgx.RowToStructByPos[DUNCount])
		if err != nil {
			return shared.StoreError("diagnostics: voter duns", err)
		}
		rows, err = q.Query(ctx, `SELECT username, role, COALESCE(NULLIF(TRIM(dun), ''), '') FROM users ORDER BY username`)
		if err != nil {
			return shared.StoreError("diagnostics: users", err)
		}
		accounts, err = pgx.CollectRows(rows, pgx.RowToStructByPos[AccountRef])
		if err != nil {
			return shared.StoreError("diagnostics: users", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return counts, accounts, nil
}

// Service produces diagnostics reports.
type Service struct {
	source Source
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

// Report loads current data and builds a report.
func (s *Service) Report(ctx context.Context) (Report, error) {
	counts, accounts, err := s.source.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	return Build(counts, accounts), nil
}

// LogFindings writes one warning per finding and an info summary.
func LogFindings(logger *slog.Logger, r Report) {
	if logger == nil {
		logger = slog.Default()
	}
	if r.VotersWithoutDUN > 0 {
		logger.Warn("voters without DUN are visible only to super admins",
			slog.Int64("voters", r.VotersWithoutDUN))
	}
	for _, a := range r.UsersWithoutDUN {
		logger.Warn("account has no DUN assignment",
			slog.String("username", a.Username), slog.String("role", a.Role))
	}
	for _, c := range r.DUNWithoutUsers {
		logger.Warn("DUN has voters but no accounts",
			slog.String("dun", c.DUN), slog.Int64("voters", c.Voters))
	}
	for _, o := range r.DUNWithoutVoters {
		logger.Warn("DUN has accounts but no voters",
			slog.String("dun", o.DUN),
			slog.Int("users", len(o.Users)),
			slog.String("closest_dun", o.ClosestDUN))
	}
	logger.Info("dun diagnostics",
		slog.Int64("total_voters", r.TotalVoters),
		slog.Int("total_users", r.TotalUsers),
		slog.Int("duns_with_voters", len(r.VotersByDUN)),
		slog.Int("duns_with_users", len(r.UsersByDUN)),
		slog.Int("matching", len(r.Matching)),
		slog.Bool("healthy", r.Healthy()))
}
