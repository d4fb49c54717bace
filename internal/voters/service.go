package voters

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dunvault/dunvault/internal/audit"
	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

// Service applies authorization to every voter operation.
type Service struct {
	repo   Repository
	authz  *authz.Authorizer
	cache  *StatsCache
	trail  *audit.Trail
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a voters Service. cache and trail may be nil.
func NewService(repo Repository, authorizer *authz.Authorizer, cache *StatsCache, trail *audit.Trail, logger *slog.Logger) *Service {
	if authorizer == nil {
		authorizer = authz.NewAuthorizer(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		authz:  authorizer,
		cache:  cache,
		trail:  trail,
		logger: logger,
		now:    time.Now,
	}
}

// List returns voters visible to p matching f. A principal with no DUN gets
// an empty page.
func (s *Service) List(ctx context.Context, p authz.Principal, f Filter, ip string) (Page, error) {
	q, err := f.Normalize()
	if err != nil {
		return Page{}, err
	}
	scope := s.authz.Scope(p, f.DUN)
	page := Page{
		Data:   []Voter{},
		Paging: PagingInfo{Limit: q.Window.Limit, Offset: q.Window.Offset},
	}
	if !scope.Empty() {
		rows, err := s.repo.List(ctx, scope, q, q.Window.Limit+1, q.Window.Offset)
		if err != nil {
			return Page{}, err
		}
		if len(rows) > q.Window.Limit {
			rows = rows[:q.Window.Limit]
			page.Paging.HasNext = true
		}
		page.Data = rows
	}
	page.Count = len(page.Data)

	s.trail.Append(ctx, audit.Entry{
		UserID:    p.ID,
		Action:    audit.ActionView,
		TableName: audit.TableVoters,
		IPAddress: ip,
	})
	return page, nil
}

// Get returns one voter if p may see it.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64, ip string) (*Voter, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckResource(p, v.DUN); err != nil {
		s.logDenial(p, "get voter", id, err)
		return nil, err
	}
	s.trail.Append(ctx, audit.Entry{
		UserID:    p.ID,
		Action:    audit.ActionView,
		TableName: audit.TableVoters,
		RecordID:  audit.RecordID(id),
		IPAddress: ip,
	})
	return v, nil
}

// UpdateTag sets or clears a voter's tag. The capability is checked before
// the lookup so callers without it learn nothing about the id.
func (s *Service) UpdateTag(ctx context.Context, p authz.Principal, id int64, tag *Tag, ip string) (*Voter, error) {
	if err := s.authz.Authorize(p, rbac.CapUpdateVoters); err != nil {
		s.logDenial(p, "update voter", id, err)
		return nil, err
	}
	if tag != nil {
		if _, err := ParseTag(string(*tag)); err != nil {
			return nil, err
		}
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckResource(p, current.DUN); err != nil {
		s.logDenial(p, "update voter", id, err)
		return nil, err
	}
	updated, err := s.repo.UpdateTag(ctx, id, tag, s.now().UTC())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("Voter not found")
		}
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, current.DUN); err != nil {
		s.logger.Warn("invalidate stats cache", slog.String("dun", current.DUN), slog.Any("error", err))
	}

	var newTag any
	if tag != nil {
		newTag = string(*tag)
	}
	s.trail.Append(ctx, audit.Entry{
		UserID:    p.ID,
		Action:    audit.ActionUpdate,
		TableName: audit.TableVoters,
		RecordID:  audit.RecordID(id),
		IPAddress: ip,
		NewValue:  map[string]any{"tag": newTag},
	})
	return updated, nil
}

// Stats summarises tags over the scope of p. A super admin may narrow to one
// DUN with requestedDUN.
func (s *Service) Stats(ctx context.Context, p authz.Principal, requestedDUN, ip string) (Stats, error) {
	scope := s.authz.Scope(p, requestedDUN)
	var counts TagCounts
	if !scope.Empty() {
		loaded, _, err := s.cache.Fetch(ctx, scope, func(ctx context.Context) (TagCounts, error) {
			return s.repo.TagCounts(ctx, scope)
		})
		if err != nil {
			return Stats{}, err
		}
		counts = loaded
	}
	stats := BuildStats(counts)
	switch {
	case scope.All:
		stats.DUN = "All"
	default:
		stats.DUN = scope.DUN
	}
	s.trail.Append(ctx, audit.Entry{
		UserID:    p.ID,
		Action:    audit.ActionViewStats,
		IPAddress: ip,
	})
	return stats, nil
}

// BuildStats derives percentages rounded to two decimals. Zero total yields
// zero percentages.
func BuildStats(c TagCounts) Stats {
	untagged := c.Total - c.Yes - c.Unsure - c.No
	if untagged < 0 {
		untagged = 0
	}
	return Stats{
		Total:              c.Total,
		Yes:                c.Yes,
		YesPercentage:      percentage(c.Yes, c.Total),
		Unsure:             c.Unsure,
		UnsurePercentage:   percentage(c.Unsure, c.Total),
		No:                 c.No,
		NoPercentage:       percentage(c.No, c.Total),
		Untagged:           untagged,
		UntaggedPercentage: percentage(untagged, c.Total),
	}
}

func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(total)) / 100
}

// Daerah lists the polling districts visible to p.
func (s *Service) Daerah(ctx context.Context, p authz.Principal, requestedDUN string) ([]string, error) {
	return s.distinct(ctx, s.authz.Scope(p, requestedDUN), ColumnDaerah)
}

// Lokaliti lists the localities visible to p.
func (s *Service) Lokaliti(ctx context.Context, p authz.Principal, requestedDUN string) ([]string, error) {
	return s.distinct(ctx, s.authz.Scope(p, requestedDUN), ColumnLokaliti)
}

// DUNList lists every DUN in the register. Requires view_all_dun.
func (s *Service) DUNList(ctx context.Context, p authz.Principal) ([]string, error) {
	if err := s.authz.Authorize(p, rbac.CapViewAllDUN); err != nil {
		s.logDenial(p, "list duns", 0, err)
		return nil, shared.Forbidden("Only super admin can view all DUNs")
	}
	return s.distinct(ctx, authz.Scope{All: true}, ColumnDUN)
}

func (s *Service) distinct(ctx context.Context, scope authz.Scope, column Column) ([]string, error) {
	if scope.Empty() {
		return []string{}, nil
	}
	values, err := s.repo.Distinct(ctx, scope, column)
	if err != nil {
		return nil, err
	}
	sortValues(values)
	return values, nil
}

// sortValues orders place names the way Malay readers expect, ignoring case.
func sortValues(values []string) {
	collate.New(language.Malay, collate.IgnoreCase).SortStrings(values)
}

func (s *Service) load(ctx context.Context, id int64) (*Voter, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("Voter not found")
		}
		return nil, err
	}
	return v, nil
}

func (s *Service) logDenial(p authz.Principal, op string, id int64, err error) {
	attrs := []any{
		slog.String("op", op),
		slog.Int64("user_id", p.ID),
		slog.String("role", p.Role.String()),
		slog.String("user_dun", p.DUN),
		slog.String("reason", err.Error()),
	}
	if id != 0 {
		attrs = append(attrs, slog.Int64("voter_id", id))
	}
	s.logger.Info("voter access denied", attrs...)
}
