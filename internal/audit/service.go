package audit

import (
	"context"
	"fmt"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	ActivityLimit    = 20
)

// Repository reads stored audit rows.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Row, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]Row, error)
}

// Service exposes the audit trail to authorised principals.
type Service struct {
	repo  Repository
	authz *authz.Authorizer
}

// NewService builds an audit Service.
func NewService(repo Repository, authorizer *authz.Authorizer) *Service {
	if authorizer == nil {
		authorizer = authz.NewAuthorizer(nil, nil)
	}
	return &Service{repo: repo, authz: authorizer}
}

// List returns a page of the whole trail. Requires view_audit_logs.
func (s *Service) List(ctx context.Context, p authz.Principal, window shared.Window) (Page, error) {
	if s.repo == nil {
		return Page{}, fmt.Errorf("audit: repository not configured")
	}
	if err := s.authz.Authorize(p, rbac.CapViewAuditLogs); err != nil {
		return Page{}, err
	}
	window = shared.NewWindow(window.Limit, window.Offset, DefaultListLimit, MaxListLimit)
	rows, err := s.repo.List(ctx, window.Limit+1, window.Offset)
	if err != nil {
		return Page{}, err
	}
	hasNext := len(rows) > window.Limit
	if hasNext {
		rows = rows[:window.Limit]
	}
	return Page{
		Data:   rows,
		Count:  len(rows),
		Paging: PagingInfo{Limit: window.Limit, Offset: window.Offset, HasNext: hasNext},
	}, nil
}

// Activity returns the caller's own most recent entries.
func (s *Service) Activity(ctx context.Context, p authz.Principal) ([]Row, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.ListByUser(ctx, p.ID, ActivityLimit)
}
