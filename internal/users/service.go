package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dunvault/dunvault/internal/audit"
	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/password"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

// SystemPrincipal is the actor used by the operator CLI. It has no account
// row, so audit entries fall back to the target account.
var SystemPrincipal = authz.Principal{Username: "dunadmin", Role: rbac.RoleSuperAdmin}

// Service handles account administration. Every method requires
// manage_users.
type Service struct {
	repo   RepositoryPort
	hasher *password.Hasher
	authz  *authz.Authorizer
	trail  *audit.Trail
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, hasher *password.Hasher, authorizer *authz.Authorizer, trail *audit.Trail, logger *slog.Logger) *Service {
	if hasher == nil {
		hasher = password.NewHasher()
	}
	if authorizer == nil {
		authorizer = authz.NewAuthorizer(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, authz: authorizer, trail: trail, logger: logger}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context, actor authz.Principal) ([]Account, error) {
	if err := s.authz.Authorize(actor, rbac.CapManageUsers); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Lookup resolves a username to an account.
func (s *Service) Lookup(ctx context.Context, actor authz.Principal, username string) (*Account, error) {
	if err := s.authz.Authorize(actor, rbac.CapManageUsers); err != nil {
		return nil, err
	}
	return s.find(ctx, func(ctx context.Context) (*Account, error) {
		return s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	})
}

// Create adds an account. Every role except super_admin needs a DUN.
func (s *Service) Create(ctx context.Context, actor authz.Principal, in NewAccount, ip string) (*Account, error) {
	if err := s.authz.Authorize(actor, rbac.CapManageUsers); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, shared.InvalidInput("Username is required")
	}
	role, ok := rbac.ParseRole(in.Role)
	if !ok {
		return nil, shared.InvalidInput("Unknown role " + strings.TrimSpace(in.Role))
	}
	dun := strings.TrimSpace(in.DUN)
	if role != rbac.RoleSuperAdmin && dun == "" {
		return nil, shared.InvalidInput(fmt.Sprintf("DUN is required for role %s", role))
	}
	if err := password.ValidateNew("", in.Password); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.Create(ctx, accountRecord{
		Username:     username,
		PasswordHash: digest,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(in.Email),
		Role:         role.String(),
		DUN:          dun,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account created",
		slog.String("actor", actor.Username),
		slog.Int64("user_id", account.ID),
		slog.String("role", account.Role),
		slog.String("dun", account.DUN))
	s.trail.Append(ctx, audit.Entry{
		UserID:    actingID(actor, account.ID),
		Action:    audit.ActionUserCreated,
		TableName: audit.TableUsers,
		RecordID:  audit.RecordID(account.ID),
		IPAddress: ip,
		NewValue:  map[string]any{"username": account.Username, "role": account.Role, "dun": account.DUN},
	})
	return account, nil
}

// SetActive enables or disables an account. Administrators cannot disable
// themselves.
func (s *Service) SetActive(ctx context.Context, actor authz.Principal, id int64, active bool, ip string) (*Account, error) {
	if err := s.authz.Authorize(actor, rbac.CapManageUsers); err != nil {
		return nil, err
	}
	if actor.ID != 0 && actor.ID == id && !active {
		return nil, shared.InvalidInput("You cannot deactivate your own account")
	}
	account, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, s.notFound(err)
	}
	account.IsActive = active
	s.trail.Append(ctx, audit.Entry{
		UserID:    actingID(actor, id),
		Action:    audit.ActionUserStatusChanged,
		TableName: audit.TableUsers,
		RecordID:  audit.RecordID(id),
		IPAddress: ip,
		NewValue:  map[string]any{"is_active": active},
	})
	return account, nil
}

// ResetPassword sets a new password chosen by an administrator. The account
// must change it at next login.
func (s *Service) ResetPassword(ctx context.Context, actor authz.Principal, id int64, next, ip string) error {
	if err := s.authz.Authorize(actor, rbac.CapManageUsers); err != nil {
		return err
	}
	if err := password.ValidateNew("", next); err != nil {
		return err
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	digest, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, digest, true); err != nil {
		return s.notFound(err)
	}
	s.trail.Append(ctx, audit.Entry{
		UserID:    actingID(actor, id),
		Action:    audit.ActionPasswordResetAdmin,
		TableName: audit.TableUsers,
		RecordID:  audit.RecordID(id),
		IPAddress: ip,
	})
	return nil
}

// BulkResetPassword gives every non super_admin account the same password
// and audits each account it touched.
func (s *Service) BulkResetPassword(ctx context.Context, actor authz.Principal, next, ip string) (int64, error) {
	if err := s.authz.Authorize(actor, rbac.CapManageUsers); err != nil {
		return 0, err
	}
	if err := password.ValidateNew("", next); err != nil {
		return 0, err
	}
	digest, err := s.hasher.Hash(next)
	if err != nil {
		return 0, err
	}
	ids, err := s.repo.SetPasswordExceptRole(ctx, rbac.RoleSuperAdmin.String(), digest, true)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.trail.Append(ctx, audit.Entry{
			UserID:    actingID(actor, id),
			Action:    audit.ActionPasswordResetAdmin,
			TableName: audit.TableUsers,
			RecordID:  audit.RecordID(id),
			IPAddress: ip,
			NewValue:  map[string]any{"bulk": true},
		})
	}
	n := int64(len(ids))
	s.logger.Warn("bulk password reset", slog.String("actor", actor.Username), slog.Int64("accounts", n))
	return n, nil
}

func (s *Service) load(ctx context.Context, id int64) (*Account, error) {
	return s.find(ctx, func(ctx context.Context) (*Account, error) {
		return s.repo.FindByID(ctx, id)
	})
}

func (s *Service) find(ctx context.Context, fn func(context.Context) (*Account, error)) (*Account, error) {
	account, err := fn(ctx)
	if err != nil {
		return nil, s.notFound(err)
	}
	return account, nil
}

func (s *Service) notFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("User not found")
	}
	return err
}

func actingID(actor authz.Principal, target int64) int64 {
	if actor.ID != 0 {
		return actor.ID
	}
	return target
}
