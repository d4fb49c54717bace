package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dunvault/dunvault/internal/audit"
	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/password"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
	"github.com/dunvault/dunvault/internal/token"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	hasher *password.Hasher
	codec  *token.Codec
	trail  *audit.Trail
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for audit timestamps and
// last-login updates.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher *password.Hasher, codec *token.Codec, trail *audit.Trail, logger *slog.Logger, opts ...ServiceOption) *Service {
	if hasher == nil {
		hasher = password.NewHasher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:   repo,
		hasher: hasher,
		codec:  codec,
		trail:  trail,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login validates username/password credentials and issues a session token.
// Unknown usernames and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		s.hasher.Burn(in.Password)
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.Burn(in.Password)
			return LoginResult{}, shared.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return LoginResult{}, shared.ErrAccountInactive
	}
	role, ok := rbac.ParseRole(user.Role)
	if !ok {
		s.logger.Warn("login rejected: unknown stored role",
			slog.Int64("user_id", user.ID),
			slog.String("role", user.Role))
		return LoginResult{}, shared.ErrInvalidCredentials
	}

	raw, expiresAt, err := s.codec.Issue(token.Subject{
		UserID:   user.ID,
		Username: user.Username,
		Role:     role,
		DUN:      user.DUN,
	}, token.DefaultTTL)
	if err != nil {
		return LoginResult{}, err
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("touch last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	s.trail.Append(ctx, audit.Entry{
		UserID:    user.ID,
		Action:    audit.ActionLogin,
		IPAddress: in.IPAddress,
		At:        now,
	})

	info := UserInfo{
		ID:                 user.ID,
		Username:           user.Username,
		FullName:           user.FullName,
		Email:              user.Email,
		Role:               role,
		DUN:                user.DUN,
		MustChangePassword: user.MustChangePassword,
	}
	return LoginResult{
		AccessToken:        raw,
		TokenType:          token.Type,
		ExpiresAt:          expiresAt,
		User:               info,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// Resolve verifies raw and re-reads the account so deactivation takes effect
// on the next request. Role and DUN are taken from the token, with the stored
// DUN used when the token carries none.
func (s *Service) Resolve(ctx context.Context, raw string) (authz.Principal, error) {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return authz.Principal{}, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return authz.Principal{}, shared.ErrTokenInvalid
		}
		return authz.Principal{}, err
	}
	if !user.IsActive {
		return authz.Principal{}, shared.ErrAccountInactive
	}
	dun := claims.DUN
	if dun == "" {
		dun = user.DUN
	}
	return authz.Principal{
		ID:                 user.ID,
		Username:           user.Username,
		Role:               claims.Role,
		DUN:                dun,
		FullName:           user.FullName,
		Email:              user.Email,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// ChangePassword replaces the caller's password after checking the current
// one. Tokens issued before the change stay valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, p authz.Principal, in ChangePasswordInput) error {
	user, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrTokenInvalid
		}
		return err
	}
	if !s.hasher.Verify(in.Current, user.PasswordHash) {
		return shared.InvalidCredentials("Current password is incorrect")
	}
	if err := password.ValidateNew(in.Current, in.Next); err != nil {
		return err
	}
	digest, err := s.hasher.Hash(in.Next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, digest, false); err != nil {
		return err
	}
	s.trail.Append(ctx, audit.Entry{
		UserID:    user.ID,
		Action:    audit.ActionPasswordChanged,
		TableName: audit.TableUsers,
		RecordID:  audit.RecordID(user.ID),
		IPAddress: in.IPAddress,
	})
	return nil
}
