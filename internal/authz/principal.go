package authz

import (
	"context"

	"github.com/dunvault/dunvault/internal/rbac"
)

// Principal is the authenticated identity derived from a verified token and a
// fresh account lookup. It is built once at the verification boundary.
type Principal struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Role               rbac.Role `json:"role"`
	DUN                string    `json:"dun,omitempty"`
	FullName           string    `json:"full_name,omitempty"`
	Email              string    `json:"email,omitempty"`
	MustChangePassword bool      `json:"must_change_password"`
}

// IsSuperAdmin reports whether p is unrestricted by DUN.
func (p Principal) IsSuperAdmin() bool {
	return p.Role == rbac.RoleSuperAdmin
}

// HasDUN reports whether p carries a DUN assignment.
func (p Principal) HasDUN() bool {
	return p.DUN != ""
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
