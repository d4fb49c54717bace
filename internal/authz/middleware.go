package authz

import (
	"log/slog"
	"net/http"

	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

// Middleware wires capability checks for HTTP handlers. It expects the
// authentication middleware to have stored a Principal in the context.
type Middleware struct {
	Authorizer *Authorizer
	Logger     *slog.Logger
}

// Require ensures the current principal holds capability.
func (m Middleware) Require(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrTokenInvalid)
				return
			}
			if err := m.Authorizer.Authorize(p, capability); err != nil {
				if m.Logger != nil {
					m.Logger.Info("capability denied",
						slog.Int64("user_id", p.ID),
						slog.String("role", p.Role.String()),
						slog.String("capability", capability.String()),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RoleOf resolves the caller's role for handlers that only need the role.
func RoleOf(r *http.Request) (rbac.Role, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		return rbac.RoleUnknown, false
	}
	return p.Role, true
}
