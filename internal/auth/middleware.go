package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/shared"
)

// Resolver turns a raw bearer token into a principal.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (authz.Principal, error)
}

// Authenticate requires a valid bearer token and stores the resolved principal
// in the request context.
func Authenticate(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := httpx.BearerToken(r)
			if !ok {
				httpx.RespondError(w, shared.ErrTokenInvalid)
				return
			}
			p, err := resolver.Resolve(r.Context(), raw)
			if err != nil {
				if shared.KindOf(err) == shared.KindInternal {
					logger.Error("resolve principal", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.ContextWithPrincipal(r.Context(), p)))
		})
	}
}
