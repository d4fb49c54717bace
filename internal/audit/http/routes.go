package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/platform/httpx"
)

const rateLimit = 30
const rateWindow = time.Minute

// MountRoutes registers the audit trail endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "rate limit exceeded")
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/audit-logs", h.handleList)
	})
	r.Get("/user-activity", h.handleActivity)
}

func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := authz.PrincipalFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(p.ID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
