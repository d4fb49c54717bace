package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/dunvault/dunvault/internal/audit/http"
	"github.com/dunvault/dunvault/internal/auth"
	"github.com/dunvault/dunvault/internal/diagnostics"
	"github.com/dunvault/dunvault/internal/observability"
	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/users"
	"github.com/dunvault/dunvault/internal/voters"
	"github.com/dunvault/dunvault/jobs"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	AuthHandler        *auth.Handler
	VotersHandler      *voters.Handler
	AuditHandler       *audithttp.Handler
	UsersHandler       *users.Handler
	DiagnosticsHandler *diagnostics.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler

	// Readiness checks keyed by dependency name.
	Readiness map[string]Pinger
}

// NewRouter constructs the chi.Router with dunvault defaults. Everything under
// /api except /api/auth/login requires a bearer token.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", params.AuthHandler.MountRoutes)

		api.Group(func(pr chi.Router) {
			pr.Use(params.AuthHandler.Authenticate)
			if params.VotersHandler != nil {
				params.VotersHandler.MountRoutes(pr)
			}
			if params.AuditHandler != nil {
				params.AuditHandler.MountRoutes(pr)
			}
			if params.UsersHandler != nil {
				params.UsersHandler.MountRoutes(pr)
			}
			if params.DiagnosticsHandler != nil {
				params.DiagnosticsHandler.MountRoutes(pr)
			}
			if params.PermissionsHandler != nil {
				pr.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				pr.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "Method not allowed")
	})
	return r
}

func readinessHandler(logger *slog.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				result[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "up"
		}
		httpx.JSON(w, status, result)
	}
}
