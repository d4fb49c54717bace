package diagnostics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/rbac"
)

// Handler serves the latest report to account administrators.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if guard.Authorizer == nil {
		guard.Authorizer = authz.NewAuthorizer(nil, nil)
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers GET /diagnostics/duns.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.CapManageUsers)).Get("/diagnostics/duns", h.handleReport)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.logger.Error("dun diagnostics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
