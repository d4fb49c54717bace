package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/shared"
)

// RoleResolver returns the role of the authenticated caller.
type RoleResolver func(r *http.Request) (Role, bool)

// PermissionsHandler exposes the caller's effective capabilities.
type PermissionsHandler struct {
	logger *slog.Logger
	table  *Table
	roleOf RoleResolver
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, table *Table, roleOf RoleResolver) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if table == nil {
		table = &DefaultTable
	}
	return &PermissionsHandler{logger: logger, table: table, roleOf: roleOf}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
}

type permissionsResponse struct {
	Role        Role            `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := h.roleOf(r)
	if !ok {
		httpx.RespondError(w, shared.ErrTokenInvalid)
		return
	}
	perms := make(map[string]bool, capabilityCount)
	for _, c := range Capabilities() {
		perms[c.String()] = h.table.Has(role, c)
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Role: role, Permissions: perms})
}
