package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dunvault/dunvault/internal/audit"
	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/shared"
)

// TrailService defines the business contract for reading the audit trail.
type TrailService interface {
	List(ctx context.Context, p authz.Principal, window shared.Window) (audit.Page, error)
	Activity(ctx context.Context, p authz.Principal) ([]audit.Row, error)
}

// Handler serves the audit trail endpoints.
type Handler struct {
	logger  *slog.Logger
	service TrailService
}

// NewHandler creates an audit handler.
func NewHandler(logger *slog.Logger, service TrailService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTokenInvalid)
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), p, window)
	if err != nil {
		h.respond(w, "list audit logs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTokenInvalid)
		return
	}
	rows, err := h.service.Activity(r.Context(), p)
	if err != nil {
		h.respond(w, "load user activity", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rows, "count": len(rows)})
}

func (h *Handler) respond(w http.ResponseWriter, message string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseWindow(r *http.Request) (shared.Window, error) {
	var window shared.Window
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return window, shared.InvalidInput("limit must be a positive integer")
		}
		window.Limit = parsed
	}
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return window, shared.InvalidInput("offset must be a non-negative integer")
		}
		window.Offset = parsed
	}
	return window, nil
}
