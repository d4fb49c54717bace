package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if guard.Authorizer == nil {
		guard.Authorizer = authz.NewAuthorizer(nil, nil)
	}
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(rbac.CapManageUsers))
		r.Get("/users", h.listUsers)
		r.Post("/users", h.createUser)
		r.Patch("/users/{id}/status", h.setStatus)
		r.Post("/users/{id}/password", h.resetPassword)
	})
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"max=128"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"required"`
	DUN      string `json:"dun" validate:"max=64"`
}

type statusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type passwordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	accounts, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.respond(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": accounts, "count": len(accounts)})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	var req createUserRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.Create(r.Context(), actor, NewAccount{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
		DUN:      req.DUN,
	}, httpx.ClientIP(r))
	if err != nil {
		h.respond(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req statusRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.SetActive(r.Context(), actor, id, *req.IsActive, httpx.ClientIP(r))
	if err != nil {
		h.respond(w, "set user status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req passwordRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), actor, id, req.NewPassword, httpx.ClientIP(r)); err != nil {
		h.respond(w, "reset password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Password reset; user must change it at next login"})
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.InvalidInput("User id must be a positive integer")
	}
	return id, nil
}
