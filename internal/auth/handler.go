package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/shared"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// Authenticate is the bearer middleware for every protected route.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return Authenticate(h.service, h.logger)(next)
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(loginRateLimit, loginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "Too many login attempts")
		}),
	)).Post("/login", h.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(h.Authenticate)
		pr.Get("/me", h.handleMe)
		pr.Post("/logout", h.handleLogout)
		pr.Post("/change-password", h.handleChangePassword)
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Login(r.Context(), LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: httpx.ClientIP(r),
	})
	if err != nil {
		h.respond(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTokenInvalid)
		return
	}
	httpx.JSON(w, http.StatusOK, InfoFromPrincipal(p))
}

// Logout is client-side only: the token stays valid until it expires.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTokenInvalid)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	err := h.service.ChangePassword(r.Context(), p, ChangePasswordInput{
		Current:   req.CurrentPassword,
		Next:      req.NewPassword,
		IPAddress: httpx.ClientIP(r),
	})
	if err != nil {
		h.respond(w, "change password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
