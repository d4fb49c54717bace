package voters

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/platform/httpx"
	"github.com/dunvault/dunvault/internal/shared"
)

// Handler exposes the voter register over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a voters Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers voter routes. The router must already authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/voters", h.handleList)
	r.Get("/voters/{id}", h.handleGet)
	r.Patch("/voters/{id}", h.handleUpdate)
	r.Get("/stats", h.handleStats)
	r.Get("/daerah", h.handleDaerah)
	r.Get("/lokaliti", h.handleLokaliti)
	r.Get("/dun-list", h.handleDUNList)
}

type updateTagRequest struct {
	Tag *string `json:"tag" validate:"omitempty,oneof=Yes Unsure No"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), p, filter, httpx.ClientIP(r))
	if err != nil {
		h.respond(w, "list voters", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	voter, err := h.service.Get(r.Context(), p, id, httpx.ClientIP(r))
	if err != nil {
		h.respond(w, "get voter", err)
		return
	}
	httpx.JSON(w, http.StatusOK, voter)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateTagRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, shared.InvalidInput("Tag must be one of Yes, Unsure, No or null"))
		return
	}
	var tag *Tag
	if req.Tag != nil {
		t := Tag(*req.Tag)
		tag = &t
	}
	voter, err := h.service.UpdateTag(r.Context(), p, id, tag, httpx.ClientIP(r))
	if err != nil {
		h.respond(w, "update voter", err)
		return
	}
	httpx.JSON(w, http.StatusOK, voter)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), p, strings.TrimSpace(r.URL.Query().Get("dun")), httpx.ClientIP(r))
	if err != nil {
		h.respond(w, "voter stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleDaerah(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	values, err := h.service.Daerah(r.Context(), p, strings.TrimSpace(r.URL.Query().Get("dun")))
	if err != nil {
		h.respond(w, "list daerah", err)
		return
	}
	httpx.JSON(w, http.StatusOK, values)
}

func (h *Handler) handleLokaliti(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	values, err := h.service.Lokaliti(r.Context(), p, strings.TrimSpace(r.URL.Query().Get("dun")))
	if err != nil {
		h.respond(w, "list lokaliti", err)
		return
	}
	httpx.JSON(w, http.StatusOK, values)
}

func (h *Handler) handleDUNList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	values, err := h.service.DUNList(r.Context(), p)
	if err != nil {
		h.respond(w, "list duns", err)
		return
	}
	httpx.JSON(w, http.StatusOK, values)
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func principal(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTokenInvalid)
	}
	return p, ok
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.InvalidInput("Voter id must be a positive integer")
	}
	return id, nil
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Name:     q.Get("name"),
		Gender:   q.Get("gender"),
		Daerah:   q.Get("daerah"),
		Lokaliti: q.Get("lokaliti"),
		DUN:      strings.TrimSpace(q.Get("dun")),
		Tag:      q.Get("tag"),
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Filter{}, shared.InvalidInput("limit must be a positive integer")
		}
		f.Limit = n
	}
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Filter{}, shared.InvalidInput("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}
