package jobs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/dunvault/dunvault/internal/platform/httpx"
)

// QueueInspector is the slice of asynq.Inspector the health endpoint reads.
type QueueInspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler serves queue health for operators.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler builds the handler. A nil inspector reports every queue empty.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes registers GET /health.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

// QueueHealth is one queue's backlog.
type QueueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Retry   int    `json:"retry"`
}

// Snapshot reads backlog counts for the audit and default queues. asynq only
// knows a queue after its first task, so unseen queues report zero.
func Snapshot(inspector QueueInspector) ([]QueueHealth, error) {
	out := []QueueHealth{{Queue: QueueAudit}, {Queue: QueueDefault}}
	if inspector == nil {
		return out, nil
	}
	names, err := inspector.Queues()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[name] = true
	}
	for i := range out {
		if !known[out[i].Queue] {
			continue
		}
		info, err := inspector.GetQueueInfo(out[i].Queue)
		if err != nil {
			return nil, err
		}
		out[i].Pending = info.Pending
		out[i].Retry = info.Retry
	}
	return out, nil
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	queues, err := Snapshot(h.inspector)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), "Queue backend unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": queues})
}
