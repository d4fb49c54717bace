package audit

import (
	"context"
	"log/slog"
	"time"
)

// appendTimeout bounds a single audit write once it is detached from the
// request context.
const appendTimeout = 2 * time.Second

// Recorder appends entries to the audit trail.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards every entry.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Entry) error { return nil }

// Trail is the recorder used by request paths. Writes are best effort: a
// failure is logged and never surfaces to the caller.
type Trail struct {
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
	timeout  time.Duration
}

// NewTrail wraps recorder. A nil recorder discards entries.
func NewTrail(recorder Recorder, logger *slog.Logger) *Trail {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trail{recorder: recorder, logger: logger, now: time.Now, timeout: appendTimeout}
}

// Append stamps and records entry.
func (t *Trail) Append(ctx context.Context, entry Entry) {
	if t == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = t.now().UTC()
	}
	// A cancelled request must not drop the entry it already earned, but a
	// stalled store must not hold the handler forever either.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()
	if err := t.recorder.Record(recordCtx, entry); err != nil {
		t.logger.Error("audit record failed",
			slog.Int64("user_id", entry.UserID),
			slog.String("action", entry.Action),
			slog.String("table", entry.TableName),
			slog.Any("error", err))
	}
}
