package jobs

import (
	"github.com/hibiken/asynq"

	"github.com/dunvault/dunvault/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit carries audit writes so a diagnostics backlog never delays them.
	QueueAudit = "audit"
	// TaskDiagnosticsDUNs runs the DUN consistency report.
	TaskDiagnosticsDUNs = "diagnostics:duns"
	// TaskAuditRecord persists one queued audit entry.
	TaskAuditRecord = audit.TaskRecord
)

// NewDiagnosticsTask constructs the DUN diagnostics task. It carries no
// payload.
func NewDiagnosticsTask() *asynq.Task {
	return asynq.NewTask(TaskDiagnosticsDUNs, nil)
}
