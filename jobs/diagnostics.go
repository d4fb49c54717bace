package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dunvault/dunvault/internal/diagnostics"
	jobmetrics "github.com/dunvault/dunvault/internal/jobs"
)

// Reporter produces a DUN diagnostics report.
type Reporter interface {
	Report(ctx context.Context) (diagnostics.Report, error)
}

// DiagnosticsJob logs DUN consistency findings and publishes them as gauges.
type DiagnosticsJob struct {
	Reporter Reporter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewDiagnosticsJob initialises the diagnostics handler.
func NewDiagnosticsJob(reporter Reporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *DiagnosticsJob {
	return &DiagnosticsJob{Reporter: reporter, Logger: logger, Metrics: metrics}
}

// Handle executes one diagnostics run.
func (j *DiagnosticsJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Reporter == nil {
		return errors.New("dun diagnostics: handler not configured")
	}
	run := j.metrics().Start(TaskDiagnosticsDUNs)
	defer func() {
		resultErr = run.Finish(resultErr)
	}()

	start := time.Now()
	logger := j.logger()
	report, err := j.Reporter.Report(ctx)
	if err != nil {
		logger.Error("dun diagnostics failed", slog.Any("error", err))
		return err
	}
	for kind, count := range report.Findings() {
		j.metrics().SetDUNFindings(kind, count)
	}
	diagnostics.LogFindings(logger, report)
	logger.Info("completed dun diagnostics", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *DiagnosticsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDiagnosticsDUNs))
	}
	return slog.Default().With(slog.String("job", TaskDiagnosticsDUNs))
}

func (j *DiagnosticsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
