package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunvault/dunvault/internal/diagnostics"
	jobmetrics "github.com/dunvault/dunvault/internal/jobs"
)

type reporterFunc func(ctx context.Context) (diagnostics.Report, error)

func (f reporterFunc) Report(ctx context.Context) (diagnostics.Report, error) { return f(ctx) }

func TestDiagnosticsJobPublishesFindings(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	report := diagnostics.Build(
		[]diagnostics.DUNCount{{DUN: "Kawang", Voters: 10}, {DUN: "", Voters: 4}},
		[]diagnostics.AccountRef{{Username: "pdm.x", Role: "pdm", DUN: "Kawan"}},
	)
	job := NewDiagnosticsJob(reporterFunc(func(context.Context) (diagnostics.Report, error) {
		return report, nil
	}), nil, metrics)

	require.NoError(t, job.Handle(context.Background(), NewDiagnosticsTask()))

	count, err := testutil.GatherAndCount(reg, "dunvault_dun_findings")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	runs, err := testutil.GatherAndCount(reg, "dunvault_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestDiagnosticsJobFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	boom := errors.New("db down")
	job := NewDiagnosticsJob(reporterFunc(func(context.Context) (diagnostics.Report, error) {
		return diagnostics.Report{}, boom
	}), nil, jobmetrics.NewMetrics(reg))

	err := job.Handle(context.Background(), NewDiagnosticsTask())
	assert.ErrorIs(t, err, boom)
	runs, err := testutil.GatherAndCount(reg, "dunvault_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
	success, err := testutil.GatherAndCount(reg, "dunvault_job_last_success_timestamp_seconds")
	require.NoError(t, err)
	assert.Zero(t, success)
}

func TestDiagnosticsJobNotConfigured(t *testing.T) {
	var job *DiagnosticsJob
	assert.Error(t, job.Handle(context.Background(), NewDiagnosticsTask()))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queues":[{"queue":"audit","pending":0,"retry":0},{"queue":"default","pending":0,"retry":0}]}`, rr.Body.String())
}
