// Package jobmetrics instruments background task runs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics holds the task collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	findings    *prometheus.GaugeVec
	now         func() time.Time
}

var (
	sharedOnce sync.Once
	shared     *Metrics
)

// NewMetrics registers collectors on reg. Passing nil returns a process-wide
// instance bound to prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg != nil {
		return register(reg)
	}
	sharedOnce.Do(func() {
		shared = register(prometheus.DefaultRegisterer)
	})
	return shared
}

func register(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dunvault",
			Name:      "jobs_total",
			Help:      "Task runs by task type and outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dunvault",
			Name:      "job_duration_seconds",
			Help:      "Task run duration.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"task"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dunvault",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per task type.",
		}, []string{"task"}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dunvault",
			Name:      "dun_findings",
			Help:      "DUN consistency findings from the latest diagnostics run.",
		}, []string{"kind"}),
		now: time.Now,
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.findings)
	return m
}

// Run is one in-flight task execution.
type Run struct {
	m       *Metrics
	task    string
	started time.Time
}

// Start begins timing a run of task.
func (m *Metrics) Start(task string) *Run {
	r := &Run{m: m, task: task}
	if m != nil {
		r.started = m.now()
	}
	return r
}

// Finish records the outcome of the run and hands err back so it can be used
// in a deferred assignment.
func (r *Run) Finish(err error) error {
	if r == nil || r.m == nil || r.task == "" {
		return err
	}
	end := r.m.now()
	r.m.duration.WithLabelValues(r.task).Observe(end.Sub(r.started).Seconds())
	if err != nil {
		r.m.runs.WithLabelValues(r.task, OutcomeFailed).Inc()
		return err
	}
	r.m.runs.WithLabelValues(r.task, OutcomeOK).Inc()
	r.m.lastSuccess.WithLabelValues(r.task).Set(float64(end.Unix()))
	return nil
}

// SetDUNFindings publishes the count for one diagnostics finding kind.
func (m *Metrics) SetDUNFindings(kind string, count int) {
	if m == nil || kind == "" {
		return
	}
	m.findings.WithLabelValues(kind).Set(float64(count))
}
