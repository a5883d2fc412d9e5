package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/slox-lang/slox/pkg/evaluator"
)

// Run outcomes recorded by Metrics.
const (
	OutcomeOK           = "ok"
	OutcomeDiagnostics  = "diagnostics"
	OutcomeRuntimeError = "runtime_error"
)

// Metrics holds the Prometheus collectors for runtime runs.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Diagnostics *prometheus.CounterVec
	Steps       prometheus.Counter
	RunDuration prometheus.Histogram
}

// NewMetrics creates the run collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slox_runs_total",
			Help: "Total number of program runs by outcome.",
		}, []string{"outcome"}),

		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "slox_diagnostics_total",
			Help: "Total number of diagnostics reported by code.",
		}, []string{"code"}),

		Steps: f.NewCounter(prometheus.CounterOpts{
			Name: "slox_steps_total",
			Help: "Total number of interpreter steps executed.",
		}),

		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "slox_run_seconds",
			Help:    "Time spent on a single run, from scanning to the end of execution.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// observe is a no-op on a nil receiver.
func (m *Metrics) observe(res *Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(elapsed.Seconds())
	if res != nil {
		m.Steps.Add(float64(res.Steps))
		for _, w := range res.Warnings {
			m.Diagnostics.WithLabelValues(w.Code).Inc()
		}
	}

	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeDiagnostics
		if _, ok := evaluator.AsRuntimeError(err); ok {
			outcome = OutcomeRuntimeError
		}
		for _, d := range Diagnostics(err) {
			m.Diagnostics.WithLabelValues(d.Code).Inc()
		}
	}
	m.Runs.WithLabelValues(outcome).Inc()
}
