package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analysisRuns *prometheus.HistogramVec
	divergences  *prometheus.GaugeVec
	converged    *prometheus.GaugeVec
	changepoint  *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	cacheOps     *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		analysisRuns: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oilscope_analysis_run_duration_seconds",
				Help:    "Duration of full analysis runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"variant"},
		),
		divergences: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oilscope_sampling_divergences",
				Help: "Divergent transitions in the most recent run",
			},
			[]string{"variant"},
		),
		converged: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oilscope_analysis_converged",
				Help: "Whether the most recent run passed all convergence gates (1/0)",
			},
			[]string{"variant"},
		),
		changepoint: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oilscope_changepoint_mean_index",
				Help: "Posterior mean index of the primary change point",
			},
			[]string{"variant"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oilscope_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cacheOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oilscope_cache_requests_total",
				Help: "Cache lookups partitioned by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordAnalysisRun records the duration of one completed analysis run.
func (r *Recorder) RecordAnalysisRun(variant string, seconds float64) {
	r.analysisRuns.WithLabelValues(variant).Observe(seconds)
}

// RecordDivergences records the divergence count of the latest run.
func (r *Recorder) RecordDivergences(variant string, n int) {
	r.divergences.WithLabelValues(variant).Set(float64(n))
}

// RecordConvergence records the convergence verdict of the latest run.
func (r *Recorder) RecordConvergence(variant string, converged bool) {
	v := 0.0
	if converged {
		v = 1.0
	}
	r.converged.WithLabelValues(variant).Set(v)
}

// RecordChangepointIndex records the primary change point of the latest run.
func (r *Recorder) RecordChangepointIndex(variant string, index int) {
	r.changepoint.WithLabelValues(variant).Set(float64(index))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheHit records a cache lookup outcome.
func (r *Recorder) RecordCacheHit(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheOps.WithLabelValues(outcome).Inc()
}
