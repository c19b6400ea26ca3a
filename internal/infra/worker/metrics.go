package worker

import (
	"feed-relay/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the scheduled relay job.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// metrics for the cron-driven cycle runs.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Job metrics:
//   - worker_cycle_runs_total: Scheduled runs by status (success/noop/interrupted/failed)
//   - worker_cycle_run_duration_seconds: Duration histogram of one scheduled run
//   - worker_cycle_entries_dispatched_total: Entries dispatched by scheduled runs
//   - worker_cycle_last_success_timestamp: Unix timestamp of last run that did not fail
//
// Example usage:
//
//	metrics := NewWorkerMetrics()
//	metrics.MustRegister()
//
//	start := time.Now()
//	stats, err := pipeline.RunCycle(ctx)
//	metrics.RecordJobRun(status)
//	metrics.RecordJobDuration(time.Since(start).Seconds())
//	metrics.RecordEntriesDispatched(stats.Dispatched)
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CycleRunsTotal counts scheduled runs.
	// Labels: status (success, noop, interrupted, failed)
	CycleRunsTotal *prometheus.CounterVec

	// CycleRunDurationSeconds measures one scheduled run including the cycle timeout.
	// Buckets: 1s, 5s, 30s, 1m, 5m, 15m, 30m
	CycleRunDurationSeconds prometheus.Histogram

	// CycleEntriesDispatchedTotal counts entries handed to the destinations.
	CycleEntriesDispatchedTotal prometheus.Counter

	// CycleLastSuccessTimestamp is set whenever a run finishes without error.
	CycleLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics initialized.
// Metrics are registered with the default registry through promauto, so it
// must be called once per process.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cycle_runs_total",
			Help: "Total number of scheduled cycle runs by status",
		}, []string{"status"}),

		CycleRunDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cycle_run_duration_seconds",
			Help:    "Duration of scheduled cycle runs in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		CycleEntriesDispatchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_cycle_entries_dispatched_total",
			Help: "Total number of entries dispatched by scheduled runs",
		}),

		CycleLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last scheduled run that finished without error",
		}),
	}
}

// MustRegister is a no-op; promauto registers the metrics on creation.
// It keeps the explicit initialization call in main.
func (m *WorkerMetrics) MustRegister() {}

// RecordJobRun increments the run counter for status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.CycleRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of a run in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.CycleRunDurationSeconds.Observe(seconds)
}

// RecordEntriesDispatched adds count to the dispatched counter.
// Non-positive counts are ignored.
func (m *WorkerMetrics) RecordEntriesDispatched(count int) {
	if count <= 0 {
		return
	}
	m.CycleEntriesDispatchedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CycleLastSuccessTimestamp.SetToCurrentTime()
}
