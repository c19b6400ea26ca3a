package worker

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newIsolatedMetrics builds a WorkerMetrics whose collectors live in their own
// registry, so tests do not collide with the promauto instances.
func newIsolatedMetrics(t *testing.T) (*WorkerMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()

	m := &WorkerMetrics{
		CycleRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_worker_cycle_runs_total",
			Help: "Test counter",
		}, []string{"status"}),
		CycleRunDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "test_worker_cycle_run_duration_seconds",
			Help:    "Test histogram",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),
		CycleEntriesDispatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "test_worker_cycle_entries_dispatched_total",
			Help: "Test counter",
		}),
		CycleLastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "test_worker_cycle_last_success_timestamp",
			Help: "Test gauge",
		}),
	}
	reg.MustRegister(m.CycleRunsTotal, m.CycleRunDurationSeconds, m.CycleEntriesDispatchedTotal, m.CycleLastSuccessTimestamp)
	return m, reg
}

func TestNewWorkerMetrics(t *testing.T) {
	// globalTestMetrics avoids duplicate Prometheus registration
	metrics := globalTestMetrics

	if metrics == nil {
		t.Fatal("NewWorkerMetrics returned nil")
	}
	if metrics.ConfigMetrics == nil {
		t.Error("ConfigMetrics is nil")
	}
	if metrics.Component() != "worker" {
		t.Errorf("Component() = %q, want worker", metrics.Component())
	}
	if metrics.CycleRunsTotal == nil {
		t.Error("CycleRunsTotal is nil")
	}
	if metrics.CycleRunDurationSeconds == nil {
		t.Error("CycleRunDurationSeconds is nil")
	}
	if metrics.CycleEntriesDispatchedTotal == nil {
		t.Error("CycleEntriesDispatchedTotal is nil")
	}
	if metrics.CycleLastSuccessTimestamp == nil {
		t.Error("CycleLastSuccessTimestamp is nil")
	}

	metrics.MustRegister()
}

func TestWorkerMetrics_RecordJobRun(t *testing.T) {
	metrics, _ := newIsolatedMetrics(t)

	metrics.RecordJobRun("success")
	metrics.RecordJobRun("success")
	metrics.RecordJobRun("noop")
	metrics.RecordJobRun("failed")

	tests := []struct {
		status string
		want   float64
	}{
		{"success", 2},
		{"noop", 1},
		{"failed", 1},
		{"interrupted", 0},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := testutil.ToFloat64(metrics.CycleRunsTotal.WithLabelValues(tt.status))
			if got != tt.want {
				t.Errorf("runs{status=%q} = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestWorkerMetrics_RecordJobDuration(t *testing.T) {
	metrics, reg := newIsolatedMetrics(t)

	metrics.RecordJobDuration(10.5)
	metrics.RecordJobDuration(120.0)
	metrics.RecordJobDuration(600.0)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() != "test_worker_cycle_run_duration_seconds" {
			continue
		}
		found = true
		if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
			t.Errorf("Expected 3 observations, got %d", got)
		}
		if got := mf.GetMetric()[0].GetHistogram().GetSampleSum(); got != 730.5 {
			t.Errorf("Expected sum 730.5, got %f", got)
		}
	}
	if !found {
		t.Error("histogram not found in registry")
	}
}

func TestWorkerMetrics_RecordEntriesDispatched(t *testing.T) {
	metrics, _ := newIsolatedMetrics(t)

	metrics.RecordEntriesDispatched(3)
	metrics.RecordEntriesDispatched(4)
	// 0件・負数は無視される
	metrics.RecordEntriesDispatched(0)
	metrics.RecordEntriesDispatched(-2)

	if got := testutil.ToFloat64(metrics.CycleEntriesDispatchedTotal); got != 7 {
		t.Errorf("dispatched = %v, want 7", got)
	}
}

func TestWorkerMetrics_RecordLastSuccess(t *testing.T) {
	metrics, _ := newIsolatedMetrics(t)

	if got := testutil.ToFloat64(metrics.CycleLastSuccessTimestamp); got != 0 {
		t.Fatalf("initial timestamp = %v, want 0", got)
	}

	metrics.RecordLastSuccess()

	if got := testutil.ToFloat64(metrics.CycleLastSuccessTimestamp); got <= 0 {
		t.Errorf("timestamp = %v, want > 0", got)
	}
}

func TestWorkerMetrics_ConcurrentAccess(t *testing.T) {
	metrics, _ := newIsolatedMetrics(t)

	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			metrics.RecordJobRun("success")
			metrics.RecordJobDuration(1)
			metrics.RecordEntriesDispatched(2)
			metrics.RecordLastSuccess()
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(metrics.CycleRunsTotal.WithLabelValues("success")); got != goroutines {
		t.Errorf("runs = %v, want %d", got, goroutines)
	}
	if got := testutil.ToFloat64(metrics.CycleEntriesDispatchedTotal); got != 2*goroutines {
		t.Errorf("dispatched = %v, want %d", got, 2*goroutines)
	}
}
