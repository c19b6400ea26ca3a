package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for dispatch monitoring
var (
	// dispatchAttemptsTotal tracks deliveries attempted per destination
	dispatchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dispatch_attempts_total",
			Help: "Total number of deliveries attempted",
		},
		[]string{"destination"},
	)

	// dispatchResultsTotal tracks delivery results per destination
	dispatchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dispatch_results_total",
			Help: "Total number of deliveries by result",
		},
		[]string{"destination", "status"}, // status: success|failure
	)

	// dispatchDuration tracks delivery duration
	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_dispatch_duration_seconds",
			Help:    "Delivery duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30}, // 100ms to 30s
		},
		[]string{"destination"},
	)

	// dispatchRateLimitHits tracks 429 responses per destination
	dispatchRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dispatch_rate_limit_hits_total",
			Help: "Total number of 429 responses from destinations",
		},
		[]string{"destination"},
	)

	// activeSends tracks in-flight destination calls
	activeSends = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_dispatch_active_sends",
			Help: "Number of in-flight destination calls",
		},
	)

	// destinationsConfigured tracks number of configured destinations
	destinationsConfigured = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_destinations_configured",
			Help: "Number of configured destinations",
		},
	)
)

// RecordDispatch records a delivery attempt.
func RecordDispatch(destination string) {
	dispatchAttemptsTotal.WithLabelValues(destination).Inc()
}

// RecordSuccess records a successful delivery and its duration.
func RecordSuccess(destination string, duration time.Duration) {
	dispatchResultsTotal.WithLabelValues(destination, "success").Inc()
	dispatchDuration.WithLabelValues(destination).Observe(duration.Seconds())
}

// RecordFailure records a failed delivery and its duration.
func RecordFailure(destination string, duration time.Duration) {
	dispatchResultsTotal.WithLabelValues(destination, "failure").Inc()
	dispatchDuration.WithLabelValues(destination).Observe(duration.Seconds())
}

// RecordRateLimitHit records a 429 response.
func RecordRateLimitHit(destination string) {
	dispatchRateLimitHits.WithLabelValues(destination).Inc()
}

// IncrementActiveSends increments the in-flight gauge by 1.
func IncrementActiveSends() {
	activeSends.Inc()
}

// DecrementActiveSends decrements the in-flight gauge by 1.
func DecrementActiveSends() {
	activeSends.Dec()
}

// SetDestinationsConfigured sets the number of configured destinations.
func SetDestinationsConfigured(count float64) {
	destinationsConfigured.Set(count)
}
