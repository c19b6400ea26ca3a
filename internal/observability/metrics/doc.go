// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the relay worker's pipeline metrics:
//   - Cycle metrics (count by status, duration, last run)
//   - Entry metrics (fetched, skipped by reason, accepted, committed, purged)
//   - Entry store metrics (records, operation duration, errors, DB pool)
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint of the worker.
//
// Example usage:
//
//	import "feed-relay/internal/observability/metrics"
//
//	func runCycle() {
//	    start := time.Now()
//	    // ... fetch, filter, dispatch ...
//	    metrics.RecordEntriesSkipped(metrics.SkipBlacklisted, denied)
//	    metrics.RecordCycle("success", time.Since(start))
//	}
package metrics
