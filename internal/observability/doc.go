// Package observability provides the relay worker's observability infrastructure:
// structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// Subpackages:
//   - logging: slog setup and cycle id propagation
//   - metrics: Prometheus metrics for cycles, entries and the entry store
//   - tracing: OpenTelemetry spans for cycle stages and the health server
//
// Example usage:
//
//	import (
//	    "feed-relay/internal/observability/logging"
//	    "feed-relay/internal/observability/metrics"
//	)
//
//	func main() {
//	    slog.SetDefault(logging.NewLogger())
//	    metrics.RecordCycle("success", time.Second)
//	}
package observability
