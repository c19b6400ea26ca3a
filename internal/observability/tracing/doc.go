// Package tracing provides OpenTelemetry tracing integration.
//
// The pipeline opens one span per cycle stage (load, fetch, filter, dedup,
// dispatch, commit) with StartStage and closes it with EndStage, and the
// worker's health server is wrapped in Middleware.
//
// No exporter is configured here; spans go to whatever provider the process
// installs with otel.SetTracerProvider.
//
// Example usage:
//
//	import "feed-relay/internal/observability/tracing"
//
//	func dedup(ctx context.Context) (err error) {
//	    ctx, span := tracing.StartStage(ctx, nil, "dedup")
//	    defer func() { tracing.EndStage(span, err) }()
//	    // ... query the store ...
//	}
package tracing
