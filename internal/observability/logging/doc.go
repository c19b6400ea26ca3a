// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the relay worker.
//
// Key features:
//   - JSON and text output formats (LOG_FORMAT)
//   - Configurable log levels (LOG_LEVEL)
//   - Cycle ID propagation so every line of one poll cycle can be correlated
//   - Context-aware logging
//   - SanitizeError masks DSN passwords and webhook tokens before logging
//
// Example usage:
//
//	import "feed-relay/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    slog.SetDefault(logger)
//	}
//
//	func runCycle(ctx context.Context, id string) {
//	    ctx = logging.WithCycleID(ctx, id)
//	    logger := logging.WithCycle(ctx, slog.Default())
//	    logger.Info("cycle started")
//	}
package logging
