// Package notifier provides the outbound webhook transport for relayed entries.
// It defines the Notifier interface so the dispatcher can fan an entry out to
// any number of destinations without knowing how each one is reached.
//
// The package includes a JSON webhook implementation that makes exactly one
// POST per call; retries are left to the next poll cycle.
package notifier

import (
	"context"

	"feed-relay/internal/domain/entity"
)

// Notifier is an interface for sending entry notifications.
type Notifier interface {
	// NotifyEntry posts one notification about entry.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - entry: The accepted entry to relay
	//
	// Returns:
	//   - int: HTTP status code of the response, or 0 if none was received
	//   - error: Non-nil for transport errors and any non-2xx status
	//
	// Implementations should:
	//   - Generate a unique request ID for tracing
	//   - Make a single attempt; never sleep on Retry-After
	//   - Never put the destination URL in logs or error messages
	//   - Respect context cancellation
	NotifyEntry(ctx context.Context, entry entity.Entry) (int, error)
}
