// Package notify dispatches accepted entries to every configured destination.
// Each entry is delivered to all destinations concurrently; a failure at one
// destination is logged and counted but never affects the others.
package notify

import (
	"context"

	"feed-relay/internal/domain/entity"
)

// Destination is one outbound delivery target.
//
// Thread Safety:
//   - Send must be safe for concurrent use by multiple goroutines
//
// Context Handling:
//   - Implementations must respect context cancellation and timeout
//   - Send makes a single attempt; nothing is retried within a cycle
type Destination interface {
	// Name returns the log-safe destination name (host#n).
	// It is used for logging, metrics labels and the health endpoint.
	Name() string

	// Send delivers entry.
	//
	// Returns:
	//   - int: HTTP status of the response, 0 if none was received
	//   - error: Non-nil for anything but a 2xx response
	Send(ctx context.Context, entry entity.Entry) (int, error)
}
