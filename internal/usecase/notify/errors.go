package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrInvalidEntry indicates that the entry has no link to deliver.
	ErrInvalidEntry = errors.New("invalid entry data")

	// ErrDestinationPanic indicates that a destination panicked while sending.
	// The panic is recovered and reported as that destination's failure.
	ErrDestinationPanic = errors.New("destination panicked")

	// ErrNoWorkerSlot indicates that the context ended while waiting for a
	// worker slot, so the destination was never called.
	ErrNoWorkerSlot = errors.New("no worker slot available")
)
