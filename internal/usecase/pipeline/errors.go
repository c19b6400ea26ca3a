package pipeline

import "errors"

// Sentinel errors for poll cycles.
var (
	// ErrCycleInterrupted indicates that the context ended before the cycle
	// finished. Entries already dispatched have been committed.
	ErrCycleInterrupted = errors.New("cycle interrupted")
)
