package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for the relay error taxonomy.
// Each typed error below matches its sentinel with errors.Is.
var (
	// ErrConfig indicates missing or unusable configuration. Fatal at startup.
	ErrConfig = errors.New("configuration error")

	// ErrFetch indicates a feed could not be fetched or parsed.
	// The feed contributes zero entries to the cycle.
	ErrFetch = errors.New("feed fetch error")

	// ErrDispatch indicates a delivery to one destination failed.
	ErrDispatch = errors.New("dispatch error")

	// ErrStore indicates a durable store failure. It aborts the current cycle.
	ErrStore = errors.New("store error")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")
)

// ConfigError reports a configuration problem found while loading Source.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConfig) match.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// FetchError reports a failed feed fetch.
type FetchError struct {
	FeedURL string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.FeedURL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetch) match.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// DispatchError reports a failed delivery to a single destination.
// StatusCode is zero for transport failures.
type DispatchError struct {
	Destination string
	StatusCode  int
	Err         error
}

func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dispatch to %s: status %d: %v", e.Destination, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("dispatch to %s: %v", e.Destination, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDispatch) match.
func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }

// StoreError reports a failed EntryStore operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidationFailed) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }
