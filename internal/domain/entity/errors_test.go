package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomy_ErrorMessages(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "config error",
			err:      &ConfigError{Source: "webhooks.txt", Err: cause},
			expected: "config webhooks.txt: boom",
		},
		{
			name:     "fetch error",
			err:      &FetchError{FeedURL: "https://example.com/rss", Err: cause},
			expected: "fetch https://example.com/rss: boom",
		},
		{
			name:     "dispatch error with status",
			err:      &DispatchError{Destination: "hooks.example.com#1", StatusCode: 502, Err: cause},
			expected: "dispatch to hooks.example.com#1: status 502: boom",
		},
		{
			name:     "dispatch error without status",
			err:      &DispatchError{Destination: "hooks.example.com#1", Err: cause},
			expected: "dispatch to hooks.example.com#1: boom",
		},
		{
			name:     "store error",
			err:      &StoreError{Op: "ContainsAll", Err: cause},
			expected: "store ContainsAll: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestTaxonomy_IsAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name     string
		err      error
		sentinel error
		others   []error
	}{
		{"config", &ConfigError{Source: "x", Err: cause}, ErrConfig, []error{ErrFetch, ErrDispatch, ErrStore}},
		{"fetch", &FetchError{FeedURL: "x", Err: cause}, ErrFetch, []error{ErrConfig, ErrDispatch, ErrStore}},
		{"dispatch", &DispatchError{Destination: "x", Err: cause}, ErrDispatch, []error{ErrConfig, ErrFetch, ErrStore}},
		{"store", &StoreError{Op: "x", Err: cause}, ErrStore, []error{ErrConfig, ErrFetch, ErrDispatch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("RunCycle: %w", tt.err)

			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.True(t, errors.Is(wrapped, cause), "cause must stay reachable")
			for _, other := range tt.others {
				assert.False(t, errors.Is(wrapped, other))
			}
		})
	}
}

func TestStoreError_As(t *testing.T) {
	err := fmt.Errorf("commit: %w", &StoreError{Op: "InsertIfAbsent", Err: errors.New("locked")})

	var storeErr *StoreError
	assert.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "InsertIfAbsent", storeErr.Op)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "feeds.txt:3", Message: "missing url"}

	assert.Equal(t, "validation error on field 'feeds.txt:3': missing url", err.Error())
	assert.True(t, errors.Is(err, ErrValidationFailed))

	var validationErr *ValidationError
	assert.True(t, errors.As(fmt.Errorf("load: %w", err), &validationErr))
	assert.Equal(t, "feeds.txt:3", validationErr.Field)
}
