// Package fetch collects the entries of every configured feed for one poll cycle.
// Feeds are fetched concurrently, each under its own timeout, and merged back in
// configured feed order so the result never depends on which fetch finished first.
package fetch

import "errors"

// Sentinel errors for fetch use case operations.
var (
	// ErrFeedFetchFailed indicates that fetching a feed from the source URL failed.
	// This can occur due to network issues, invalid URLs, or server errors.
	ErrFeedFetchFailed = errors.New("failed to fetch feed from source")

	// ErrInvalidFeedFormat indicates that the feed content could not be parsed.
	// This typically happens when the feed is not valid RSS or Atom format.
	ErrInvalidFeedFormat = errors.New("invalid feed format")

	// ErrFeedTimeout indicates that a feed did not answer within the per-feed timeout.
	ErrFeedTimeout = errors.New("feed fetch timed out")
)
