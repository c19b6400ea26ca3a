// Package entity defines the core domain entities of the relay.
// It contains the feed Entry produced each poll cycle, the StoredRecord
// persisted for deduplication, the Blacklist of authors and the error
// taxonomy shared by every layer.
package entity

import (
	"strings"
	"time"
)

// AnonymousAuthor is the placeholder some feeds emit for entries without an author.
// Bulk removal by author never matches it.
const AnonymousAuthor = "anonymous"

// Entry is one item yielded by a feed for a single poll cycle.
// It is created fresh each cycle and only SourceFolder is attached after creation.
type Entry struct {
	ID           string
	Author       string
	Link         string
	Title        string
	SourceFolder string
	PublishedAt  *time.Time
}

// HasAuthor reports whether the entry carries a real author name.
func (e Entry) HasAuthor() bool {
	return !IsSentinelAuthor(e.Author)
}

// IsSentinelAuthor reports whether author is empty or the anonymous placeholder.
func IsSentinelAuthor(author string) bool {
	a := strings.TrimSpace(author)
	return a == "" || a == AnonymousAuthor
}

// StoredRecord is the durable trace of an entry that was accepted and dispatched.
type StoredRecord struct {
	ID        string
	Author    string
	CreatedAt time.Time
}

// NewStoredRecord builds the record committed for an accepted entry.
func NewStoredRecord(e Entry, now time.Time) *StoredRecord {
	return &StoredRecord{
		ID:        e.ID,
		Author:    e.Author,
		CreatedAt: now,
	}
}

// FeedSource is one configured feed: its URL and the folder its entries are tagged with.
type FeedSource struct {
	URL    string `yaml:"url"`
	Folder string `yaml:"folder"`
}
