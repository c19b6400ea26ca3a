package repository

import (
	"context"
	"strings"

	"feed-relay/internal/domain/entity"
)

// EntryRepository is the durable set of entry identifiers already accepted.
// Every mutating call runs in its own transaction.
type EntryRepository interface {
	// Initialize idempotently creates the backing schema. Safe on every start.
	Initialize(ctx context.Context) error
	// ContainsAll returns the subset of ids already recorded, as a set.
	// It is a bulk read, never one query per id.
	ContainsAll(ctx context.Context, ids []string) (map[string]bool, error)
	// InsertIfAbsent persists records, silently skipping ids that already exist.
	// Returns the number of rows actually inserted.
	InsertIfAbsent(ctx context.Context, records []*entity.StoredRecord) (int64, error)
	// RemoveByAuthor deletes every record whose author is in authors.
	// Empty and anonymous authors never match.
	RemoveByAuthor(ctx context.Context, authors []string) (int64, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
}

// RemovableAuthors trims and deduplicates authors for RemoveByAuthor,
// dropping the empty and anonymous sentinels. Order is preserved.
func RemovableAuthors(authors []string) []string {
	seen := make(map[string]struct{}, len(authors))
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		name := strings.TrimSpace(a)
		if entity.IsSentinelAuthor(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
