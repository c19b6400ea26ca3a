// Package filter decides which fetched entries may be relayed.
// Every function here is pure: the blacklist is passed in by the caller.
package filter

import (
	"feed-relay/internal/domain/entity"
)

// IsAllowed reports whether entry may be dispatched under blacklist.
// An entry is denied only when it has a real author and that author is
// blacklisted. Empty and anonymous authors are never denied, matching the
// store purge, which never removes them either.
func IsAllowed(entry entity.Entry, blacklist entity.Blacklist) bool {
	if !entry.HasAuthor() {
		return true
	}
	return !blacklist.Contains(entry.Author)
}

// Apply returns the allowed entries in input order together with the
// number of entries that were denied.
func Apply(entries []entity.Entry, blacklist entity.Blacklist) ([]entity.Entry, int) {
	allowed := make([]entity.Entry, 0, len(entries))
	denied := 0
	for _, e := range entries {
		if IsAllowed(e, blacklist) {
			allowed = append(allowed, e)
			continue
		}
		denied++
	}
	return allowed, denied
}
