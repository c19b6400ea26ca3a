package entity

import (
	"sort"
	"strings"
)

// Blacklist is the set of author names whose entries must never be dispatched.
// Names are trimmed and blank names are never members, so an empty author
// can not be blacklisted by a stray blank line.
type Blacklist map[string]struct{}

// NewBlacklist builds a Blacklist from raw names.
func NewBlacklist(names []string) Blacklist {
	b := make(Blacklist, len(names))
	for _, name := range names {
		n := strings.TrimSpace(name)
		if n == "" {
			continue
		}
		b[n] = struct{}{}
	}
	return b
}

// Contains reports whether author is blacklisted. Blank authors never are.
func (b Blacklist) Contains(author string) bool {
	a := strings.TrimSpace(author)
	if a == "" {
		return false
	}
	_, ok := b[a]
	return ok
}

// Authors returns the blacklisted names in sorted order.
func (b Blacklist) Authors() []string {
	out := make([]string, 0, len(b))
	for name := range b {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of blacklisted names.
func (b Blacklist) Len() int {
	return len(b)
}
