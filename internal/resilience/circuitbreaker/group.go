package circuitbreaker

import (
	"sort"
	"sync"
)

// Group lazily creates one circuit breaker per key from a shared base config,
// so one failing feed never trips the breaker of another.
type Group struct {
	base     Config
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewGroup creates an empty Group whose breakers are built from base.
// Each breaker is named "<base.Name>:<key>".
func NewGroup(base Config) *Group {
	return &Group{
		base:     base,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for key, creating it on first use.
func (g *Group) Get(key string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[key]; ok {
		return cb
	}
	cfg := g.base
	cfg.Name = g.base.Name + ":" + key
	cb := New(cfg)
	g.breakers[key] = cb
	return cb
}

// OpenKeys returns the keys whose breaker is currently open, sorted.
func (g *Group) OpenKeys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var keys []string
	for k, cb := range g.breakers {
		if cb.IsOpen() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
