package session

import (
	"context"
	"sync"
	"time"
)

// Registry keeps per-session values (visits, admin workspaces) in memory. Entries are
// bound to the session that created them and expire after ttl without access.
type Registry[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*entry[T]
}

type entry[T any] struct {
	owner    string
	value    T
	lastSeen time.Time
}

// NewRegistry returns an empty registry. A nil clock uses time.Now.
func NewRegistry[T any](ttl time.Duration, now func() time.Time) *Registry[T] {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = defaultLifetime
	}
	return &Registry[T]{ttl: ttl, now: now, entries: make(map[string]*entry[T])}
}

// Put stores value under a new random id owned by owner.
func (r *Registry[T]) Put(owner string, value T) string {
	id := NewID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &entry[T]{owner: owner, value: value, lastSeen: r.now()}
	return id
}

// Get returns the value when it exists, belongs to owner and has not expired. A hit
// refreshes the entry's lifetime.
func (r *Registry[T]) Get(owner, id string) (T, bool) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.owner != owner {
		return zero, false
	}
	now := r.now()
	if now.Sub(e.lastSeen) > r.ttl {
		delete(r.entries, id)
		return zero, false
	}
	e.lastSeen = now
	return e.value, true
}

// Delete removes an entry owned by owner.
func (r *Registry[T]) Delete(owner, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.owner == owner {
		delete(r.entries, id)
	}
}

// Sweep drops expired entries and returns how many were removed.
func (r *Registry[T]) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries, expired ones included until swept.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run sweeps on every interval until ctx is cancelled.
func (r *Registry[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
