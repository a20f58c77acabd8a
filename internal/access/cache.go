package access

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LoadFunc fetches all grants for a user from the permission store.
type LoadFunc func(ctx context.Context, userID uuid.UUID) ([]Grant, error)

// GrantCache memoizes per-user grant lookups with a TTL bound. Reads within
// the TTL never touch the store; a miss or an expired entry loads fresh and
// replaces the whole entry. Concurrent misses for the same user may each hit
// the store; both converge on the same fresh value, so no single-flight is
// needed for correctness.
type GrantCache struct {
	load LoadFunc
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[uuid.UUID]grantEntry
	// gens and epoch fence loads that raced an invalidation. A load
	// snapshots them before hitting the store; its result is installed only
	// if neither moved in the meantime, so a store read that began before a
	// grant mutation can never overwrite that mutation's invalidation.
	gens  map[uuid.UUID]uint64
	epoch uint64
}

type grantEntry struct {
	grants    []Grant
	fetchedAt time.Time
}

// NewGrantCache constructs a cache backed by the given loader.
func NewGrantCache(load LoadFunc, ttl time.Duration) *GrantCache {
	return &GrantCache{
		load:    load,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]grantEntry),
		gens:    make(map[uuid.UUID]uint64),
	}
}

// Get returns the user's grants, serving a cached entry when it is younger
// than the TTL. The lock is never held across the store call: load first,
// then swap the entry in, and only if no invalidation landed while the load
// was in flight.
func (c *GrantCache) Get(ctx context.Context, userID uuid.UUID) ([]Grant, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	gen := c.gens[userID]
	epoch := c.epoch
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return cloneGrants(entry.grants), nil
	}

	grants, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[userID] == gen && c.epoch == epoch {
		c.entries[userID] = grantEntry{grants: grants, fetchedAt: c.now()}
	}
	c.mu.Unlock()
	return cloneGrants(grants), nil
}

// Invalidate drops the user's cached entry and fences any load already in
// flight for that user. Grant mutations call this after the store write
// commits and before returning, so the mutating caller's next read always
// observes its own write, even when a concurrent reader began loading
// before the write landed. The whole entry goes at once; there is no
// per-company invalidation.
func (c *GrantCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.gens[userID]++
	c.mu.Unlock()
}

// Reset clears every entry and fences all in-flight loads. Administrative
// use only.
func (c *GrantCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[uuid.UUID]grantEntry)
	c.epoch++
	c.mu.Unlock()
}

func cloneGrants(grants []Grant) []Grant {
	out := make([]Grant, len(grants))
	copy(out, grants)
	return out
}
