// Package cache implements the process-local, best-effort TTL cache used to
// memoize expensive read aggregations. It is never a source of truth: every
// entry expires lazily on read, and owner-scoped invalidation lets write
// paths drop a user's cached reads immediately.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/jonboulle/clockwork"
)

// Key identifies an entry inside a namespace. Owner is the user the entry
// belongs to, or "" for shared data.
type Key struct {
	Owner string
	Name  string
}

// Shared builds a key not tied to any owner.
func Shared(name string) Key { return Key{Name: name} }

// Owned builds a key tagged with owner.
func Owned(owner, name string) Key { return Key{Owner: owner, Name: name} }

type entry struct {
	namespace string
	key       Key
	value     any
	writtenAt time.Time
	ttl       time.Duration
}

// Stats is a point-in-time snapshot of cache usage.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// Cache is a single mutex-guarded map shared by all namespaces.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   clockwork.Clock
	logger  logging.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an empty cache. A nil clock means the real clock.
func New(clock clockwork.Clock, logger logging.Logger) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		entries: make(map[string]*entry),
		clock:   clock,
		logger:  logger.With("module", "cache"),
	}
}

func storageKey(namespace string, k Key) string {
	return namespace + "\x00" + k.Owner + "\x00" + k.Name
}

func (c *Cache) get(namespace string, k Key) (any, bool) {
	sk := storageKey(namespace, k)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sk]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.clock.Since(e.writtenAt) >= e.ttl {
		delete(c.entries, sk)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

func (c *Cache) set(namespace string, k Key, v any, ttl time.Duration) {
	e := &entry{namespace: namespace, key: k, value: v, writtenAt: c.clock.Now(), ttl: ttl}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[storageKey(namespace, k)] = e
}

func (c *Cache) delete(namespace string, k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, storageKey(namespace, k))
}

// Invalidate removes every entry for which match returns true and reports
// how many were removed.
func (c *Cache) Invalidate(match func(namespace string, k Key) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for sk, e := range c.entries {
		if match(e.namespace, e.key) {
			delete(c.entries, sk)
			n++
		}
	}
	return n
}

// InvalidateForOwner removes all entries tagged with owner, across every
// namespace. Shared entries are never touched; an empty owner is a no-op.
func (c *Cache) InvalidateForOwner(ctx context.Context, owner string) int {
	if owner == "" {
		return 0
	}
	n := c.Invalidate(func(_ string, k Key) bool { return k.Owner == owner })
	c.logger.Debug(ctx, "owner entries invalidated", "owner", owner, "removed", n)
	return n
}

// Clear drops everything.
func (c *Cache) Clear(ctx context.Context) int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	c.logger.Info(ctx, "cache cleared", "removed", n)
	return n
}

// Len returns the number of stored entries, expired ones included until
// they are next read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	return Stats{Entries: c.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}
