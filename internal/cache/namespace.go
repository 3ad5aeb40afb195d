package cache

import (
	"context"
	"fmt"
	"time"
)

// Namespace is a typed view over a Cache with its own TTL. Callers choose
// the TTL explicitly per namespace (for example short for per-user
// dashboards, longer for shared statistics).
type Namespace[T any] struct {
	cache *Cache
	name  string
	ttl   time.Duration
}

// NewNamespace registers a typed namespace on c. A non-positive ttl makes
// every read a miss.
func NewNamespace[T any](c *Cache, name string, ttl time.Duration) *Namespace[T] {
	return &Namespace[T]{cache: c, name: name, ttl: ttl}
}

func (n *Namespace[T]) Name() string       { return n.name }
func (n *Namespace[T]) TTL() time.Duration { return n.ttl }

// Get returns the cached value for k. A stale entry is deleted and reported
// as a miss, as is an entry of an unexpected type.
func (n *Namespace[T]) Get(k Key) (T, bool) {
	var zero T

	v, ok := n.cache.get(n.name, k)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		n.cache.delete(n.name, k)
		return zero, false
	}
	return typed, true
}

// Set stores v under k, overwriting any previous entry.
func (n *Namespace[T]) Set(k Key, v T) {
	n.cache.set(n.name, k, v, n.ttl)
}

// Delete removes k from the namespace.
func (n *Namespace[T]) Delete(k Key) {
	n.cache.delete(n.name, k)
}

// GetOrCompute is the read-through helper endpoint handlers use: a fresh
// hit is returned as is; otherwise compute runs without any cache lock held
// and its result is stored. Cache faults never reach the caller: a failing
// read falls through to compute, a failing write is logged and dropped.
// Errors from compute are returned and nothing is cached.
func GetOrCompute[T any](ctx context.Context, n *Namespace[T], k Key, compute func(ctx context.Context) (T, error)) (T, error) {
	log := n.cache.logger

	if v, ok := safeGet(ctx, n, k); ok {
		log.Debug(ctx, "cache hit", "namespace", n.name, "owner", k.Owner, "key", k.Name)
		return v, nil
	}
	log.Debug(ctx, "cache miss", "namespace", n.name, "owner", k.Owner, "key", k.Name)

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := safeSet(n, k, v); err != nil {
		log.Warn(ctx, "cache population failed", "namespace", n.name, "key", k.Name, "error", err)
	}
	return v, nil
}

func safeGet[T any](ctx context.Context, n *Namespace[T], k Key) (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			n.cache.logger.Warn(ctx, "cache read failed", "namespace", n.name, "key", k.Name, "panic", r)
			var zero T
			v, ok = zero, false
		}
	}()
	return n.Get(k)
}

func safeSet[T any](n *Namespace[T], k Key, v T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache set: %v", r)
		}
	}()
	n.Set(k, v)
	return nil
}
