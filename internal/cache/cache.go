// Package cache provides a bounded in-memory key-value store with combined
// sliding and absolute expiry and per-key single-flight loading.
//
// The engine keeps two instances: one for resolved principals and one for
// last-sent message ids. Both are process-wide and not shared across
// processes.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidKey is returned when a value is stored under an empty key.
var ErrInvalidKey = errors.New("cache: invalid key")

// Priority orders entries for eviction; lower priorities are evicted first.
type Priority int

// Eviction priorities.
const (
	Low Priority = iota
	Normal
	High
)

// Options configures a Cache.
type Options struct {
	// Capacity is the total weight budget. Defaults to 1024.
	Capacity int

	// Weight is the cost charged per entry. Defaults to 1.
	Weight int

	// Priority assigned to every entry of this cache.
	Priority Priority

	// SlidingTTL expires an entry that has not been accessed for this
	// long. Each access resets the window. Zero disables.
	SlidingTTL time.Duration

	// AbsoluteTTL is a hard ceiling from insertion time, regardless of
	// access. Zero disables.
	AbsoluteTTL time.Duration
}

type entry[V any] struct {
	val        V
	weight     int
	priority   Priority
	lastAccess time.Time
	slideBy    time.Time // zero when sliding expiry is disabled
	hardBy     time.Time // zero when absolute expiry is disabled
}

func (e *entry[V]) expired(now time.Time) bool {
	if !e.slideBy.IsZero() && now.After(e.slideBy) {
		return true
	}
	if !e.hardBy.IsZero() && now.After(e.hardBy) {
		return true
	}
	return false
}

// Cache is a size-bounded TTL store. All operations are safe for
// concurrent use.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	used    int
	opts    Options

	// locks holds one mutex per distinct key ever loaded. Locks are
	// lazily created and never removed; the working set of principals is
	// small enough that the leak is bounded and accepted.
	locks sync.Map

	now func() time.Time
}

// New creates a cache with the given options.
func New[V any](opts Options) *Cache[V] {
	if opts.Capacity <= 0 {
		opts.Capacity = 1024
	}
	if opts.Weight <= 0 {
		opts.Weight = 1
	}
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		opts:    opts,
		now:     time.Now,
	}
}

// Get returns the cached value for key, if present and not expired.
// A hit resets the sliding expiry window.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[V]) getLocked(key string) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	now := c.now()
	if e.expired(now) {
		c.removeLocked(key)
		return zero, false
	}
	e.lastAccess = now
	if c.opts.SlidingTTL > 0 {
		e.slideBy = now.Add(c.opts.SlidingTTL)
	}
	return e.val, true
}

// GetOrCreate returns the cached value for key, invoking loader to
// materialize it on a miss. Among racing callers for the same key the
// loader runs exactly once; callers for different keys never block each
// other. A loader error is returned to the winning caller and is not
// cached.
func (c *Cache[V]) GetOrCreate(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if key == "" {
		return zero, ErrInvalidKey
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	// A racing caller may have loaded the value while we waited.
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := loader(ctx)
	if err != nil {
		return zero, err
	}
	c.set(key, v)
	return v, nil
}

// Set stores a value under key, evicting entries if the capacity budget
// is exceeded.
func (c *Cache[V]) Set(key string, val V) error {
	if key == "" {
		return ErrInvalidKey
	}
	c.set(key, val)
	return nil
}

// SetOrRemove stores the value when present and removes the entry when
// val is nil. Storing under an empty key is an error.
func (c *Cache[V]) SetOrRemove(key string, val *V) error {
	if val == nil {
		c.Remove(key)
		return nil
	}
	return c.Set(key, *val)
}

// Remove drops the entry for key. Removing an absent key is a no-op.
func (c *Cache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	now := c.now()
	for _, e := range c.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (c *Cache[V]) keyLock(key string) *sync.Mutex {
	m, _ := c.locks.LoadOrStore(key, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func (c *Cache[V]) set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.removeLocked(key)

	e := &entry[V]{
		val:        val,
		weight:     c.opts.Weight,
		priority:   c.opts.Priority,
		lastAccess: now,
	}
	if c.opts.SlidingTTL > 0 {
		e.slideBy = now.Add(c.opts.SlidingTTL)
	}
	if c.opts.AbsoluteTTL > 0 {
		e.hardBy = now.Add(c.opts.AbsoluteTTL)
	}
	c.entries[key] = e
	c.used += e.weight

	c.evictLocked(key, now)
}

// evictLocked purges expired entries, then evicts by priority and oldest
// access until the weight budget holds. The just-inserted key is spared so
// a store always lands.
func (c *Cache[V]) evictLocked(keep string, now time.Time) {
	for k, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(k)
		}
	}
	for c.used > c.opts.Capacity {
		victim := ""
		var vp Priority
		var vt time.Time
		for k, e := range c.entries {
			if k == keep {
				continue
			}
			if victim == "" || e.priority < vp || (e.priority == vp && e.lastAccess.Before(vt)) {
				victim, vp, vt = k, e.priority, e.lastAccess
			}
		}
		if victim == "" {
			return
		}
		c.removeLocked(victim)
	}
}

func (c *Cache[V]) removeLocked(key string) {
	if e, ok := c.entries[key]; ok {
		c.used -= e.weight
		delete(c.entries, key)
	}
}
