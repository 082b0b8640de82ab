// Package ttlcache is an in-memory key/value cache with sliding expiry.
//
// Every entry owns exactly one expiry timer. Reading or touching an entry
// stops that timer and arms a fresh one under the same lock that guards the
// map, so a refresh can never race with a stale timer. Nothing is ever
// written outside process memory.
package ttlcache

import (
	"sync"
	"time"
)

// DefaultTTL is used when New is given a non-positive ttl.
const DefaultTTL = 30 * time.Minute

// EvictionReason tells an eviction hook why an entry left the cache.
type EvictionReason int

const (
	ReasonExpired EvictionReason = iota + 1
	ReasonDeleted
	ReasonClosed
)

func (r EvictionReason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonDeleted:
		return "deleted"
	case ReasonClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Item is a copy of a cached value and its access times.
type Item[V any] struct {
	Value          V
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Entry pairs a key with its item, as returned by Entries.
type Entry[K comparable, V any] struct {
	Key  K
	Item Item[V]
}

type entry[V any] struct {
	item  Item[V]
	timer *time.Timer
	// gen identifies the timer currently armed for this entry.
	gen uint64
}

// Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	items   map[K]*entry[V]
	seq     uint64
	closed  bool
	onEvict func(key K, value V, reason EvictionReason)
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithOnEvict registers a hook called after an entry is removed. The hook
// runs outside the cache lock and may call back into the cache.
func WithOnEvict[K comparable, V any](fn func(key K, value V, reason EvictionReason)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a cache whose entries expire after ttl without access.
func New[K comparable, V any](ttl time.Duration, opts ...Option[K, V]) *Cache[K, V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache[K, V]{
		ttl:   ttl,
		items: make(map[K]*entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the inactivity window.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Add stores value under key and arms its expiry timer. It returns false,
// leaving the cache unchanged, if key is already present or the cache is closed.
func (c *Cache[K, V]) Add(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if _, ok := c.items[key]; ok {
		return false
	}

	now := time.Now()
	e := &entry[V]{item: Item[V]{Value: value, CreatedAt: now, LastAccessedAt: now}}
	c.items[key] = e
	c.arm(key, e)
	return true
}

// Get returns the item for key and restarts its expiry window.
func (c *Cache[K, V]) Get(key K) (Item[V], bool) {
	c.mu.Lock()
	e, ok := c.refresh(key)
	if !ok {
		c.mu.Unlock()
		return Item[V]{}, false
	}
	item := e.item
	c.mu.Unlock()
	return item, true
}

// Touch restarts the expiry window for key without returning the value.
func (c *Cache[K, V]) Touch(key K) bool {
	c.mu.Lock()
	_, ok := c.refresh(key)
	c.mu.Unlock()
	return ok
}

// Delete removes key immediately. Unknown keys report false.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	e, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	e.timer.Stop()
	delete(c.items, key)
	c.mu.Unlock()

	c.evicted(key, e.item.Value, ReasonDeleted)
	return true
}

// Len returns the number of live entries. Entries idle past the ttl whose
// timer has not run yet are not counted.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	n := 0
	for _, e := range c.items {
		if c.live(e, now) {
			n++
		}
	}
	return n
}

// Keys returns the live keys in no particular order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	keys := make([]K, 0, len(c.items))
	for k, e := range c.items {
		if c.live(e, now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Entries returns a snapshot of every live entry. It does not touch expiry.
func (c *Cache[K, V]) Entries() []Entry[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	out := make([]Entry[K, V], 0, len(c.items))
	for k, e := range c.items {
		if c.live(e, now) {
			out = append(out, Entry[K, V]{Key: k, Item: e.item})
		}
	}
	return out
}

// live must be called with c.mu held. It matches the check in refresh.
func (c *Cache[K, V]) live(e *entry[V], now time.Time) bool {
	return now.Sub(e.item.LastAccessedAt) < c.ttl
}

// Closed reports whether Close has been called.
func (c *Cache[K, V]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close stops every timer and drops every entry. Later Adds are rejected.
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	dropped := make([]Entry[K, V], 0, len(c.items))
	for k, e := range c.items {
		e.timer.Stop()
		dropped = append(dropped, Entry[K, V]{Key: k, Item: e.item})
	}
	c.items = make(map[K]*entry[V])
	c.mu.Unlock()

	for _, d := range dropped {
		c.evicted(d.Key, d.Item.Value, ReasonClosed)
	}
}

// refresh must be called with c.mu held. An entry idle for longer than the
// ttl is treated as gone even if its timer has not run yet.
func (c *Cache[K, V]) refresh(key K) (*entry[V], bool) {
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}

	now := time.Now()
	e.timer.Stop()
	if !c.live(e, now) {
		delete(c.items, key)
		value := e.item.Value
		// the hook must not run under the lock
		go c.evicted(key, value, ReasonExpired)
		return nil, false
	}

	e.item.LastAccessedAt = now
	c.arm(key, e)
	return e, true
}

// arm must be called with c.mu held.
func (c *Cache[K, V]) arm(key K, e *entry[V]) {
	c.seq++
	gen := c.seq
	e.gen = gen
	e.timer = time.AfterFunc(c.ttl, func() {
		c.expire(key, gen)
	})
}

func (c *Cache[K, V]) expire(key K, gen uint64) {
	c.mu.Lock()
	e, ok := c.items[key]
	if !ok || e.gen != gen {
		// refreshed or removed while this timer was firing
		c.mu.Unlock()
		return
	}
	delete(c.items, key)
	c.mu.Unlock()

	c.evicted(key, e.item.Value, ReasonExpired)
}

func (c *Cache[K, V]) evicted(key K, value V, reason EvictionReason) {
	if c.onEvict != nil {
		c.onEvict(key, value, reason)
	}
}
