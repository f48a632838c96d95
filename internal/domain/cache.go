package domain

import "sync"

// CachedResolver wraps a RateResolver with an in-memory LRU cache keyed by the
// raw model string. Flight tables repeat a handful of model strings across
// hundreds of thousands of rows.
type CachedResolver struct {
	inner RateResolver
	cache *lruCache[string, resolution]
}

type resolution struct {
	rate  *float64
	label string
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner RateResolver, maxEntries int) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		cache: newLRUCache[string, resolution](maxEntries),
	}
}

func (c *CachedResolver) Resolve(model string) (*float64, string) {
	if r, ok := c.cache.get(model); ok {
		return copyRate(r.rate), r.label
	}
	rate, label := c.inner.Resolve(model)
	c.cache.put(model, resolution{rate: copyRate(rate), label: label})
	return rate, label
}

// Len returns the number of cached model strings.
func (c *CachedResolver) Len() int {
	return c.cache.len()
}

func copyRate(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *entry[K, V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[K, V]) remove(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
