// Package cache provides a thread-safe LRU cache for compiled queries.
//
// The cache maps query text to its compiled query value, so a query applied
// to many documents is lexed and parsed once. Compiled queries are immutable,
// which makes a cached value safe to use from the moment it is obtained.
//
// # Example
//
//	c := cache.New(1024)
//	q, err := c.GetOrCompile("@.items[@.price > 100]", compile)
package cache

import (
	"container/list"
	"sync"

	"github.com/sandrolain/goremes/pkg/types"
)

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	key   string
	query *types.Value
}

// Cache is a thread-safe LRU cache for compiled queries. Once the capacity
// is reached, the least recently used entry is evicted. A hit refreshes the
// entry's recency.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, a default of 256 is used.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get retrieves a compiled query from the cache.
// Returns (query, true) if found and moves the entry to front (MRU).
// Returns (nil, false) if not present.
func (c *Cache) Get(key string) (*types.Value, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	// If the element is already at the front, skip the write lock entirely.
	alreadyFront := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !alreadyFront {
		// Promote to front under write lock; re-check in case of concurrent eviction.
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()

		if !ok {
			return nil, false
		}
	}
	return el.Value.(*entry).query, true
}

// Set inserts a compiled query in the cache. Re-adding an existing query
// refreshes its recency but keeps the stored value: compilation is
// deterministic, so the old and new values are interchangeable.
// If at capacity, the least recently used entry is evicted first.
func (c *Cache) Set(key string, query *types.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{key: key, query: query})
	c.items[key] = el
}

// GetOrCompile retrieves the compiled query for key from the cache, or calls
// compile() to create it, caches the result, and returns it.
// Errors are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (*types.Value, error)) (*types.Value, error) {
	if q, ok := c.Get(key); ok {
		return q, nil
	}
	q, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, q)
	return q, nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
