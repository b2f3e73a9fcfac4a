package market

import (
	"container/list"
	"sync"
)

// BoundedLRUCache is a thread-safe bounded LRU cache with generic key-value types
type BoundedLRUCache[K comparable, V any] struct {
	mu      sync.Mutex
	items   map[K]*list.Element
	lru     *list.List
	maxSize int
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func NewBoundedLRUCache[K comparable, V any](maxSize int) *BoundedLRUCache[K, V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &BoundedLRUCache[K, V]{
		items:   make(map[K]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get retrieves a value and marks it most recently used.
func (c *BoundedLRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*lruEntry[K, V]).value, true
}

// Set adds or updates a value, evicting the least recently used entries
// when the cache is full.
func (c *BoundedLRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*lruEntry[K, V]).value = value
		return
	}
	for len(c.items) >= c.maxSize {
		c.evictLRU()
	}
	c.items[key] = c.lru.PushFront(&lruEntry[K, V]{key: key, value: value})
}

// evictLRU must be called with mu held
func (c *BoundedLRUCache[K, V]) evictLRU() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	c.lru.Remove(back)
	delete(c.items, back.Value.(*lruEntry[K, V]).key)
}

func (c *BoundedLRUCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Range visits entries from most to least recently used without changing
// their order. Returning false stops the iteration.
func (c *BoundedLRUCache[K, V]) Range(f func(key K, value V) bool) {
	c.mu.Lock()
	entries := make([]*lruEntry[K, V], 0, len(c.items))
	for e := c.lru.Front(); e != nil; e = e.Next() {
		entries = append(entries, e.Value.(*lruEntry[K, V]))
	}
	c.mu.Unlock()

	for _, entry := range entries {
		if !f(entry.key, entry.value) {
			return
		}
	}
}

func (c *BoundedLRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element, c.maxSize)
	c.lru.Init()
}
