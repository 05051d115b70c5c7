package reader

import (
	"container/list"
	"sync"

	"github.com/mgmuesuu/flow/storekey"
)

// Cache is a fixed-capacity, per-process LRU cache keyed by FileKey,
// sitting in front of reads for one artifact kind (AST or aloc-table).
// No third-party LRU implementation appears anywhere in the example pack
// this module was grounded on; container/list is the same building block
// the common ones (e.g. hashicorp/golang-lru) wrap, so this is the
// narrowest stdlib-only piece of the read path, used exactly where the
// pack offered nothing closer to reach for.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[storekey.FileKey]*list.Element
}

type cacheEntry[V any] struct {
	key   storekey.FileKey
	value V
}

// NewCache returns an empty cache holding at most capacity entries.
func NewCache[V any](capacity int) *Cache[V] {
	return &Cache[V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[storekey.FileKey]*list.Element),
	}
}

// Get returns the cached value for key, if present, and marks it most
// recently used.
func (c *Cache[V]) Get(key storekey.FileKey) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry[V]).value, true
}

// Put inserts or updates the cached value for key, evicting the least
// recently used entry if the cache is over capacity.
func (c *Cache[V]) Put(key storekey.FileKey, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry[V]).value = value
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&cacheEntry[V]{key: key, value: value})
	c.items[key] = el
	if c.capacity > 0 && c.ll.Len() > c.capacity {
		c.evictOldest()
	}
}

// Invalidate removes key from the cache, if present.
func (c *Cache[V]) Invalidate(key storekey.FileKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear empties the cache entirely.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[storekey.FileKey]*list.Element)
}

func (c *Cache[V]) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*cacheEntry[V]).key)
}

// Caches bundles the AST and aloc-table caches a reader sits in front of.
// The mutator reader's aloc-table cache is cleared at every commit or
// rollback; the committed reader's caches are invalidated only for the
// changed-file set of the transaction that just finished.
type Caches struct {
	AST   *Cache[any]
	ALocs *Cache[any]
}

// NewCaches returns a pair of empty caches with the given per-cache
// capacity.
func NewCaches(capacity int) *Caches {
	return &Caches{AST: NewCache[any](capacity), ALocs: NewCache[any](capacity)}
}

// ClearAll empties both caches, for the mutator-reader's every-commit-or-
// rollback invalidation rule.
func (c *Caches) ClearAll() {
	c.AST.Clear()
	c.ALocs.Clear()
}

// InvalidateFiles removes cache entries for exactly the given files, for
// the committed-reader's changed-file-set invalidation rule.
func (c *Caches) InvalidateFiles(keys []storekey.FileKey) {
	for _, k := range keys {
		c.AST.Invalidate(k)
		c.ALocs.Invalidate(k)
	}
}
