// Package cache implements the bounded LRU block cache of spec.md section
// 4.3. It is grounded on the shape of mit-pdos-go-nfsd/cache/cache.go (a
// mutex-protected map from id to slot, with a capacity/count pair) but
// built as a genuine LRU using container/list for the recency order —
// the teacher's own cache_test.go already references a `c.lru` field,
// confirming this is the teacher's own intended shape; its shipped
// ref-counted eviction scan does not give the O(1) amortized hit/miss/
// eviction accounting spec.md requires, so we complete it rather than
// copy it verbatim.
package cache

import (
	"container/list"
	"sync"

	"github.com/mit-pdos/reviewfs/common"
)

// Stats reports cumulative cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry struct {
	id   common.Bnum
	data []byte
}

// Cache is a bounded, thread-safe LRU keyed by block id.
type Cache struct {
	mu       sync.Mutex
	capacity int
	lru      *list.List // front = most recently used
	items    map[common.Bnum]*list.Element
	stats    Stats
}

// New creates a Cache with the given capacity (must be >= 1).
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		lru:      list.New(),
		items:    make(map[common.Bnum]*list.Element, capacity),
	}
}

// Get returns a copy of the cached bytes for id, moving it to the
// most-recently-used position on a hit.
func (c *Cache) Get(id common.Bnum) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[id]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.lru.MoveToFront(el)
	c.stats.Hits++
	e := el.Value.(*entry)
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, true
}

// Put inserts or replaces the cached bytes for id, evicting the
// least-recently-used entry first if the cache is at capacity.
func (c *Cache) Put(id common.Bnum, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	if el, ok := c.items[id]; ok {
		el.Value.(*entry).data = buf
		c.lru.MoveToFront(el)
		return
	}
	if c.lru.Len() >= c.capacity {
		c.evictLocked()
	}
	el := c.lru.PushFront(&entry{id: id, data: buf})
	c.items[id] = el
}

func (c *Cache) evictLocked() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	c.lru.Remove(back)
	delete(c.items, back.Value.(*entry).id)
	c.stats.Evictions++
}

// Invalidate removes id from the cache without touching hit/miss/eviction
// counters.
func (c *Cache) Invalidate(id common.Bnum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		c.lru.Remove(el)
		delete(c.items, id)
	}
}

// Clear empties the cache without touching counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Init()
	c.items = make(map[common.Bnum]*list.Element, c.capacity)
}

// SetCapacity changes the capacity, evicting down to the new size if
// needed.
func (c *Cache) SetCapacity(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if capacity < 1 {
		capacity = 1
	}
	c.capacity = capacity
	for c.lru.Len() > c.capacity {
		c.evictLocked()
	}
}

// Stats returns a snapshot of the cumulative counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
