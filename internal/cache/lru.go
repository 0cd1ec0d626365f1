package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/metrigo/resource"
)

// LRU is a byte-budgeted LRU block cache. An optional resource.Controller
// charges the process-wide memory budget for every admitted block, so a
// cache can never grow past what the governor allows.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	bytes     int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte
}

// NewLRU creates an LRU cache with the given capacity in bytes. rc may be
// nil; if set, admitted bytes are reserved against it.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached block.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)

		return ent.Value.(*entry).value, true
	}

	c.misses.Add(1)

	return nil, false
}

// Set caches a block. Blocks larger than the capacity, and blocks the
// memory governor refuses, are silently dropped.
func (c *LRU) Set(key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)

		oldSize := int64(len(ent.Value.(*entry).value))
		newSize := int64(len(b))

		// Keep the old value if the governor refuses the growth.
		if newSize > oldSize && !c.rc.TryAcquireMemory(newSize-oldSize) {
			return
		}

		if newSize < oldSize {
			c.rc.ReleaseMemory(oldSize - newSize)
		}

		c.bytes += newSize - oldSize
		ent.Value.(*entry).value = b
		c.evictLocked()

		return
	}

	size := int64(len(b))
	if size > c.capacity {
		return
	}

	// Evict before reserving so freed memory is returned to the governor
	// first.
	for c.bytes+size > c.capacity {
		tail := c.evictList.Back()
		if tail == nil {
			break
		}

		c.removeElement(tail)
	}

	if !c.rc.TryAcquireMemory(size) {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: b})
	c.bytes += size
}

// InvalidateName drops every block belonging to the named blob.
func (c *LRU) InvalidateName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []*list.Element

	for key, ent := range c.items {
		if key.Name == name {
			stale = append(stale, ent)
		}
	}

	for _, ent := range stale {
		c.removeElement(ent)
	}
}

// Stats returns cache statistics.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: len(c.items),
		Bytes:   c.bytes,
	}
}

// Close implements Cache. The LRU has no background state.
func (c *LRU) Close() error {
	return nil
}

func (c *LRU) evictLocked() {
	for c.bytes > c.capacity {
		tail := c.evictList.Back()
		if tail == nil {
			return
		}

		c.removeElement(tail)
	}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)

	ent := e.Value.(*entry)
	delete(c.items, ent.key)

	size := int64(len(ent.value))
	c.bytes -= size
	c.rc.ReleaseMemory(size)
}
