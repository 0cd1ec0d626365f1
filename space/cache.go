package space

import (
	"sync"
	"sync/atomic"
)

// cacheShardCount is a power of two so the shard mix reduces to a shift.
const cacheShardCount = 256

type cacheShard struct {
	mu sync.RWMutex
	m  map[uint64]float64
}

// Cache memoizes pairwise distances, keyed by the canonical unordered
// pair of item identifiers. It is shared by construction and search and
// safe for concurrent use: a pair raced by two goroutines may be
// computed twice, but it is stored at most once (first writer wins).
//
// With MaxEntries > 0 the cache stops admitting new pairs once full
// instead of evicting; callers always get correct distances either way,
// the miss is just recomputed.
type Cache struct {
	shards     [cacheShardCount]cacheShard
	maxEntries int64
	size       atomic.Int64
	hits       atomic.Int64
	misses     atomic.Int64
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Entries    int64
	MaxEntries int64
	Hits       int64
	Misses     int64
}

// HitRate returns hits / (hits + misses), or 0 with no lookups yet.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// NewCache creates a distance cache. maxEntries <= 0 means unbounded.
func NewCache(maxEntries int) *Cache {
	c := &Cache{}
	if maxEntries > 0 {
		c.maxEntries = int64(maxEntries)
	}
	for i := range c.shards {
		c.shards[i].m = make(map[uint64]float64)
	}
	return c
}

// PairKey returns the canonical key for the unordered pair (i, j).
// Identifiers must fit in 32 bits; New enforces that for the dataset.
func PairKey(i, j int) uint64 {
	if j < i {
		i, j = j, i
	}
	return uint64(uint32(i))<<32 | uint64(uint32(j))
}

// shardFor spreads structured pair keys across shards with a
// golden-ratio multiply; sequential ids land in different shards.
func (c *Cache) shardFor(key uint64) *cacheShard {
	return &c.shards[(key*0x9E3779B97F4A7C15)>>56]
}

// Get returns the cached distance for the unordered pair (i, j).
func (c *Cache) Get(i, j int) (float64, bool) {
	key := PairKey(i, j)
	s := c.shardFor(key)

	s.mu.RLock()
	d, ok := s.m[key]
	s.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return d, ok
}

// PutIfAbsent stores d for the unordered pair (i, j) unless the pair is
// already present or the cache is full. It reports whether the value
// was admitted.
func (c *Cache) PutIfAbsent(i, j int, d float64) bool {
	if c.maxEntries > 0 && c.size.Load() >= c.maxEntries {
		return false
	}

	key := PairKey(i, j)
	s := c.shardFor(key)

	s.mu.Lock()
	if _, ok := s.m[key]; ok {
		s.mu.Unlock()
		return false
	}
	s.m[key] = d
	s.mu.Unlock()

	c.size.Add(1)
	return true
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries:    c.size.Load(),
		MaxEntries: c.maxEntries,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
	}
}
