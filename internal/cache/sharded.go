package cache

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/hupe1980/metrigo/resource"
)

const numShards = 64

// ShardedLRU distributes entries across 64 LRU shards to reduce lock
// contention under concurrent search traffic.
type ShardedLRU struct {
	shards [numShards]*LRU
	seed   maphash.Seed
}

// NewShardedLRU creates a sharded LRU cache. The byte capacity is divided
// evenly across the shards.
func NewShardedLRU(capacity int64, rc *resource.Controller) *ShardedLRU {
	shardCapacity := capacity / numShards
	if shardCapacity < 1 {
		shardCapacity = 1
	}

	s := &ShardedLRU{
		seed: maphash.MakeSeed(),
	}

	for i := range numShards {
		s.shards[i] = NewLRU(shardCapacity, rc)
	}

	return s
}

func (s *ShardedLRU) shard(key Key) *LRU {
	var h maphash.Hash
	h.SetSeed(s.seed)

	_, _ = h.WriteString(key.Name)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key.Block)
	_, _ = h.Write(buf[:])

	return s.shards[h.Sum64()%numShards]
}

// Get returns a cached block.
func (s *ShardedLRU) Get(key Key) ([]byte, bool) {
	return s.shard(key).Get(key)
}

// Set caches a block.
func (s *ShardedLRU) Set(key Key, b []byte) {
	s.shard(key).Set(key, b)
}

// InvalidateName drops every block belonging to the named blob. All shards
// are visited; invalidation is rare compared to lookups.
func (s *ShardedLRU) InvalidateName(name string) {
	for i := range numShards {
		s.shards[i].InvalidateName(name)
	}
}

// Stats returns statistics aggregated over all shards.
func (s *ShardedLRU) Stats() Stats {
	var total Stats

	for i := range numShards {
		st := s.shards[i].Stats()
		total.Hits += st.Hits
		total.Misses += st.Misses
		total.Entries += st.Entries
		total.Bytes += st.Bytes
	}

	return total
}

// Close closes all shards.
func (s *ShardedLRU) Close() error {
	for i := range numShards {
		if err := s.shards[i].Close(); err != nil {
			return err
		}
	}

	return nil
}
