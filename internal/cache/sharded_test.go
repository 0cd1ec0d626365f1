package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedLRU_GetSet(t *testing.T) {
	c := NewShardedLRU(1<<20, nil)

	c.Set(Key{Name: "a", Block: 0}, []byte("payload"))

	got, ok := c.Get(Key{Name: "a", Block: 0})
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	_, ok = c.Get(Key{Name: "missing", Block: 0})
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 1, st.Entries)
}

func TestShardedLRU_SpreadsAcrossShards(t *testing.T) {
	c := NewShardedLRU(1<<20, nil)

	for i := range 512 {
		c.Set(Key{Name: "snap", Block: uint64(i)}, []byte{byte(i)})
	}

	for i := range 512 {
		got, ok := c.Get(Key{Name: "snap", Block: uint64(i)})
		require.True(t, ok, "block %d", i)
		assert.Equal(t, []byte{byte(i)}, got)
	}

	populated := 0

	for _, shard := range c.shards {
		if shard.Stats().Entries > 0 {
			populated++
		}
	}

	assert.Greater(t, populated, 1, "expected entries to land on multiple shards")
	assert.Equal(t, 512, c.Stats().Entries)
}

func TestShardedLRU_InvalidateName(t *testing.T) {
	c := NewShardedLRU(1<<20, nil)

	for i := range 64 {
		c.Set(Key{Name: "a", Block: uint64(i)}, []byte("a"))
		c.Set(Key{Name: "b", Block: uint64(i)}, []byte("b"))
	}

	c.InvalidateName("a")

	for i := range 64 {
		_, ok := c.Get(Key{Name: "a", Block: uint64(i)})
		assert.False(t, ok)

		_, ok = c.Get(Key{Name: "b", Block: uint64(i)})
		assert.True(t, ok)
	}

	assert.Equal(t, 64, c.Stats().Entries)
}

func TestShardedLRU_Concurrent(t *testing.T) {
	c := NewShardedLRU(1<<20, nil)

	var wg sync.WaitGroup

	for w := range 16 {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			name := fmt.Sprintf("blob-%d", w%4)
			for i := range 500 {
				k := Key{Name: name, Block: uint64(i)}
				c.Set(k, []byte{byte(i)})
				c.Get(k)
			}
		}(w)
	}

	wg.Wait()

	require.NoError(t, c.Close())
	assert.Positive(t, c.Stats().Hits)
}

func TestShardedLRU_TinyCapacityStillWorks(t *testing.T) {
	// Capacity below the shard count degrades to one byte per shard.
	c := NewShardedLRU(8, nil)

	c.Set(Key{Name: "a", Block: 0}, []byte{1})

	got, ok := c.Get(Key{Name: "a", Block: 0})
	require.True(t, ok)
	assert.Equal(t, []byte{1}, got)
}
