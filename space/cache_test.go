package space

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyCanonical(t *testing.T) {
	assert.Equal(t, PairKey(3, 7), PairKey(7, 3))
	assert.NotEqual(t, PairKey(3, 7), PairKey(3, 8))
	assert.Equal(t, uint64(3)<<32|7, PairKey(7, 3))
}

func TestCachePutGet(t *testing.T) {
	c := NewCache(0)

	_, ok := c.Get(1, 2)
	assert.False(t, ok)

	assert.True(t, c.PutIfAbsent(2, 1, 0.5))

	d, ok := c.Get(1, 2)
	require.True(t, ok)
	assert.Equal(t, 0.5, d)

	// Second write for the same pair is refused.
	assert.False(t, c.PutIfAbsent(1, 2, 99))
	d, ok = c.Get(2, 1)
	require.True(t, ok)
	assert.Equal(t, 0.5, d)

	assert.Equal(t, 1, c.Len())
}

func TestCacheMaxEntries(t *testing.T) {
	c := NewCache(2)

	assert.True(t, c.PutIfAbsent(0, 1, 1))
	assert.True(t, c.PutIfAbsent(0, 2, 2))
	// Full: new pairs are not admitted.
	assert.False(t, c.PutIfAbsent(0, 3, 3))
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get(0, 3)
	assert.False(t, ok)

	d, ok := c.Get(0, 2)
	require.True(t, ok)
	assert.Equal(t, 2.0, d)
}

func TestCacheStats(t *testing.T) {
	c := NewCache(10)
	c.PutIfAbsent(0, 1, 1)

	c.Get(0, 1) // hit
	c.Get(1, 2) // miss

	st := c.Stats()
	assert.Equal(t, int64(1), st.Entries)
	assert.Equal(t, int64(10), st.MaxEntries)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.InDelta(t, 0.5, st.HitRate(), 1e-12)

	assert.Zero(t, CacheStats{}.HitRate())
}

func TestCacheConcurrentFirstWriterWins(t *testing.T) {
	c := NewCache(0)

	const goroutines = 16
	const pairs = 500

	// Distances are deterministic, so every racer writes the same value;
	// the cache must end up with exactly one entry per pair regardless.
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < pairs; i++ {
				c.PutIfAbsent(i, i+1, float64(i))
				if d, ok := c.Get(i, i+1); ok {
					assert.Equal(t, float64(i), d)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, pairs, c.Len())
	for i := 0; i < pairs; i++ {
		d, ok := c.Get(i, i+1)
		require.True(t, ok)
		assert.Equal(t, float64(i), d)
	}
}
