package cache

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDisk(t *testing.T, dir string, maxBytes int64) *Disk {
	t.Helper()

	c, err := NewDisk(DiskConfig{Dir: dir, MaxBytes: maxBytes})
	require.NoError(t, err)

	return c
}

func TestDisk_SetGet(t *testing.T) {
	c := newTestDisk(t, t.TempDir(), 1<<20)
	k := Key{Name: "snap-000001.mgs", Block: 7}

	c.Set(k, []byte("block data"))
	c.wg.Wait() // background fill

	got, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, []byte("block data"), got)

	st := c.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, int64(10), st.Bytes)
}

func TestDisk_RebuildsIndexOnStartup(t *testing.T) {
	dir := t.TempDir()

	c := newTestDisk(t, dir, 1<<20)
	c.Set(Key{Name: "a/b.mgs", Block: 0}, []byte("zero"))
	c.Set(Key{Name: "a/b.mgs", Block: 1}, []byte("one"))
	require.NoError(t, c.Close())

	// A fresh cache over the same directory sees the old fills.
	c2 := newTestDisk(t, dir, 1<<20)

	got, ok := c2.Get(Key{Name: "a/b.mgs", Block: 0})
	require.True(t, ok)
	assert.Equal(t, []byte("zero"), got)

	got, ok = c2.Get(Key{Name: "a/b.mgs", Block: 1})
	require.True(t, ok)
	assert.Equal(t, []byte("one"), got)

	assert.Equal(t, 2, c2.Stats().Entries)
}

func TestDisk_EvictsWhenOverBudget(t *testing.T) {
	c := newTestDisk(t, t.TempDir(), 25)

	c.Set(Key{Name: "a", Block: 0}, make([]byte, 10))
	c.wg.Wait()

	c.Set(Key{Name: "a", Block: 1}, make([]byte, 10))
	c.wg.Wait()

	// The third block forces one eviction.
	c.Set(Key{Name: "a", Block: 2}, make([]byte, 10))
	require.NoError(t, c.Close())

	st := c.Stats()
	assert.Equal(t, 2, st.Entries)
	assert.LessOrEqual(t, st.Bytes, int64(25))

	_, ok := c.Get(Key{Name: "a", Block: 2})
	assert.True(t, ok)
}

func TestDisk_SkipsBlocksLargerThanBudget(t *testing.T) {
	c := newTestDisk(t, t.TempDir(), 8)

	c.Set(Key{Name: "a", Block: 0}, make([]byte, 64))
	require.NoError(t, c.Close())

	_, ok := c.Get(Key{Name: "a", Block: 0})
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestDisk_InvalidateNameRemovesDirectory(t *testing.T) {
	dir := t.TempDir()
	c := newTestDisk(t, dir, 1<<20)

	c.Set(Key{Name: "a/b.mgs", Block: 0}, []byte("x"))
	c.Set(Key{Name: "keep.mgs", Block: 0}, []byte("y"))
	c.wg.Wait()

	c.InvalidateName("a/b.mgs")

	_, ok := c.Get(Key{Name: "a/b.mgs", Block: 0})
	assert.False(t, ok)

	_, err := os.Stat(filepath.Join(dir, url.PathEscape("a/b.mgs")))
	assert.True(t, os.IsNotExist(err))

	_, ok = c.Get(Key{Name: "keep.mgs", Block: 0})
	assert.True(t, ok)
}

func TestDisk_DropsEntriesWhoseFileVanished(t *testing.T) {
	dir := t.TempDir()
	c := newTestDisk(t, dir, 1<<20)
	k := Key{Name: "gone.mgs", Block: 0}

	c.Set(k, []byte("data"))
	c.wg.Wait()

	require.NoError(t, os.RemoveAll(filepath.Join(dir, url.PathEscape("gone.mgs"))))

	_, ok := c.Get(k)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestParseBlockFile(t *testing.T) {
	block, ok := parseBlockFile("42.blk")
	require.True(t, ok)
	assert.Equal(t, uint64(42), block)

	_, ok = parseBlockFile("42.tmp")
	assert.False(t, ok)

	_, ok = parseBlockFile("x.blk")
	assert.False(t, ok)

	_, ok = parseBlockFile("fill-123")
	assert.False(t, ok)
}
