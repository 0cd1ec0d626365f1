package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metrigo/internal/fs"
)

func testEntry(n int) Entry {
	return Entry{
		Snapshot: fmt.Sprintf("snap-%06d.mgs", n),
		Summary: Summary{
			Metric:      "euclidean",
			Cardinality: 1000,
			Height:      9,
			NodeCount:   255,
			LeafCount:   128,
			RootRadius:  4.2,
		},
	}
}

func TestStore_PublishAndCurrent(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)

	version, err := store.Publish(testEntry(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)

	cur, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cur.Version)
	assert.Equal(t, "snap-000001.mgs", cur.Snapshot)
	assert.Equal(t, "euclidean", cur.Summary.Metric)
	assert.WithinDuration(t, time.Now(), cur.CreatedAt, time.Minute)

	assert.Equal(t, filepath.Join(dir, "snap-000001.mgs"), store.Path(cur))

	// The pointer and the manifest are real files.
	_, err = os.Stat(filepath.Join(dir, "CURRENT"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "MANIFEST-000001.json"))
	require.NoError(t, err)
}

func TestStore_VersionsAdvance(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		version, perr := store.Publish(testEntry(i))
		require.NoError(t, perr)
		assert.Equal(t, uint64(i), version)
	}

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.Version)
	}

	cur, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, "snap-000003.mgs", cur.Snapshot)
}

func TestStore_EmptyCatalog(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = store.Current()
	require.ErrorIs(t, err, ErrEmpty)

	entries, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_RejectsPathySnapshotNames(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "a/b.mgs", "../escape.mgs"} {
		_, err := store.Publish(Entry{Snapshot: name})
		assert.Error(t, err, "name %q", name)
	}
}

func TestStore_ReopenSeesHistory(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)

	_, err = store.Publish(testEntry(1))
	require.NoError(t, err)
	_, err = store.Publish(testEntry(2))
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)

	entries, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	version, err := reopened.Publish(testEntry(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), version)
}

func TestStore_ManifestWriteFaultLeavesCatalogIntact(t *testing.T) {
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)

	store, err := newStore(faulty, dir)
	require.NoError(t, err)

	_, err = store.Publish(testEntry(1))
	require.NoError(t, err)

	faulty.FailFile("MANIFEST-000002", fs.Fault{FailAfterBytes: 4})

	_, err = store.Publish(testEntry(2))
	require.ErrorIs(t, err, fs.ErrInjected)

	// The failed publish is invisible and leaves no temp files behind.
	cur, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cur.Version)

	names, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range names {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestStore_PointerSwapFaultKeepsPreviousGeneration(t *testing.T) {
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)

	store, err := newStore(faulty, dir)
	require.NoError(t, err)

	_, err = store.Publish(testEntry(1))
	require.NoError(t, err)

	// The new manifest lands but the CURRENT swap dies.
	faulty.FailFile("CURRENT.tmp", fs.Fault{FailOnSync: true})

	_, err = store.Publish(testEntry(2))
	require.ErrorIs(t, err, fs.ErrInjected)

	cur, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cur.Version)

	// The orphaned manifest file is harmless; the next publish after the
	// fault clears must supersede it.
	faulty.FailFile("CURRENT.tmp", fs.Fault{})

	version, err := store.Publish(testEntry(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)
}

func TestStore_CorruptManifest(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)

	_, err = store.Publish(testEntry(1))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "MANIFEST-000001.json"), []byte("not json"), 0o644))

	_, err = store.Current()
	require.Error(t, err)
}

func TestStore_ConcurrentPublishers(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			_, perr := store.Publish(testEntry(n))
			assert.NoError(t, perr)
		}(i)
	}

	wg.Wait()

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 8)

	seen := make(map[uint64]bool)
	for _, e := range entries {
		assert.False(t, seen[e.Version], "duplicate version %d", e.Version)
		seen[e.Version] = true
	}
}
