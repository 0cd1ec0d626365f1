package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	buf := make([]byte, 2)
	_, err = f.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "lo", string(buf))

	require.NoError(t, f.Close())

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	renamed := filepath.Join(dir, "renamed.txt")
	require.NoError(t, lfs.Rename(fpath, renamed))

	_, err = lfs.Stat(fpath)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, lfs.Remove(renamed))
}

func TestSyncDir(t *testing.T) {
	assert.NoError(t, SyncDir(Default, t.TempDir()))
}

func TestFaultyFS_FailAfterBytes(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.FailFile("snapshot", Fault{FailAfterBytes: 5})

	fpath := filepath.Join(tmp, "snapshot.bin")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	// The first five bytes land, the sixth trips the fault.
	n, err := f.Write([]byte("hello, world"))
	require.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	require.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)

	info, err := ffs.Stat(fpath)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
}

func TestFaultyFS_FailOnSyncAndClose(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("boom")

	ffs := NewFaultyFS(LocalFS{})
	ffs.FailFile("CURRENT", Fault{FailOnSync: true, FailOnClose: true, Err: boom})

	f, err := ffs.OpenFile(filepath.Join(tmp, "CURRENT.tmp"), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("MANIFEST-000001"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.Sync(), boom)
	assert.ErrorIs(t, f.Close(), boom)
}

func TestFaultyFS_UnmatchedFilesPassThrough(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.FailFile("other", Fault{FailAfterBytes: 1})

	f, err := ffs.OpenFile(filepath.Join(tmp, "plain.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("untouched by faults"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	renamed := filepath.Join(tmp, "moved.txt")
	require.NoError(t, ffs.Rename(filepath.Join(tmp, "plain.txt"), renamed))
	require.NoError(t, ffs.Remove(renamed))
	require.NoError(t, ffs.MkdirAll(filepath.Join(tmp, "sub"), 0o755))

	_, err = ffs.ReadDir(tmp)
	assert.NoError(t, err)
}
