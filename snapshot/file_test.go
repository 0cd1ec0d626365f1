package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/internal/fs"
)

func TestSaveLoadFile_RoundTrip(t *testing.T) {
	rows := lcgPoints(60, 3)
	tree := newTestTree(t, rows, cluster.Config{MinCardinality: 2})

	path := filepath.Join(t.TempDir(), "index.mgs")
	require.NoError(t, SaveFile(path, tree))

	// No temporary file survives a successful save.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	restored, err := LoadFile(path, newTestSpace(t, rows))
	require.NoError(t, err)

	assert.Equal(t, tree.Records(), restored.Records())
	require.NoError(t, restored.Validate(context.Background()))

	snap, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "euclidean", snap.Fingerprint.Metric)
	assert.Equal(t, 60, snap.Fingerprint.Cardinality)
}

func TestSaveFile_WriteFaultLeavesNoFile(t *testing.T) {
	tree := newTestTree(t, lcgPoints(40, 3), cluster.Config{})

	dir := t.TempDir()
	path := filepath.Join(dir, "index.mgs")

	ffs := fs.NewFaultyFS(nil)
	ffs.FailFile("index.mgs.tmp", fs.Fault{FailAfterBytes: 64})

	err := saveFile(ffs, path, tree)
	require.ErrorIs(t, err, fs.ErrInjected)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveFile_SyncFaultLeavesNoFile(t *testing.T) {
	tree := newTestTree(t, lcgPoints(40, 3), cluster.Config{})

	dir := t.TempDir()
	path := filepath.Join(dir, "index.mgs")

	ffs := fs.NewFaultyFS(nil)
	ffs.FailFile("index.mgs.tmp", fs.Fault{FailOnSync: true})

	err := saveFile(ffs, path, tree)
	require.ErrorIs(t, err, fs.ErrInjected)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveFile_OverwritesAtomically(t *testing.T) {
	rows := lcgPoints(30, 2)
	tree := newTestTree(t, rows, cluster.Config{})

	path := filepath.Join(t.TempDir(), "index.mgs")
	require.NoError(t, SaveFile(path, tree))

	// A failing second save must leave the first snapshot intact.
	ffs := fs.NewFaultyFS(nil)
	ffs.FailFile("index.mgs.tmp", fs.Fault{FailAfterBytes: 16})

	require.Error(t, saveFile(ffs, path, tree))

	restored, err := LoadFile(path, newTestSpace(t, rows))
	require.NoError(t, err)
	assert.Equal(t, tree.Records(), restored.Records())
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.mgs"), newTestSpace(t, lcgPoints(5, 2)))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
