package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.mgm")

	rows := [][]float64{
		{0, 0, 0},
		{1.5, -2.25, 3.125},
		{1e-9, 1e9, -42},
		{7, 8, 9},
	}
	m, err := NewMatrix(rows)
	require.NoError(t, err)

	require.NoError(t, WriteMatrixFile(path, m))

	f, err := OpenMatrixFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, m.Len(), f.Len())
	assert.Equal(t, m.Dim(), f.Dim())
	for i := 0; i < m.Len(); i++ {
		assert.Equal(t, m.At(i), f.At(i), "row %d", i)
	}
}

func TestOpenMatrixFileBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.mgm")
	require.NoError(t, os.WriteFile(path, []byte("this is not a matrix file at all"), 0o644))

	_, err := OpenMatrixFile(path)
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestOpenMatrixFileTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.mgm")

	m, err := NewMatrix([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	require.NoError(t, WriteMatrixFile(path, m))

	full, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, full[:len(full)-8], 0o644))

	_, err = OpenMatrixFile(path)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestOpenMatrixFileMissing(t *testing.T) {
	_, err := OpenMatrixFile(filepath.Join(t.TempDir(), "nope.mgm"))
	require.Error(t, err)
}
