package snapshot

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/internal/fs"
	"github.com/hupe1980/metrigo/internal/mmap"
	"github.com/hupe1980/metrigo/space"
)

// fileBufferSize batches the many small section writes into few syscalls.
const fileBufferSize = 256 * 1024

// SaveFile writes a snapshot of t to path atomically: the bytes land in a
// temporary file in the same directory, which replaces path only after a
// successful sync. A crash never leaves a half-written snapshot under path.
func SaveFile[I any](path string, t *cluster.Tree[I], optFns ...func(o *Options)) error {
	return saveFile(fs.Default, path, t, optFns...)
}

func saveFile[I any](fsys fs.FileSystem, path string, t *cluster.Tree[I], optFns ...func(o *Options)) error {
	tmp := path + ".tmp"

	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	defer func() {
		if tmp != "" {
			f.Close()
			fsys.Remove(tmp)
		}
	}()

	bw := bufio.NewWriterSize(f, fileBufferSize)
	if err := Write(bw, t, optFns...); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	if err := fsys.Rename(tmp, path); err != nil {
		return err
	}

	// The rename itself must survive a crash.
	if err := fs.SyncDir(fsys, filepath.Dir(path)); err != nil {
		return err
	}

	tmp = ""

	return nil
}

// LoadFile maps path read-only and restores the tree it contains over s.
func LoadFile[I any](path string, s *space.Space[I]) (*cluster.Tree[I], error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	_ = m.Advise(mmap.AccessSequential)

	return Load(m, int64(m.Size()), s)
}

// ReadFile maps path read-only and decodes the snapshot it contains.
func ReadFile(path string) (*Snapshot, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	_ = m.Advise(mmap.AccessSequential)

	return Read(m, int64(m.Size()))
}
