package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/metrigo/internal/fs"
	"github.com/hupe1980/metrigo/internal/mmap"
)

// LocalStore implements Store on a local directory. Blobs live flat under
// the root; names containing path separators are rejected. Reads are
// memory-mapped, writes go through the fs layer and publish atomically
// via rename.
type LocalStore struct {
	fsys fs.FileSystem
	root string
}

// NewLocalStore creates a store rooted at dir, creating it if missing.
func NewLocalStore(dir string) (*LocalStore, error) {
	return newLocalStore(fs.Default, dir)
}

func newLocalStore(fsys fs.FileSystem, dir string) (*LocalStore, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &LocalStore{fsys: fsys, root: dir}, nil
}

func (s *LocalStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", fmt.Errorf("blobstore: invalid blob name %q", name)
	}

	return filepath.Join(s.root, name), nil
}

// Open memory-maps the named blob.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	_ = m.Advise(mmap.AccessRandom)

	return &localBlob{m: m}, nil
}

// Create starts a streamed write into a temp file. Close syncs, renames
// the temp file over the final name and syncs the directory, so a crash
// never leaves a partially visible blob.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	tmp := path + ".tmp"

	f, err := s.fsys.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &localWritable{fsys: s.fsys, f: f, tmp: tmp, final: path}, nil
}

// Put writes a blob atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// Delete removes a blob. Missing blobs are ignored.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := s.fsys.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// List returns blob names with the given prefix, sorted. Unpublished temp
// files are not listed.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := s.fsys.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}

		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(p []byte, off int64) (int, error) {
	return b.m.ReadAt(p, off)
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return int64(b.m.Size())
}

// Bytes implements Mappable for zero-copy access.
func (b *localBlob) Bytes() ([]byte, error) {
	data := b.m.Bytes()
	if data == nil && b.m.Size() > 0 {
		return nil, mmap.ErrClosed
	}

	return data, nil
}

type localWritable struct {
	fsys  fs.FileSystem
	f     fs.File
	tmp   string
	final string

	writeErr error
	closed   bool
}

func (w *localWritable) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil && w.writeErr == nil {
		w.writeErr = err
	}

	return n, err
}

func (w *localWritable) Sync() error {
	return w.f.Sync()
}

// Close publishes the blob. If any write failed, the temp file is removed
// and the first write error returned instead.
func (w *localWritable) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.writeErr != nil {
		_ = w.f.Close()
		_ = w.fsys.Remove(w.tmp)

		return w.writeErr
	}

	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = w.fsys.Remove(w.tmp)

		return err
	}

	if err := w.f.Close(); err != nil {
		_ = w.fsys.Remove(w.tmp)
		return err
	}

	if err := w.fsys.Rename(w.tmp, w.final); err != nil {
		_ = w.fsys.Remove(w.tmp)
		return err
	}

	return fs.SyncDir(w.fsys, filepath.Dir(w.final))
}
