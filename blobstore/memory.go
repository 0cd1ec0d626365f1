package blobstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store for tests and small transient indexes.
// It is safe for concurrent use.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		blobs: make(map[string][]byte),
	}
}

// Open opens a blob for reading.
func (m *MemStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}

	// Snapshot the bytes so later Puts cannot mutate an open blob.
	copied := make([]byte, len(data))
	copy(copied, data)

	return &memBlob{data: copied}, nil
}

// Create starts a buffered write; Close publishes it.
func (m *MemStore) Create(_ context.Context, name string) (WritableBlob, error) {
	return &memWritable{store: m, name: name}, nil
}

// Put writes a blob atomically.
func (m *MemStore) Put(_ context.Context, name string, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = copied

	return nil
}

// Delete removes a blob. Missing blobs are ignored.
func (m *MemStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, name)

	return nil
}

// List returns blob names with the given prefix, sorted.
func (m *MemStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string

	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}

type memBlob struct {
	data []byte
}

func (b *memBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.EOF
	}

	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}

	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

func (b *memBlob) Close() error {
	return nil
}

func (b *memBlob) Size() int64 {
	return int64(len(b.data))
}

// Bytes implements Mappable.
func (b *memBlob) Bytes() ([]byte, error) {
	return b.data, nil
}

type memWritable struct {
	store *MemStore
	name  string
	buf   bytes.Buffer
}

func (w *memWritable) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memWritable) Sync() error {
	return nil
}

func (w *memWritable) Close() error {
	return w.store.Put(context.Background(), w.name, w.buf.Bytes())
}
