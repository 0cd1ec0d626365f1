package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is the read side of a store: everything that consumes
// snapshots needs only this.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// Store is a named collection of immutable blobs.
type Store interface {
	BlobStore

	// Create starts a streamed write. The blob becomes visible to Open
	// only when Close returns nil.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically in one call.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle. Reads may outlive the context the blob was
// opened with only for local backends; remote blobs read under it.
type Blob interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a streamed write in progress.
type WritableBlob interface {
	io.WriteCloser

	// Sync makes the bytes written so far durable where the backend
	// supports it.
	Sync() error
}

// Mappable is an optional interface for blobs that expose their content
// as one contiguous byte slice, valid until Close. Memory-mapped local
// blobs support this as a zero-copy path.
type Mappable interface {
	Bytes() ([]byte, error)
}

// ReadAll reads a whole blob, using the Mappable fast path when offered.
// The returned slice is always a private copy.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if m, ok := b.(Mappable); ok {
		raw, err := m.Bytes()
		if err == nil {
			out := make([]byte, len(raw))
			copy(out, raw)

			return out, nil
		}
	}

	out := make([]byte, b.Size())
	if _, err := io.ReadFull(io.NewSectionReader(b, 0, b.Size()), out); err != nil {
		return nil, err
	}

	return out, nil
}
