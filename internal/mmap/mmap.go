package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// AccessPattern hints to the kernel how mapped data will be touched.
type AccessPattern int

const (
	// AccessDefault gives no specific advice.
	AccessDefault AccessPattern = iota
	// AccessSequential expects front-to-back reads.
	AccessSequential
	// AccessRandom expects scattered reads, the pattern of tree searches.
	AccessRandom
	// AccessWillNeed expects the data to be touched soon.
	AccessWillNeed
	// AccessDontNeed expects the data to stay cold.
	AccessDontNeed
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for files whose size cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrOutOfBounds is returned for regions outside the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)

// Mapping is a read-only memory-mapped file. It owns the mapped bytes and
// unmaps them on Close; Close is idempotent, but callers must make sure no
// goroutine still holds slices from Bytes when it runs.
type Mapping struct {
	data   []byte
	size   int
	unmap  func([]byte) error
	closed atomic.Bool
}

// Open maps the file at path read-only. Empty files map to an empty,
// closeable Mapping.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size < 0 || size != int64(int(size)) {
		return nil, ErrInvalidSize
	}

	if size == 0 {
		return &Mapping{}, nil
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}

	return &Mapping{data: data, size: int(size), unmap: unmap}, nil
}

// Close unmaps the memory.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	if m.unmap == nil || m.data == nil {
		return nil
	}

	return m.unmap(m.data)
}

// Bytes returns the mapped content. The slice is only valid until Close;
// after Close it returns nil.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}

	return m.data
}

// Size returns the mapped length in bytes.
func (m *Mapping) Size() int { return m.size }

// Advise passes an access-pattern hint to the kernel. Hints are advisory;
// alignment-related rejections are swallowed by the platform shim.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}

	if m.data == nil {
		return nil
	}

	return osAdvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt over the mapped bytes.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	if off < 0 {
		return 0, ErrInvalidOffset
	}

	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// Region is a window into a Mapping. The parent owns the memory; a region
// stays usable exactly as long as its parent is open.
type Region struct {
	parent *Mapping
	offset int
	size   int
}

// Region bounds-checks and returns a window [offset, offset+size).
func (m *Mapping) Region(offset, size int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	if offset < 0 || size < 0 || offset+size > m.size {
		return nil, ErrOutOfBounds
	}

	return &Region{parent: m, offset: offset, size: size}, nil
}

// Bytes returns the region's content, or nil once the parent is closed.
func (r *Region) Bytes() []byte {
	if r.parent.closed.Load() {
		return nil
	}

	return r.parent.data[r.offset : r.offset+r.size]
}

// Size returns the region's length in bytes.
func (r *Region) Size() int { return r.size }

// Advise hints the kernel about this region only.
func (r *Region) Advise(pattern AccessPattern) error {
	if r.parent.closed.Load() {
		return ErrClosed
	}

	return osAdvise(r.parent.data[r.offset:r.offset+r.size], pattern)
}
