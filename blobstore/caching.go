package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/metrigo/internal/cache"
)

// fillConcurrency bounds parallel backend reads per blob while warming the
// cache, so a cold scan cannot exhaust descriptors or trip rate limits.
const fillConcurrency = 16

var errInvalidOffset = errors.New("blobstore: invalid read offset")

// CachingStore wraps a Store with block-level read caching. It assumes
// published blobs are immutable, which Put, Delete and Create keep true by
// invalidating the name they touch. Share a block cache across stores only
// if their blob namespaces are disjoint.
type CachingStore struct {
	inner     Store
	cache     cache.Cache
	blockSize int64
}

// NewCachingStore creates a caching wrapper around inner. blockSize
// defaults to 64 KiB if <= 0, a compromise between range-read granularity
// on remote backends and cache churn.
func NewCachingStore(inner Store, blockCache cache.Cache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = 64 << 10
	}

	return &CachingStore{
		inner:     inner,
		cache:     blockCache,
		blockSize: blockSize,
	}
}

// Open opens a blob whose reads go through the block cache. The blob reads
// under the context Open was given.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	return &cachingBlob{
		ctx:       ctx,
		inner:     b,
		cache:     s.cache,
		name:      name,
		size:      b.Size(),
		blockSize: s.blockSize,
	}, nil
}

// Create streams to the backend; a successful publish drops any blocks
// cached under the name being replaced.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	return &invalidatingWritable{WritableBlob: w, cache: s.cache, name: name}, nil
}

// Put writes a blob atomically and drops stale cached blocks.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.inner.Put(ctx, name, data); err != nil {
		return err
	}

	s.cache.InvalidateName(name)

	return nil
}

// Delete removes a blob and its cached blocks.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	if err := s.inner.Delete(ctx, name); err != nil {
		return err
	}

	s.cache.InvalidateName(name)

	return nil
}

// List passes through to the backend.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type invalidatingWritable struct {
	WritableBlob

	cache cache.Cache
	name  string
}

func (w *invalidatingWritable) Close() error {
	if err := w.WritableBlob.Close(); err != nil {
		return err
	}

	w.cache.InvalidateName(w.name)

	return nil
}

type cachingBlob struct {
	ctx       context.Context
	inner     Blob
	cache     cache.Cache
	name      string
	size      int64
	blockSize int64
}

func (b *cachingBlob) Close() error {
	return b.inner.Close()
}

func (b *cachingBlob) Size() int64 {
	return b.size
}

// ReadAt assembles the request from cached blocks, warming missing ones
// with coalesced backend reads first.
func (b *cachingBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errInvalidOffset
	}

	if len(p) == 0 {
		return 0, nil
	}

	if err := b.ctx.Err(); err != nil {
		return 0, err
	}

	if off >= b.size {
		return 0, io.EOF
	}

	// Clamp the window to the blob, remember whether we were cut short.
	want := len(p)

	end := off + int64(len(p))
	if end > b.size {
		end = b.size
		p = p[:end-off]
	}

	startBlock := off / b.blockSize
	endBlock := (end - 1) / b.blockSize

	if err := b.fillCache(startBlock, endBlock); err != nil {
		return 0, err
	}

	var read int

	for blk := startBlock; blk <= endBlock; blk++ {
		data, err := b.fetchBlock(blk)
		if err != nil {
			return read, err
		}

		blockStart := blk * b.blockSize

		// Intersect [blockStart, blockStart+len(data)) with [off, end).
		from := max(blockStart, off)
		to := min(blockStart+int64(len(data)), end)

		if to <= from {
			return read, io.ErrUnexpectedEOF
		}

		read += copy(p[from-off:to-off], data[from-blockStart:])
	}

	if read < want {
		return read, io.EOF
	}

	return read, nil
}

// blockBounds returns the byte range [start, start+length) of a block,
// clamped to the blob size.
func (b *cachingBlob) blockBounds(blk int64) (start, length int64) {
	start = blk * b.blockSize

	length = b.blockSize
	if start+length > b.size {
		length = b.size - start
	}

	return start, length
}

func (b *cachingBlob) key(blk int64) cache.Key {
	return cache.Key{Name: b.name, Block: uint64(blk)}
}

// fillCache warms the cache for [startBlock, endBlock], fetching each
// contiguous run of missing blocks with one backend read, runs in
// parallel.
func (b *cachingBlob) fillCache(startBlock, endBlock int64) error {
	type run struct {
		start, count int64
	}

	var (
		missing  []run
		runStart = int64(-1)
		runLen   int64
	)

	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := b.cache.Get(b.key(blk)); ok {
			if runStart >= 0 {
				missing = append(missing, run{runStart, runLen})
				runStart = -1
			}

			continue
		}

		if runStart < 0 {
			runStart = blk
			runLen = 0
		}

		runLen++
	}

	if runStart >= 0 {
		missing = append(missing, run{runStart, runLen})
	}

	if len(missing) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(b.ctx)
	g.SetLimit(fillConcurrency)

	for _, r := range missing {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			start, _ := b.blockBounds(r.start)

			length := r.count * b.blockSize
			if start+length > b.size {
				length = b.size - start
			}

			buf := make([]byte, length)

			n, err := b.inner.ReadAt(buf, start)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}

			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				if lo >= int64(n) {
					break
				}

				hi := min(lo+b.blockSize, int64(n))

				// Copy each block out so the cache does not pin the
				// whole run buffer.
				block := make([]byte, hi-lo)
				copy(block, buf[lo:hi])

				b.cache.Set(b.key(r.start+i), block)
			}

			return nil
		})
	}

	return g.Wait()
}

// fetchBlock returns one block, from cache when possible.
func (b *cachingBlob) fetchBlock(blk int64) ([]byte, error) {
	if data, ok := b.cache.Get(b.key(blk)); ok {
		return data, nil
	}

	start, length := b.blockBounds(blk)
	buf := make([]byte, length)

	n, err := b.inner.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	buf = buf[:n]

	if n > 0 {
		b.cache.Set(b.key(blk), buf)
	}

	return buf, nil
}
