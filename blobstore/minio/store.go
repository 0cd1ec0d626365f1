package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/metrigo/blobstore"
)

var errInvalidOffset = errors.New("minio: invalid read offset")

// Store is a blob store on a MinIO bucket, or on any other S3-compatible
// endpoint the MinIO client can talk to.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a store on the given bucket. prefix is prepended to
// every object key and may be empty.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// base returns the key prefix including its trailing slash, or "".
func (s *Store) base() string {
	if s.prefix == "" {
		return ""
	}

	return s.prefix + "/"
}

func (s *Store) key(name string) string {
	return s.base() + name
}

// Open verifies the object exists and returns a read handle. Reads are
// served by ranged GETs under the context Open was called with.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapNotFound(err)
	}

	return &blob{
		ctx:    ctx,
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   info.Size,
	}, nil
}

// Create starts a streamed upload. The object becomes visible only when
// Close returns nil.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()

	u := &upload{
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		// Size -1 streams the pipe as a multipart upload.
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, minio.PutObjectOptions{})

		_ = pr.CloseWithError(err)

		u.done <- err
	}()

	return u, nil
}

// Put writes a blob in one call.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})

	return err
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && errors.Is(mapNotFound(err), blobstore.ErrNotFound) {
		return nil
	}

	return err
}

// List returns the blob names under the given prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	base := s.base()

	var names []string

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    base + prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}

		if name := strings.TrimPrefix(obj.Key, base); name != "" {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}

func mapNotFound(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
		return blobstore.ErrNotFound
	}

	return err
}

// blob reads an object with ranged GETs.
type blob struct {
	ctx    context.Context
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (b *blob) Close() error {
	return nil
}

func (b *blob) Size() int64 {
	return b.size
}

func (b *blob) ReadAt(p []byte, off int64) (int, error) {
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

	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}

	obj, err := b.client.GetObject(b.ctx, b.bucket, b.key, opts)
	if err != nil {
		return 0, err
	}

	defer func() { _ = obj.Close() }()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			// The body ended before the range it promised.
			return n, io.ErrUnexpectedEOF
		}

		return n, err
	}

	if n < len(p) {
		// The window was clamped at the end of the object.
		return n, io.EOF
	}

	return n, nil
}

// upload is a streamed write feeding a background uploader through a pipe.
type upload struct {
	pw     *io.PipeWriter
	done   chan error
	closed atomic.Bool
}

func (u *upload) Write(p []byte) (int, error) {
	if u.closed.Load() {
		return 0, io.ErrClosedPipe
	}

	return u.pw.Write(p)
}

// Close finishes the stream and waits for the upload to complete.
func (u *upload) Close() error {
	if !u.closed.CompareAndSwap(false, true) {
		return io.ErrClosedPipe
	}

	if err := u.pw.Close(); err != nil {
		return err
	}

	return <-u.done
}

// Sync is a no-op. The object is only visible once Close commits the
// upload.
func (u *upload) Sync() error {
	return nil
}

var (
	_ blobstore.Store = (*Store)(nil)
	_ blobstore.Blob  = (*blob)(nil)
)
