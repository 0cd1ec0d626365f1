package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/hupe1980/metrigo/blobstore"
	"github.com/hupe1980/metrigo/resource"
)

// Client is the subset of the Amazon S3 API the store uses. *s3.Client
// satisfies it; tests substitute an in-memory fake.
type Client interface {
	manager.UploadAPIClient

	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// ErrConcurrentModification is returned when a conditional write loses the
// race against another writer.
var ErrConcurrentModification = errors.New("s3: concurrent modification")

var errInvalidOffset = errors.New("s3: invalid read offset")

// Options configure a Store.
type Options struct {
	// Prefix is prepended to every object key, e.g. "indexes/products".
	Prefix string

	// PartSize is the multipart upload part size in bytes.
	PartSize int64

	// Concurrency is the number of parts uploaded in parallel per blob.
	Concurrency int

	// Checksum enables end-to-end CRC32C validation on writes.
	Checksum bool

	// LeavePartsOnError keeps the parts of a failed multipart upload
	// around instead of aborting it, so it can be resumed or inspected.
	LeavePartsOnError bool

	// Controller, when set, throttles upload bandwidth and bounds the
	// number of uploads running at once.
	Controller *resource.Controller
}

// DefaultOptions are the options used when none are overridden.
var DefaultOptions = Options{
	PartSize:    8 << 20,
	Concurrency: 5,
	Checksum:    true,
}

// Store is a blob store on an S3 bucket. Reads are served by ranged GETs,
// writes stream through the SDK upload manager, so blobs never have to fit
// in memory on either path.
type Store struct {
	client   Client
	bucket   string
	prefix   string
	uploader *manager.Uploader
	checksum bool
	rc       *resource.Controller
}

// NewStore creates a store on the given bucket.
func NewStore(client Client, bucket string, optFns ...func(o *Options)) *Store {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.PartSize <= 0 {
		opts.PartSize = DefaultOptions.PartSize
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions.Concurrency
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = opts.PartSize
		u.Concurrency = opts.Concurrency
		u.LeavePartsOnError = opts.LeavePartsOnError
	})

	return &Store{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(opts.Prefix, "/"),
		uploader: uploader,
		checksum: opts.Checksum,
		rc:       opts.Controller,
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

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	return &blob{
		ctx:    ctx,
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Create starts a streamed upload. The object becomes visible only when
// Close returns nil. When a Controller is configured, Create blocks until
// an upload slot is free and the stream is throttled to the IO budget.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if err := s.rc.AcquireBackground(ctx); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()

	u := &upload{
		w:    resource.Writer(ctx, s.rc, pw),
		pw:   pw,
		done: make(chan error, 1),
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   pr,
	}
	if s.checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		defer s.rc.ReleaseBackground()

		_, err := s.uploader.Upload(ctx, input)

		// Unblock any writer still sitting on the pipe.
		_ = pr.CloseWithError(err)

		u.done <- err
	}()

	return u, nil
}

// Put writes a blob in one call.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if s.checksum {
		input.ChecksumCRC32C = aws.String(checksumCRC32C(data))
	}

	_, err := s.client.PutObject(ctx, input)

	return err
}

// PutIfAbsent writes a blob only when the name is still unused, using an
// S3 conditional write. It returns ErrConcurrentModification when another
// writer created the object first. The bucket must support If-None-Match,
// which general purpose buckets and S3 Express One Zone both do.
func (s *Store) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		IfNoneMatch:   aws.String("*"),
	}
	if s.checksum {
		input.ChecksumCRC32C = aws.String(checksumCRC32C(data))
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "PreconditionFailed", "ConditionalRequestConflict":
				return ErrConcurrentModification
			}
		}

		return err
	}

	return nil
}

// Delete removes an object. S3 treats deleting a missing key as success,
// which matches the Store contract.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})

	return err
}

// List returns the blob names under the given prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	base := s.base()

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(base + prefix),
	})

	var names []string

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), base))
		}
	}

	sort.Strings(names)

	return names, nil
}

func mapNotFound(err error) error {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return blobstore.ErrNotFound
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return blobstore.ErrNotFound
	}

	return err
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// checksumCRC32C returns the CRC32C of data in the base64 big-endian form
// the S3 API expects.
func checksumCRC32C(data []byte) string {
	sum := crc32.Checksum(data, castagnoli)

	return base64.StdEncoding.EncodeToString([]byte{
		byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum),
	})
}

// blob reads an object with ranged GETs.
type blob struct {
	ctx    context.Context
	client Client
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

	resp, err := b.client.GetObject(b.ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, err
	}

	defer func() { _ = resp.Body.Close() }()

	n, err := io.ReadFull(resp.Body, p[:end-off+1])
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
	w      io.Writer
	pw     *io.PipeWriter
	done   chan error
	closed atomic.Bool
}

func (u *upload) Write(p []byte) (int, error) {
	if u.closed.Load() {
		return 0, io.ErrClosedPipe
	}

	return u.w.Write(p)
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

// Sync is a no-op. S3 makes the object visible only when Close commits
// the upload.
func (u *upload) Sync() error {
	return nil
}

var (
	_ blobstore.Store = (*Store)(nil)
	_ blobstore.Blob  = (*blob)(nil)
)
