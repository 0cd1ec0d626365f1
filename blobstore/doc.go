// Package blobstore stores immutable snapshot artifacts under simple
// names.
//
// Store is the write-capable interface; BlobStore is its read side, which
// is all a snapshot consumer needs. Implementations must be safe for
// concurrent use, and published blobs are treated as immutable.
//
// Built-in backends:
//
//   - LocalStore: a flat directory, memory-mapped reads, atomic publish
//     via temp file + rename
//   - MemStore: in-memory, for tests and transient indexes
//   - CachingStore: block-level read cache over any Store, with coalesced
//     backend reads while warming
//   - s3.Store: Amazon S3, range-GET reads and streamed uploads, plus a
//     DynamoDB-backed CommitStore for atomic version publishing
//   - minio.Store: MinIO or any S3-compatible endpoint
//
// A Blob is a plain io.ReaderAt, so snapshot.ReadFromBlob and
// io.NewSectionReader work on every backend unchanged.
package blobstore
