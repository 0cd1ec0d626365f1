// Package s3 provides a blob store on Amazon S3, with an optional DynamoDB
// commit log for atomic CURRENT updates.
//
// Store serves reads with ranged GETs and streams writes through the SDK
// upload manager, so snapshots never have to fit in memory on either path.
// Wrap it in a blobstore.CachingStore to keep hot tree blocks local.
//
// A single writer can publish safely with Store alone. For multiple
// writers, CommitStore turns CURRENT updates into DynamoDB conditional
// writes that fail with ErrConcurrentModification instead of silently
// dropping a commit. PutIfAbsent offers a lighter alternative for
// create-once objects on buckets with conditional write support.
package s3
