// Package snapshot persists cluster trees and restores them without
// recomputing distances.
//
// A snapshot stores the tree's item permutation, its preorder node records,
// the build configuration, and a fingerprint of the metric space. Restoring
// verifies the fingerprint against the provided space and then reassembles
// the tree in one pass over the records; for a dataset of millions of items
// this takes milliseconds where a rebuild would take minutes.
//
// The container is a single file: a fixed header, compressed CRC-checked
// sections, and a trailing directory, so writing needs only io.Writer and
// reading only io.ReaderAt. SaveFile and LoadFile wrap the local-disk case,
// with LoadFile reading through a read-only memory map.
package snapshot
