// Package fs abstracts the filesystem operations the snapshot and catalog
// writers depend on.
//
// Production code goes through [Default] (a [LocalFS]). Tests swap in a
// [FaultyFS] to fail a write at an exact byte offset, or to fail Sync or
// Close, and then assert that a half-written snapshot or catalog update is
// never observable:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.FailFile("MANIFEST", fs.Fault{FailAfterBytes: 16})
//
// Operations carry no context.Context: local filesystem syscalls are not
// interruptible anyway. Remote storage with real cancellation lives in the
// blobstore package.
package fs
