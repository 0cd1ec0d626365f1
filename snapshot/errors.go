package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when a snapshot's bytes do not form a valid
	// container: bad magic, truncated framing, malformed sections.
	ErrCorrupt = errors.New("snapshot: corrupt")

	// ErrVersion is returned when the container was written by an
	// incompatible format version.
	ErrVersion = errors.New("snapshot: unsupported format version")

	// ErrUnknownCodec is returned when the header names a codec this build
	// does not know.
	ErrUnknownCodec = errors.New("snapshot: codec not registered")

	// ErrMismatch is returned by Restore when the provided space differs
	// from the one the snapshot was taken over.
	ErrMismatch = errors.New("snapshot: space does not match")

	// ErrNilTree is returned when a nil tree is snapshotted.
	ErrNilTree = errors.New("snapshot: nil tree")

	// ErrNilSnapshot is returned when a nil snapshot is encoded or restored.
	ErrNilSnapshot = errors.New("snapshot: nil snapshot")
)

// ChecksumError reports a section whose stored checksum does not match its
// bytes. It unwraps to ErrCorrupt.
type ChecksumError struct {
	Section  string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("snapshot: %s section checksum mismatch: expected 0x%08x, got 0x%08x",
		e.Section, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error { return ErrCorrupt }
