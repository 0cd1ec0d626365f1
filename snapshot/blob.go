package snapshot

import (
	"github.com/hupe1980/metrigo/blobstore"
	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/space"
)

// ReadFromBlob decodes the snapshot a blob contains. It works on any
// backend because a Blob is a plain io.ReaderAt; over remote stores a
// blobstore.CachingStore keeps the framing reads from hitting the network
// twice.
func ReadFromBlob(b blobstore.Blob) (*Snapshot, error) {
	return Read(b, b.Size())
}

// LoadFromBlob reads a snapshot from a blob and restores the tree over s.
func LoadFromBlob[I any](b blobstore.Blob, s *space.Space[I]) (*cluster.Tree[I], error) {
	return Load(b, b.Size(), s)
}
