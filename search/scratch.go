package search

import (
	"sync"

	"github.com/hupe1980/metrigo/cluster"
)

// Traversal stacks are the dominant per-query allocation on deep trees, so
// they are pooled and reused across calls.
var scratchPool = sync.Pool{
	New: func() any { return new(scratch) },
}

// scratch holds the reusable stack buffers of a single traversal.
type scratch struct {
	frames   []knnFrame
	clusters []*cluster.Cluster
}

func getScratch() *scratch {
	return scratchPool.Get().(*scratch)
}

// putScratch returns a scratch to the pool. Stale entries in the backing
// arrays would pin released trees, so both are cleared to capacity.
func putScratch(s *scratch) {
	s.frames = s.frames[:cap(s.frames)]
	clear(s.frames)
	s.frames = s.frames[:0]

	s.clusters = s.clusters[:cap(s.clusters)]
	clear(s.clusters)
	s.clusters = s.clusters[:0]

	scratchPool.Put(s)
}
