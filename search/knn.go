package search

import (
	"context"
	"fmt"
	"math"

	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/space"
)

// linearCtxStride is how many items a linear scan examines between
// cancellation checks.
const linearCtxStride = 256

// KNN returns the k nearest neighbors of query, ascending by distance with
// ties broken toward the lower id. k outside [1, tree cardinality] fails
// with InvalidKError before any distance is computed.
func KNN[I any](ctx context.Context, t *cluster.Tree[I], query I, k int, optFns ...func(o *KNNOptions)) ([]Result, error) {
	if t == nil {
		return nil, ErrNilTree
	}

	opts := DefaultKNNOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if k < 1 || k > t.Cardinality() {
		return nil, &InvalidKError{K: k, Cardinality: t.Cardinality()}
	}

	if opts.Tolerance < 0 || math.IsNaN(opts.Tolerance) {
		return nil, ErrNegativeTolerance
	}

	if opts.Info != nil {
		*opts.Info = Info{}
	}

	// Approximate pruning is defined on the depth-first descent.
	if opts.Tolerance > 0 {
		return knnDepthFirst(ctx, t, query, k, opts)
	}

	switch opts.Algorithm {
	case AlgorithmDepthFirst, "":
		return knnDepthFirst(ctx, t, query, k, opts)
	case AlgorithmBestFirst:
		return knnBestFirst(ctx, t, query, k, opts)
	case AlgorithmRepeatedRange:
		return knnRepeatedRange(ctx, t, query, k, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, opts.Algorithm)
	}
}

// lowerBound is the least possible distance from the query to any member of
// a cluster: the distance to the center minus the radius, clamped at zero.
func lowerBound(dc, radius float64) float64 {
	if lb := dc - radius; lb > 0 {
		return lb
	}

	return 0
}

// knnFrame is one cluster on the depth-first stack with its query geometry.
type knnFrame struct {
	c  *cluster.Cluster
	dc float64
	lb float64
}

func knnDepthFirst[I any](ctx context.Context, t *cluster.Tree[I], query I, k int, opts KNNOptions) ([]Result, error) {
	s := t.Space()
	best := newResultHeap(k)

	if opts.Tolerance > 0 && opts.Info != nil {
		opts.Info.Approx = true
	}

	root := t.Root()

	dc, err := s.DistanceToQuery(query, root.Center())
	if err != nil {
		return nil, err
	}

	sc := getScratch()
	defer putScratch(sc)

	sc.frames = append(sc.frames, knnFrame{c: root, dc: dc, lb: lowerBound(dc, root.Radius())})

	for len(sc.frames) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f := sc.frames[len(sc.frames)-1]
		sc.frames = sc.frames[:len(sc.frames)-1]

		if opts.Info != nil {
			opts.Info.ClustersVisited++
		}

		// The k-th best may have improved since this frame was pushed.
		if best.Full() && prunable(f, best.Kth(), opts.Tolerance) {
			if opts.Info != nil {
				opts.Info.ClustersPruned++
			}

			continue
		}

		if f.c.IsLeaf() {
			if opts.Info != nil {
				opts.Info.LeavesScanned++
			}

			if err := scanLeaf(s, query, f, best, opts); err != nil {
				return nil, err
			}

			continue
		}

		lf, err := frameFor(s, query, f.c.Left())
		if err != nil {
			return nil, err
		}

		rf, err := frameFor(s, query, f.c.Right())
		if err != nil {
			return nil, err
		}

		// Descend into the closer child first; its results tighten the k-th
		// best before the farther sibling is examined.
		if lf.lb <= rf.lb {
			sc.frames = append(sc.frames, rf, lf)
		} else {
			sc.frames = append(sc.frames, lf, rf)
		}
	}

	return best.TakeSorted(), nil
}

func frameFor[I any](s *space.Space[I], query I, c *cluster.Cluster) (knnFrame, error) {
	dc, err := s.DistanceToQuery(query, c.Center())
	if err != nil {
		return knnFrame{}, err
	}

	return knnFrame{c: c, dc: dc, lb: lowerBound(dc, c.Radius())}, nil
}

// prunable decides whether a cluster can be skipped given the current k-th
// best distance. Exact search skips only clusters that provably contain
// nothing better. With a tolerance the bound is relaxed by (1+tolerance),
// and clusters whose local fractal dimension suggests less than one
// competitive member are skipped as well.
func prunable(f knnFrame, kth, tolerance float64) bool {
	if tolerance <= 0 {
		return f.lb > kth
	}

	if f.lb*(1+tolerance) > kth {
		return true
	}

	radius := f.c.Radius()
	if radius == 0 {
		return false
	}

	frac := (kth - f.lb) / (2 * radius)
	if frac >= 1 {
		return false
	}

	return float64(f.c.Cardinality())*math.Pow(frac, f.c.LFD()) < 1
}

// scanLeaf offers every allowed member of a leaf to the candidate heap. The
// center's distance is already known from the traversal and is not
// recomputed.
func scanLeaf[I any](s *space.Space[I], query I, f knnFrame, best *resultHeap, opts KNNOptions) error {
	for _, id := range f.c.Items() {
		if opts.Filter != nil && !opts.Filter.Allow(id) {
			continue
		}

		d := f.dc

		if id != f.c.Center() {
			var err error

			d, err = s.DistanceToQuery(query, id)
			if err != nil {
				return err
			}

			if opts.Info != nil {
				opts.Info.ItemsScanned++
			}
		}

		best.Offer(id, d)
	}

	return nil
}

// Linear is the brute-force k-NN over a metric space: every allowed item is
// compared against the query. It is the oracle the tree algorithms are
// tested against and the sensible choice for datasets too small to index.
func Linear[I any](ctx context.Context, s *space.Space[I], query I, k int, optFns ...func(o *KNNOptions)) ([]Result, error) {
	if s == nil {
		return nil, ErrNilSpace
	}

	opts := DefaultKNNOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if k < 1 || k > s.Len() {
		return nil, &InvalidKError{K: k, Cardinality: s.Len()}
	}

	if opts.Info != nil {
		*opts.Info = Info{}
	}

	best := newResultHeap(k)

	for id := 0; id < s.Len(); id++ {
		if id%linearCtxStride == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if opts.Filter != nil && !opts.Filter.Allow(id) {
			continue
		}

		d, err := s.DistanceToQuery(query, id)
		if err != nil {
			return nil, err
		}

		if opts.Info != nil {
			opts.Info.ItemsScanned++
		}

		best.Offer(id, d)
	}

	return best.TakeSorted(), nil
}
