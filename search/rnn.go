package search

import (
	"context"
	"math"

	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/space"
)

// Range returns every allowed item within radius of the query, in traversal
// order. Callers that need ordering sort the result themselves; a query
// radius of zero returns exactly the items indistinguishable from the query
// under the metric.
func Range[I any](ctx context.Context, t *cluster.Tree[I], query I, radius float64, optFns ...func(o *RangeOptions)) ([]Result, error) {
	if t == nil {
		return nil, ErrNilTree
	}

	opts := DefaultRangeOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if radius < 0 || math.IsNaN(radius) {
		return nil, ErrNegativeRadius
	}

	if opts.Info != nil {
		*opts.Info = Info{}
	}

	res, err := rangeTraverse(ctx, t, query, radius, opts)
	if err != nil {
		return nil, err
	}

	if opts.Info != nil {
		opts.Info.Radius = radius
	}

	return res, nil
}

// rangeTraverse walks the tree, pruning clusters entirely outside the query
// ball and emitting whole subtrees that are entirely inside it.
func rangeTraverse[I any](ctx context.Context, t *cluster.Tree[I], query I, radius float64, opts RangeOptions) ([]Result, error) {
	s := t.Space()

	var out []Result

	sc := getScratch()
	defer putScratch(sc)

	sc.clusters = append(sc.clusters, t.Root())

	for len(sc.clusters) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c := sc.clusters[len(sc.clusters)-1]
		sc.clusters = sc.clusters[:len(sc.clusters)-1]

		if opts.Info != nil {
			opts.Info.ClustersVisited++
		}

		dc, err := s.DistanceToQuery(query, c.Center())
		if err != nil {
			return nil, err
		}

		// No member can be closer than dc - radius of the cluster.
		if lowerBound(dc, c.Radius()) > radius {
			if opts.Info != nil {
				opts.Info.ClustersPruned++
			}

			continue
		}

		// Every member is provably inside the ball; emit the subtree
		// without testing membership item by item.
		if dc+c.Radius() <= radius {
			if err := emitSubtree(s, query, c, dc, &out, opts); err != nil {
				return nil, err
			}

			continue
		}

		if c.IsLeaf() {
			if opts.Info != nil {
				opts.Info.LeavesScanned++
			}

			for _, id := range c.Items() {
				if opts.Filter != nil && !opts.Filter.Allow(id) {
					continue
				}

				d := dc

				if id != c.Center() {
					d, err = s.DistanceToQuery(query, id)
					if err != nil {
						return nil, err
					}

					if opts.Info != nil {
						opts.Info.ItemsScanned++
					}
				}

				if d <= radius {
					out = append(out, Result{ID: id, Distance: d})
				}
			}

			continue
		}

		sc.clusters = append(sc.clusters, c.Right(), c.Left())
	}

	return out, nil
}

// emitSubtree returns every allowed member of a cluster known to lie inside
// the query ball. With ExactDistances the true distances are back-filled;
// otherwise members carry the subtree's upper bound and the call is flagged
// approximate.
func emitSubtree[I any](s *space.Space[I], query I, c *cluster.Cluster, dc float64, out *[]Result, opts RangeOptions) error {
	upper := dc + c.Radius()

	if !opts.ExactDistances && opts.Info != nil {
		opts.Info.Approx = true
	}

	for _, id := range c.Items() {
		if opts.Filter != nil && !opts.Filter.Allow(id) {
			continue
		}

		d := upper

		switch {
		case !opts.ExactDistances:
		case id == c.Center():
			d = dc
		default:
			var err error

			d, err = s.DistanceToQuery(query, id)
			if err != nil {
				return err
			}

			if opts.Info != nil {
				opts.Info.ItemsScanned++
			}
		}

		*out = append(*out, Result{ID: id, Distance: d})
	}

	return nil
}

// LinearRange is the brute-force range query over a metric space, the
// oracle for Range.
func LinearRange[I any](ctx context.Context, s *space.Space[I], query I, radius float64, optFns ...func(o *RangeOptions)) ([]Result, error) {
	if s == nil {
		return nil, ErrNilSpace
	}

	opts := DefaultRangeOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if radius < 0 || math.IsNaN(radius) {
		return nil, ErrNegativeRadius
	}

	if opts.Info != nil {
		*opts.Info = Info{Radius: radius}
	}

	var out []Result

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

		if d <= radius {
			out = append(out, Result{ID: id, Distance: d})
		}
	}

	return out, nil
}
