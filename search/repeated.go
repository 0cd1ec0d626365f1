package search

import (
	"context"
	"math"

	"github.com/hupe1980/metrigo/cluster"
)

// knnRepeatedRange reduces k-NN to range search: guess a radius, widen it
// until at least k items are in range, keep the k best. Once a range of
// radius r holds k items, the true k-th distance is at most r, so the final
// range pass is exhaustive for the answer.
func knnRepeatedRange[I any](ctx context.Context, t *cluster.Tree[I], query I, k int, opts KNNOptions) ([]Result, error) {
	s := t.Space()
	root := t.Root()

	dc, err := s.DistanceToQuery(query, root.Center())
	if err != nil {
		return nil, err
	}

	// cover is a radius that provably reaches every item.
	cover := dc + root.Radius()

	radius := initialRadius(root, k)
	if radius <= 0 || radius > cover {
		radius = cover
	}

	ropts := RangeOptions{Filter: opts.Filter, ExactDistances: true, Info: opts.Info}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := rangeTraverse(ctx, t, query, radius, ropts)
		if err != nil {
			return nil, err
		}

		if opts.Info != nil {
			opts.Info.Radius = radius
		}

		if len(res) >= k {
			sortResults(res)
			return res[:k], nil
		}

		if radius >= cover {
			// The filter admits fewer than k items; everything it allows is
			// already here.
			sortResults(res)
			return res, nil
		}

		radius *= 2
		if radius > cover {
			radius = cover
		}
	}
}

// initialRadius scales the root radius by the fraction of the dataset
// wanted, tempered by the root's local fractal dimension: in a space of
// dimension lfd, a ball holding k of card items has roughly radius
// rootRadius * (k/card)^(1/lfd).
func initialRadius(root *cluster.Cluster, k int) float64 {
	card := root.Cardinality()
	if root.Radius() == 0 || k >= card {
		return root.Radius()
	}

	lfd := root.LFD()
	if lfd < 1 {
		lfd = 1
	}

	return root.Radius() * math.Pow(float64(k)/float64(card), 1/lfd)
}
