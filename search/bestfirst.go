package search

import (
	"context"

	"github.com/hupe1980/metrigo/cluster"
)

// clusterQueue is a value-based min-heap of clusters ordered by lower bound,
// ties toward the lower center id. Entries in the queue always cover
// disjoint items, so center ids make the order total.
type clusterQueue struct {
	items []knnFrame
}

func (q *clusterQueue) Len() int { return len(q.items) }

func (q *clusterQueue) Push(f knnFrame) {
	q.items = append(q.items, f)
	q.siftUp(len(q.items) - 1)
}

func (q *clusterQueue) Pop() knnFrame {
	top := q.items[0]

	last := len(q.items) - 1
	q.items[0] = q.items[last]
	q.items = q.items[:last]

	if last > 0 {
		q.siftDown(0)
	}

	return top
}

func frameLess(a, b knnFrame) bool {
	if a.lb != b.lb {
		return a.lb < b.lb
	}

	return a.c.Center() < b.c.Center()
}

func (q *clusterQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !frameLess(q.items[i], q.items[parent]) {
			return
		}

		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

func (q *clusterQueue) siftDown(i int) {
	n := len(q.items)

	for {
		j := 2*i + 1
		if j >= n {
			return
		}

		if right := j + 1; right < n && frameLess(q.items[right], q.items[j]) {
			j = right
		}

		if !frameLess(q.items[j], q.items[i]) {
			return
		}

		q.items[i], q.items[j] = q.items[j], q.items[i]
		i = j
	}
}

// knnBestFirst settles clusters in ascending lower-bound order. Once the
// candidate heap is full and the best outstanding cluster cannot beat the
// k-th best, everything still queued is unreachable and the search stops.
func knnBestFirst[I any](ctx context.Context, t *cluster.Tree[I], query I, k int, opts KNNOptions) ([]Result, error) {
	s := t.Space()
	best := newResultHeap(k)

	rf, err := frameFor(s, query, t.Root())
	if err != nil {
		return nil, err
	}

	var queue clusterQueue
	queue.Push(rf)

	for queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f := queue.Pop()

		if opts.Info != nil {
			opts.Info.ClustersVisited++
		}

		if best.Full() && f.lb > best.Kth() {
			if opts.Info != nil {
				opts.Info.ClustersPruned += 1 + queue.Len()
			}

			break
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

		queue.Push(lf)
		queue.Push(rf)
	}

	return best.TakeSorted(), nil
}
