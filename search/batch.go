package search

import (
	"context"
	"sync"

	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/internal/pool"
)

// BatchResult pairs a query's position in the batch with its outcome.
// Queries are isolated: one failing query fills in only its own Err.
type BatchResult struct {
	Index     int
	Neighbors []Result
	Err       error
}

// KNNBatch runs one k-NN query per entry of queries concurrently on a
// private worker pool and returns results ordered by query index. Options
// apply to every query; do not pass a shared Info.
func KNNBatch[I any](ctx context.Context, t *cluster.Tree[I], queries []I, k int, optFns ...func(o *KNNOptions)) []BatchResult {
	p := pool.New(0)
	defer p.Close()

	return KNNBatchWithPool(ctx, t, p, queries, k, optFns...)
}

// KNNBatchWithPool is KNNBatch on a caller-owned pool, so batches share
// scheduling with tree construction and other batches.
func KNNBatchWithPool[I any](ctx context.Context, t *cluster.Tree[I], p *pool.Pool, queries []I, k int, optFns ...func(o *KNNOptions)) []BatchResult {
	return runBatch(ctx, p, queries, func(ctx context.Context, q I) ([]Result, error) {
		return KNN(ctx, t, q, k, optFns...)
	})
}

// RangeBatch runs one range query per entry of queries concurrently on a
// private worker pool and returns results ordered by query index.
func RangeBatch[I any](ctx context.Context, t *cluster.Tree[I], queries []I, radius float64, optFns ...func(o *RangeOptions)) []BatchResult {
	p := pool.New(0)
	defer p.Close()

	return RangeBatchWithPool(ctx, t, p, queries, radius, optFns...)
}

// RangeBatchWithPool is RangeBatch on a caller-owned pool.
func RangeBatchWithPool[I any](ctx context.Context, t *cluster.Tree[I], p *pool.Pool, queries []I, radius float64, optFns ...func(o *RangeOptions)) []BatchResult {
	return runBatch(ctx, p, queries, func(ctx context.Context, q I) ([]Result, error) {
		return Range(ctx, t, q, radius, optFns...)
	})
}

// runBatch fans queries out over the pool. The tree and space are read-only
// during queries, so workers share them freely; result slots are disjoint.
func runBatch[I any](ctx context.Context, p *pool.Pool, queries []I, run func(ctx context.Context, q I) ([]Result, error)) []BatchResult {
	results := make([]BatchResult, len(queries))

	var wg sync.WaitGroup

	for i := range queries {
		results[i].Index = i

		wg.Add(1)

		err := p.Submit(ctx, func() {
			defer wg.Done()

			neighbors, err := run(ctx, queries[i])
			results[i].Neighbors = neighbors
			results[i].Err = err
		})
		if err != nil {
			// Pool closed or context done; the remaining queries never ran.
			wg.Done()
			results[i].Err = err
		}
	}

	wg.Wait()

	return results
}
