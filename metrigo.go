package metrigo

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/dataset"
	"github.com/hupe1980/metrigo/internal/pool"
	"github.com/hupe1980/metrigo/metric"
	"github.com/hupe1980/metrigo/resource"
	"github.com/hupe1980/metrigo/search"
	"github.com/hupe1980/metrigo/snapshot"
	"github.com/hupe1980/metrigo/space"
)

// Result is a single neighbor: the item's id in the dataset and its distance
// from the query.
type Result = search.Result

// BatchResult pairs one query of a batch with its neighbors or error.
type BatchResult = search.BatchResult

// SearchInfo captures traversal counters for a single query. Pass a fresh
// SearchInfo per call; sharing one across concurrent queries races.
type SearchInfo = search.Info

// Filter restricts search results to allowed dataset ids.
type Filter = search.Filter

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc = search.FilterFunc

// Algorithm selects the k-NN traversal strategy.
type Algorithm = search.Algorithm

// Traversal strategies. All return identical, exact results; they differ in
// how many clusters they visit on a given dataset.
const (
	AlgorithmDepthFirst    = search.AlgorithmDepthFirst
	AlgorithmBestFirst     = search.AlgorithmBestFirst
	AlgorithmRepeatedRange = search.AlgorithmRepeatedRange
)

// Metrigo is a nearest neighbor search engine for arbitrary metric spaces.
// It owns the cluster tree over a dataset and serves exact and approximate
// k-NN and range queries against it. A Metrigo instance is immutable after
// construction and safe for concurrent use.
type Metrigo[I any] struct {
	space   *space.Space[I]
	tree    *cluster.Tree[I]
	pool    *pool.Pool
	metrics MetricsCollector
	logger  *Logger
	rc      *resource.Controller
	closed  atomic.Bool
}

// newEngine is the internal constructor behind the builder.
// External users should use metrigo.New(data, m).Build(ctx) instead.
func newEngine[I any](ctx context.Context, data dataset.Dataset[I], m metric.Metric[I], cfg cluster.Config, optFns []Option) (*Metrigo[I], error) {
	opts := applyOptions(optFns)

	s, err := space.New(data, m, func(o *space.Options) {
		o.CacheMaxEntries = opts.cacheMaxEntries
		o.DisableCache = opts.disableCache
	})
	if err != nil {
		return nil, translateError(err)
	}

	// One pool drives both construction and batch queries, so total
	// parallelism stays at the configured width.
	cfg.Workers = opts.workers
	p := pool.New(opts.workers)

	start := time.Now()
	t, err := cluster.BuildWithPool(ctx, s, cfg, p)
	duration := time.Since(start)
	err = translateError(err)

	cardinality, height := s.Len(), 0
	if t != nil {
		height = t.Height()
	}
	opts.metricsCollector.RecordBuild(cardinality, duration, err)
	opts.logger.LogBuild(ctx, cardinality, height, err)

	if err != nil {
		p.Close()
		return nil, err
	}

	return &Metrigo[I]{
		space:   s,
		tree:    t,
		pool:    p,
		metrics: opts.metricsCollector,
		logger:  opts.logger,
		rc:      opts.resource,
	}, nil
}

// KNNSearchOptions contains options for k-NN search.
type KNNSearchOptions struct {
	// Algorithm selects the traversal strategy.
	// Default: AlgorithmDepthFirst.
	Algorithm Algorithm

	// Tolerance > 0 switches to approximate search: the returned k-th
	// distance is at most (1+Tolerance) times the true k-th distance.
	// 0 is exact.
	Tolerance float64

	// Filter restricts results to allowed dataset ids. Fewer than k results
	// are returned when the filter admits fewer than k items.
	Filter Filter

	// Info, when non-nil, is reset and filled with this call's traversal
	// counters. Ignored by batch searches, where queries run concurrently.
	Info *SearchInfo
}

// KNNSearch returns the k nearest neighbors of query, ordered ascending by
// distance with the lower id winning ties.
func (mg *Metrigo[I]) KNNSearch(ctx context.Context, query I, k int, optFns ...func(o *KNNSearchOptions)) ([]Result, error) {
	start := time.Now()
	if mg.closed.Load() {
		err := ErrClosed
		mg.metrics.RecordKNN(k, time.Since(start), err)
		mg.logger.LogKNN(ctx, k, 0, err)
		return nil, err
	}

	opts := KNNSearchOptions{
		Algorithm: AlgorithmDepthFirst,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	results, err := search.KNN(ctx, mg.tree, query, k, func(o *search.KNNOptions) {
		o.Algorithm = opts.Algorithm
		o.Tolerance = opts.Tolerance
		o.Filter = opts.Filter
		o.Info = opts.Info
	})
	err = translateError(err)

	mg.metrics.RecordKNN(k, time.Since(start), err)
	mg.logger.LogKNN(ctx, k, len(results), err)
	return results, err
}

// KNNSearchApprox performs approximate k-NN with the given tolerance: the
// returned k-th distance is at most (1+tolerance) times the true k-th
// distance. Shorthand for KNNSearch with the Tolerance option set; the
// tolerance argument wins over any Tolerance set through optFns.
func (mg *Metrigo[I]) KNNSearchApprox(ctx context.Context, query I, k int, tolerance float64, optFns ...func(o *KNNSearchOptions)) ([]Result, error) {
	optFns = append(optFns, func(o *KNNSearchOptions) {
		o.Tolerance = tolerance
	})
	return mg.KNNSearch(ctx, query, k, optFns...)
}

// RangeSearchOptions contains options for range search.
type RangeSearchOptions struct {
	// Filter restricts results to allowed dataset ids.
	Filter Filter

	// ExactDistances back-fills true distances for subtrees provably
	// contained in the query ball. Turning it off emits the subtree's upper
	// bound instead, skipping those distance computations; membership is
	// exact either way. Default: true.
	ExactDistances bool

	// Info, when non-nil, is reset and filled with this call's traversal
	// counters. Ignored by batch searches, where queries run concurrently.
	Info *SearchInfo
}

// RangeSearch returns every item within radius of query, ordered ascending
// by distance with the lower id winning ties. A radius of zero returns exact
// duplicates of the query.
func (mg *Metrigo[I]) RangeSearch(ctx context.Context, query I, radius float64, optFns ...func(o *RangeSearchOptions)) ([]Result, error) {
	start := time.Now()
	if mg.closed.Load() {
		err := ErrClosed
		mg.metrics.RecordRange(time.Since(start), err)
		mg.logger.LogRange(ctx, radius, 0, err)
		return nil, err
	}

	opts := RangeSearchOptions{
		ExactDistances: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	results, err := search.Range(ctx, mg.tree, query, radius, func(o *search.RangeOptions) {
		o.Filter = opts.Filter
		o.ExactDistances = opts.ExactDistances
		o.Info = opts.Info
	})
	err = translateError(err)

	mg.metrics.RecordRange(time.Since(start), err)
	mg.logger.LogRange(ctx, radius, len(results), err)
	return results, err
}

// BatchKNNSearch runs one k-NN query per entry of queries concurrently on
// the engine's worker pool. Results are ordered by query index, and queries
// are isolated: one failing query fills in only its own BatchResult.Err.
func (mg *Metrigo[I]) BatchKNNSearch(ctx context.Context, queries []I, k int, optFns ...func(o *KNNSearchOptions)) []BatchResult {
	start := time.Now()
	if mg.closed.Load() {
		return mg.failBatch(ctx, len(queries), start)
	}

	opts := KNNSearchOptions{
		Algorithm: AlgorithmDepthFirst,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	results := search.KNNBatchWithPool(ctx, mg.tree, mg.pool, queries, k, func(o *search.KNNOptions) {
		o.Algorithm = opts.Algorithm
		o.Tolerance = opts.Tolerance
		o.Filter = opts.Filter
	})

	failed := mg.finishBatch(results)
	mg.metrics.RecordBatch(len(queries), failed, time.Since(start))
	mg.logger.LogBatch(ctx, len(queries), failed)
	return results
}

// BatchRangeSearch runs one range query per entry of queries concurrently on
// the engine's worker pool. Results are ordered by query index, and queries
// are isolated: one failing query fills in only its own BatchResult.Err.
func (mg *Metrigo[I]) BatchRangeSearch(ctx context.Context, queries []I, radius float64, optFns ...func(o *RangeSearchOptions)) []BatchResult {
	start := time.Now()
	if mg.closed.Load() {
		return mg.failBatch(ctx, len(queries), start)
	}

	opts := RangeSearchOptions{
		ExactDistances: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	results := search.RangeBatchWithPool(ctx, mg.tree, mg.pool, queries, radius, func(o *search.RangeOptions) {
		o.Filter = opts.Filter
		o.ExactDistances = opts.ExactDistances
	})

	failed := mg.finishBatch(results)
	mg.metrics.RecordBatch(len(queries), failed, time.Since(start))
	mg.logger.LogBatch(ctx, len(queries), failed)
	return results
}

// failBatch reports a whole batch as failed with ErrClosed.
func (mg *Metrigo[I]) failBatch(ctx context.Context, n int, start time.Time) []BatchResult {
	results := make([]BatchResult, n)
	for i := range results {
		results[i] = BatchResult{Index: i, Err: ErrClosed}
	}
	mg.metrics.RecordBatch(n, n, time.Since(start))
	mg.logger.LogBatch(ctx, n, n)
	return results
}

// finishBatch translates per-query errors and counts failures.
func (mg *Metrigo[I]) finishBatch(results []BatchResult) int {
	failed := 0
	for i := range results {
		if results[i].Err != nil {
			results[i].Err = translateError(results[i].Err)
			failed++
		}
	}
	return failed
}

// Tree exposes the underlying cluster tree for custom traversals and for the
// functions of the search package.
func (mg *Metrigo[I]) Tree() *cluster.Tree[I] { return mg.tree }

// Space exposes the underlying metric space.
func (mg *Metrigo[I]) Space() *space.Space[I] { return mg.space }

// Stats aggregates tree shape and distance-computation statistics.
type Stats struct {
	Tree  cluster.TreeStats
	Space space.Stats
}

// Stats reports statistics about the tree and the space it was built over.
// The space counters reflect all distance traffic, construction included.
func (mg *Metrigo[I]) Stats() Stats {
	if mg.tree == nil {
		return Stats{}
	}
	return Stats{
		Tree:  mg.tree.Stats(),
		Space: mg.space.Stats(),
	}
}

// Validate re-checks the structural invariants of the tree against the
// space. Intended for tests and debugging after a snapshot restore.
func (mg *Metrigo[I]) Validate(ctx context.Context) error {
	if mg.closed.Load() {
		return ErrClosed
	}
	return translateError(mg.tree.Validate(ctx))
}

// WriteCSV writes one row per cluster to w for offline analysis of the
// tree's shape.
func (mg *Metrigo[I]) WriteCSV(w io.Writer) error {
	if mg.closed.Load() {
		return ErrClosed
	}
	return mg.tree.WriteCSV(w)
}

// SaveSnapshot persists the tree topology to a file. The dataset itself is
// not stored; restoring requires the same dataset and metric.
func (mg *Metrigo[I]) SaveSnapshot(path string, optFns ...func(o *snapshot.Options)) error {
	start := time.Now()
	if mg.closed.Load() {
		err := ErrClosed
		mg.metrics.RecordSnapshotSave(time.Since(start), err)
		mg.logger.LogSnapshot(context.Background(), path, err)
		return err
	}

	err := translateError(snapshot.SaveFile(path, mg.tree, mg.snapshotOptions(optFns)...))
	mg.metrics.RecordSnapshotSave(time.Since(start), err)
	mg.logger.LogSnapshot(context.Background(), path, err)
	return err
}

// WriteSnapshot writes the tree topology to w in snapshot format.
func (mg *Metrigo[I]) WriteSnapshot(w io.Writer, optFns ...func(o *snapshot.Options)) error {
	start := time.Now()
	if mg.closed.Load() {
		err := ErrClosed
		mg.metrics.RecordSnapshotSave(time.Since(start), err)
		return err
	}

	err := translateError(snapshot.Write(w, mg.tree, mg.snapshotOptions(optFns)...))
	mg.metrics.RecordSnapshotSave(time.Since(start), err)
	return err
}

// snapshotOptions seeds snapshot options with the engine's resource
// controller; caller options run afterwards and may override it.
func (mg *Metrigo[I]) snapshotOptions(optFns []func(o *snapshot.Options)) []func(o *snapshot.Options) {
	seeded := make([]func(o *snapshot.Options), 0, len(optFns)+1)
	seeded = append(seeded, func(o *snapshot.Options) {
		o.Controller = mg.rc
	})
	return append(seeded, optFns...)
}
