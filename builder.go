package metrigo

import (
	"context"
	"time"

	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/dataset"
	"github.com/hupe1980/metrigo/internal/pool"
	"github.com/hupe1980/metrigo/metric"
	"github.com/hupe1980/metrigo/resource"
	"github.com/hupe1980/metrigo/snapshot"
	"github.com/hupe1980/metrigo/space"
)

// New creates a builder for an engine over data and m. Items are addressed
// by their dataset index; neither the dataset nor the metric may change
// while the engine is alive.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration. This ensures thread-safety and prevents accidental
// state sharing.
//
// Example:
//
//	mg, err := metrigo.New[[]float64](data, metric.Cosine{}).
//	    MinCardinality(10).
//	    Workers(4).
//	    Build(ctx)
func New[I any](data dataset.Dataset[I], m metric.Metric[I]) Builder[I] {
	return Builder[I]{
		data: data,
		m:    m,
		cfg:  cluster.DefaultConfig(),
	}
}

// Euclidean creates a builder over float64 vector rows with the Euclidean
// metric. All rows must share one dimensionality; ragged input surfaces as
// an error from Build.
//
// Example:
//
//	mg, err := metrigo.Euclidean(rows).
//	    MinCardinality(10).
//	    Build(ctx)
func Euclidean(rows [][]float64) Builder[[]float64] {
	b := Builder[[]float64]{
		m:   metric.Euclidean{},
		cfg: cluster.DefaultConfig(),
	}

	mat, err := dataset.NewMatrix(rows)
	if err != nil {
		b.err = err
		return b
	}

	b.data = mat
	return b
}

// Strings creates a builder over string items with metric m, typically
// metric.Levenshtein or metric.Hamming.
//
// Example:
//
//	mg, err := metrigo.Strings(words, metric.Levenshtein{}).Build(ctx)
func Strings(items []string, m metric.Metric[string]) Builder[string] {
	return New[string](dataset.Slice[string](items), m)
}

// Builder is an immutable fluent builder for creating Metrigo instances.
// Each method returns a new builder with the updated configuration.
type Builder[I any] struct {
	data dataset.Dataset[I]
	m    metric.Metric[I]
	cfg  cluster.Config
	err  error

	logger          *Logger
	metrics         MetricsCollector
	resource        *resource.Controller
	workers         int
	cacheMaxEntries int
	disableCache    bool
}

// MinCardinality stops partitioning once a cluster holds n items or fewer.
// Larger values give shallower trees with bigger leaves, which trades
// pruning power for fewer tree levels per query.
// Default: 1 (partition down to singletons).
func (b Builder[I]) MinCardinality(n int) Builder[I] {
	b.cfg.MinCardinality = n
	return b
}

// MinRadius stops partitioning clusters whose radius falls below r. Useful
// when items closer than some resolution are equivalent for the application.
// Default: 0 (disabled).
func (b Builder[I]) MinRadius(r float64) Builder[I] {
	b.cfg.MinRadius = r
	return b
}

// DuplicateTolerance stops partitioning clusters whose diameter bound is
// within t: every pair of members is then provably within t of each other.
// Default: 0 (folds exact duplicates only).
func (b Builder[I]) DuplicateTolerance(t float64) Builder[I] {
	b.cfg.DuplicateTolerance = t
	return b
}

// MaxDepth stops partitioning at depth d regardless of cardinality.
// Default: 0 (unbounded).
func (b Builder[I]) MaxDepth(d int) Builder[I] {
	b.cfg.MaxDepth = d
	return b
}

// Workers sets the worker count for tree construction and batch queries.
// The resulting tree does not depend on the worker count.
// Default: 0 (GOMAXPROCS).
func (b Builder[I]) Workers(n int) Builder[I] {
	b.workers = n
	return b
}

// CacheMaxEntries bounds the pairwise distance cache of the underlying
// space. Default: 0 (unbounded).
func (b Builder[I]) CacheMaxEntries(n int) Builder[I] {
	b.cacheMaxEntries = n
	return b
}

// DisableCache turns distance memoization off entirely. Useful for cheap
// metrics where the cache overhead exceeds recomputation.
func (b Builder[I]) DisableCache() Builder[I] {
	b.disableCache = true
	return b
}

// Logger sets the structured logger for operation tracing.
func (b Builder[I]) Logger(l *Logger) Builder[I] {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b Builder[I]) Metrics(mc MetricsCollector) Builder[I] {
	b.metrics = mc
	return b
}

// Resource sets a controller that bounds memory use and snapshot I/O
// throughput.
func (b Builder[I]) Resource(rc *resource.Controller) Builder[I] {
	b.resource = rc
	return b
}

// Build constructs the cluster tree and returns the engine. Construction
// runs on the configured worker count and respects ctx cancellation.
func (b Builder[I]) Build(ctx context.Context) (*Metrigo[I], error) {
	if b.err != nil {
		return nil, b.err
	}

	var optFns []Option
	if b.logger != nil {
		optFns = append(optFns, WithLogger(b.logger))
	}
	if b.metrics != nil {
		optFns = append(optFns, WithMetricsCollector(b.metrics))
	}
	if b.resource != nil {
		optFns = append(optFns, WithResource(b.resource))
	}
	if b.workers != 0 {
		optFns = append(optFns, WithWorkers(b.workers))
	}
	if b.cacheMaxEntries != 0 {
		optFns = append(optFns, WithCacheMaxEntries(b.cacheMaxEntries))
	}
	if b.disableCache {
		optFns = append(optFns, WithDisableCache())
	}

	return newEngine(ctx, b.data, b.m, b.cfg, optFns)
}

// MustBuild constructs the engine, panicking on error.
func (b Builder[I]) MustBuild(ctx context.Context) *Metrigo[I] {
	mg, err := b.Build(ctx)
	if err != nil {
		panic(err)
	}
	return mg
}

// LoadSnapshot restores an engine from a snapshot file. data and m must be
// the dataset and metric the snapshot was taken over; the stored fingerprint
// is verified and mismatches surface as snapshot.ErrMismatch.
//
// Example:
//
//	mg, err := metrigo.LoadSnapshot("tree.mgo", data, metric.Euclidean{})
func LoadSnapshot[I any](path string, data dataset.Dataset[I], m metric.Metric[I], optFns ...Option) (*Metrigo[I], error) {
	start := time.Now()
	opts := applyOptions(optFns)

	s, err := space.New(data, m, func(o *space.Options) {
		o.CacheMaxEntries = opts.cacheMaxEntries
		o.DisableCache = opts.disableCache
	})
	if err != nil {
		err = translateError(err)
		opts.metricsCollector.RecordSnapshotLoad(time.Since(start), err)
		opts.logger.LogRestore(context.Background(), path, 0, err)
		return nil, err
	}

	t, err := snapshot.LoadFile(path, s)
	err = translateError(err)

	cardinality := 0
	if t != nil {
		cardinality = t.Cardinality()
	}
	opts.metricsCollector.RecordSnapshotLoad(time.Since(start), err)
	opts.logger.LogRestore(context.Background(), path, cardinality, err)

	if err != nil {
		return nil, err
	}

	return &Metrigo[I]{
		space:   s,
		tree:    t,
		pool:    pool.New(opts.workers),
		metrics: opts.metricsCollector,
		logger:  opts.logger,
		rc:      opts.resource,
	}, nil
}
