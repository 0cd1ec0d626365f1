// Package metrigo provides a nearest neighbor search engine for arbitrary
// metric spaces.
//
// Metrigo builds a hierarchical cluster tree over a dataset and answers
// k-nearest-neighbor and range queries by branch-and-bound traversal,
// pruning whole subtrees with the triangle inequality. Exact queries return
// exactly what a linear scan would, usually after a fraction of the distance
// computations; an optional tolerance trades a bounded amount of accuracy
// for speed. The engine works with any metric, not just vector distances:
// items may be float64 vectors, strings, or any type a metric.Metric is
// defined for.
//
// # Quick Start
//
// Vectors under the Euclidean metric:
//
//	ctx := context.Background()
//	mg, err := metrigo.Euclidean(rows).
//	    MinCardinality(10).
//	    Build(ctx)
//	if err != nil {
//	    panic(err)
//	}
//	defer mg.Close()
//
//	results, err := mg.KNNSearch(ctx, query, 10)
//
// Strings under edit distance:
//
//	mg, err := metrigo.Strings(words, metric.Levenshtein{}).Build(ctx)
//
// Any dataset and metric:
//
//	mg, err := metrigo.New[[]float64](data, metric.Cosine{}).Build(ctx)
//
// # Search
//
// Direct calls cover the common cases:
//
//	neighbors, err := mg.KNNSearch(ctx, query, 10)
//	within, err := mg.RangeSearch(ctx, query, 2.5)
//	approx, err := mg.KNNSearchApprox(ctx, query, 10, 0.1)
//
// The fluent API composes options:
//
//	results, err := mg.Search(query).
//	    KNN(10).
//	    Algorithm(metrigo.AlgorithmBestFirst).
//	    WhereID(func(id int) bool { return id%2 == 0 }).
//	    Execute(ctx)
//
// Batches fan out over the engine's worker pool:
//
//	for _, br := range mg.BatchKNNSearch(ctx, queries, 10) {
//	    if br.Err != nil {
//	        continue
//	    }
//	    process(br.Neighbors)
//	}
//
// # Snapshots
//
// The tree topology can be persisted and restored without rebuilding. The
// dataset itself is not stored; loading requires the same dataset and
// metric, and a fingerprint check rejects mismatches:
//
//	_ = mg.SaveSnapshot("tree.mgo")
//	mg2, err := metrigo.LoadSnapshot("tree.mgo", data, metric.Euclidean{})
//
// # Key Features
//
//   - Arbitrary metrics: Euclidean, Manhattan, Cosine, Levenshtein, Hamming,
//     or any user-defined metric.Metric
//   - Exact k-NN via depth-first, best-first, or repeated-range traversal
//   - Approximate k-NN with a provable (1+tolerance) distance bound
//   - Range search with exact membership
//   - Roaring-bitmap result filtering
//   - Parallel tree construction and batch queries on a shared worker pool
//   - Compressed, checksummed snapshots with fingerprint verification
//   - Structured logging (slog) and pluggable metrics collection
package metrigo
