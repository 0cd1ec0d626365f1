// Package testutil provides testing utilities for Metrigo.
//
// This package is intended for use in tests and benchmarks only. It
// offers a seeded, thread-safe random source, dataset generators for
// vector and string metric spaces, and recall computation against
// exact ground truth.
//
// # Dataset Generation
//
//	rng := testutil.NewRNG(4711)
//	rows := rng.UniformVectors(1000, 16) // uniform [0, 1)
//	rows = rng.ClusteredVectors(1000, 16, 8, 0.1)
//	words := rng.Words(500, 3, 12) // for string metrics
//
// # Recall Verification
//
//	exact, _ := search.Linear(ctx, s, query, k)
//	approx, _ := search.KNN(ctx, tree, query, k, opts...)
//	recall := testutil.ComputeRecall(exact, approx)
package testutil
