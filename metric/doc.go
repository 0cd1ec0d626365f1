// Package metric defines the pluggable distance contract and common
// distance functions for vectors and strings.
//
// Any type satisfying Metric is usable: the engine never inspects items,
// only distances. Built-ins cover the usual vector metrics (Euclidean,
// Manhattan, Chebyshev, Minkowski, angular cosine) and text metrics
// (Hamming, Levenshtein). Counting and Checked wrap an existing metric
// with call counting and result validation.
package metric
