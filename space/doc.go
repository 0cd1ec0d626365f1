// Package space binds a dataset to a distance function and memoizes
// pairwise distances.
//
// A Space is the single authority on distances: construction and search
// both route every evaluation through it, which lets one sharded cache
// serve all concurrent work. The metric contract (symmetry, reflexivity,
// triangle inequality) is the caller's obligation; the space checks only
// what is cheap to check, rejecting negative and NaN results.
package space
