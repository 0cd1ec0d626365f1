// Package search runs k-nearest-neighbor and range queries against cluster
// trees. Traversals are branch-and-bound: a cluster whose lower bound
// (distance from the query to the center minus the radius) cannot beat the
// current k-th best is skipped along with its whole subtree.
//
// Exact queries return the same results as a linear scan for every valid k
// and radius; Linear and LinearRange provide those scans directly and serve
// as oracles in tests. Approximate k-NN trades a bounded amount of accuracy
// for fewer distance computations and is opted into per call via Tolerance.
package search
