package search

// Algorithm selects the k-NN traversal strategy. All algorithms return
// identical, exact results; they differ in how many clusters they visit and
// how many distances they compute on a given dataset.
type Algorithm string

const (
	// AlgorithmDepthFirst descends closer children first and prunes against
	// the running k-th best. The default, and the strategy used by
	// approximate queries.
	AlgorithmDepthFirst Algorithm = "depth-first"

	// AlgorithmBestFirst settles clusters in ascending lower-bound order and
	// stops as soon as the best outstanding cluster cannot improve the
	// results.
	AlgorithmBestFirst Algorithm = "best-first"

	// AlgorithmRepeatedRange guesses a radius from the root's local fractal
	// dimension and doubles it until at least k items are in range, then
	// keeps the k best.
	AlgorithmRepeatedRange Algorithm = "repeated-range"
)

// Info captures traversal counters for a single call. Pass a fresh Info per
// call; sharing one across concurrent queries races.
type Info struct {
	// ClustersVisited counts clusters taken off the traversal frontier.
	ClustersVisited int

	// ClustersPruned counts clusters discarded together with their subtrees.
	ClustersPruned int

	// LeavesScanned counts leaves whose members were examined one by one.
	LeavesScanned int

	// ItemsScanned counts query-to-item distance computations at the leaf level.
	ItemsScanned int

	// Radius is the final search radius, set by range queries and the
	// repeated-range strategy.
	Radius float64

	// Approx reports whether any returned distance may deviate from the
	// true one: approximate k-NN, or range results emitted with upper-bound
	// distances.
	Approx bool
}

// KNNOptions control a single k-NN call.
type KNNOptions struct {
	// Algorithm selects the traversal strategy. Default: AlgorithmDepthFirst.
	Algorithm Algorithm

	// Tolerance > 0 switches to approximate search: the returned k-th
	// distance is at most (1+Tolerance) times the true k-th distance.
	// Approximate search always uses the depth-first strategy. 0 is exact.
	Tolerance float64

	// Filter restricts results to allowed ids. Fewer than k results are
	// returned when the filter admits fewer than k items.
	Filter Filter

	// Info, when non-nil, is reset and filled with this call's counters.
	Info *Info
}

// DefaultKNNOptions are the options used when callers override nothing.
var DefaultKNNOptions = KNNOptions{
	Algorithm: AlgorithmDepthFirst,
}

// RangeOptions control a single range call.
type RangeOptions struct {
	// Filter restricts results to allowed ids.
	Filter Filter

	// ExactDistances back-fills true distances for subtrees that are
	// provably contained in the query ball. Turning it off emits the
	// subtree's upper bound instead, skipping those distance computations;
	// the call's Info is then flagged Approx. Membership is exact either
	// way. Default: true.
	ExactDistances bool

	// Info, when non-nil, is reset and filled with this call's counters.
	Info *Info
}

// DefaultRangeOptions are the options used when callers override nothing.
var DefaultRangeOptions = RangeOptions{
	ExactDistances: true,
}
