package metrigo

import (
	"context"
)

// Search creates a fluent search builder for the given query.
//
// Example:
//
//	results, err := mg.Search(query).
//	    KNN(10).
//	    Tolerance(0.1).
//	    Execute(ctx)
//
//	// Or for everything within a radius:
//	results, err := mg.Search(query).Within(ctx, 2.5)
func (mg *Metrigo[I]) Search(query I) *SearchBuilder[I] {
	k := 10 // Default k, clamped so tiny datasets stay searchable.
	if mg.tree != nil && mg.tree.Cardinality() < k {
		k = mg.tree.Cardinality()
	}

	return &SearchBuilder[I]{
		mg:        mg,
		query:     query,
		k:         k,
		algorithm: AlgorithmDepthFirst,
	}
}

// SearchBuilder is a fluent builder for constructing search queries.
type SearchBuilder[I any] struct {
	mg        *Metrigo[I]
	query     I
	k         int
	algorithm Algorithm
	tolerance float64
	filter    Filter
	info      *SearchInfo
}

// KNN sets the number of nearest neighbors to return.
func (sb *SearchBuilder[I]) KNN(k int) *SearchBuilder[I] {
	sb.k = k
	return sb
}

// Algorithm sets the traversal strategy.
// Default: AlgorithmDepthFirst.
func (sb *SearchBuilder[I]) Algorithm(a Algorithm) *SearchBuilder[I] {
	sb.algorithm = a
	return sb
}

// Tolerance switches to approximate search: the returned k-th distance is at
// most (1+t) times the true k-th distance. 0 is exact.
func (sb *SearchBuilder[I]) Tolerance(t float64) *SearchBuilder[I] {
	sb.tolerance = t
	return sb
}

// Filter restricts results to dataset ids the filter allows.
func (sb *SearchBuilder[I]) Filter(f Filter) *SearchBuilder[I] {
	sb.filter = f
	return sb
}

// WhereID restricts results by an id predicate.
// Convenience method for common id-based filtering patterns.
func (sb *SearchBuilder[I]) WhereID(fn func(id int) bool) *SearchBuilder[I] {
	return sb.Filter(FilterFunc(fn))
}

// Info attaches a SearchInfo that is filled with the query's traversal
// counters.
func (sb *SearchBuilder[I]) Info(info *SearchInfo) *SearchBuilder[I] {
	sb.info = info
	return sb
}

// Execute runs the k-NN search and returns the results.
func (sb *SearchBuilder[I]) Execute(ctx context.Context) ([]Result, error) {
	return sb.mg.KNNSearch(ctx, sb.query, sb.k, func(o *KNNSearchOptions) {
		o.Algorithm = sb.algorithm
		o.Tolerance = sb.tolerance
		o.Filter = sb.filter
		o.Info = sb.info
	})
}

// MustExecute runs the search, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (sb *SearchBuilder[I]) MustExecute(ctx context.Context) []Result {
	results, err := sb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return results
}

// First returns only the nearest result, or ErrNotFound if nothing matches.
func (sb *SearchBuilder[I]) First(ctx context.Context) (Result, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 {
		return Result{}, ErrNotFound
	}
	return results[0], nil
}

// Within runs a range search instead, returning every item within radius of
// the query. The KNN, Algorithm and Tolerance settings do not apply.
func (sb *SearchBuilder[I]) Within(ctx context.Context, radius float64) ([]Result, error) {
	return sb.mg.RangeSearch(ctx, sb.query, radius, func(o *RangeSearchOptions) {
		o.Filter = sb.filter
		o.Info = sb.info
	})
}

// Count executes the search and returns the number of results.
func (sb *SearchBuilder[I]) Count(ctx context.Context) (int, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// Exists checks whether at least one result matches the search.
func (sb *SearchBuilder[I]) Exists(ctx context.Context) (bool, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
