package search

import (
	"errors"
	"fmt"
)

var (
	// ErrNilTree is returned when a query is run against a nil tree.
	ErrNilTree = errors.New("search: nil tree")

	// ErrNilSpace is returned when a linear scan is run against a nil space.
	ErrNilSpace = errors.New("search: nil space")

	// ErrNegativeRadius is returned for range queries with a negative or NaN radius.
	ErrNegativeRadius = errors.New("search: radius must be non-negative")

	// ErrNegativeTolerance is returned for k-NN queries with a negative tolerance.
	ErrNegativeTolerance = errors.New("search: tolerance must be non-negative")

	// ErrUnknownAlgorithm is returned when Options name an algorithm this
	// package does not implement.
	ErrUnknownAlgorithm = errors.New("search: unknown algorithm")
)

// InvalidKError is returned before any traversal when k is outside
// [1, Cardinality].
type InvalidKError struct {
	K           int
	Cardinality int
}

func (e *InvalidKError) Error() string {
	return fmt.Sprintf("search: k must be in [1, %d], got %d", e.Cardinality, e.K)
}
