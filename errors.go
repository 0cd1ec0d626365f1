package metrigo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/metrigo/search"
	"github.com/hupe1980/metrigo/space"
)

var (
	// ErrClosed is returned by operations on a closed instance.
	ErrClosed = errors.New("metrigo: closed")

	// ErrEmptyDataset is returned when an index is built over zero items.
	ErrEmptyDataset = errors.New("metrigo: dataset is empty")

	// ErrNotFound is returned by First when the search matched nothing.
	ErrNotFound = errors.New("metrigo: no result")
)

// InvalidKError indicates a neighbor count outside [1, Cardinality]. It is
// raised before any traversal, so a failing call computes no distances.
//
// The original underlying error can be accessed via errors.Unwrap.
type InvalidKError struct {
	K           int
	Cardinality int
	cause       error
}

func (e *InvalidKError) Error() string {
	return fmt.Sprintf("invalid k: must be in [1, %d], got %d", e.Cardinality, e.K)
}

func (e *InvalidKError) Unwrap() error { return e.cause }

// InvalidMetricError indicates the caller-supplied distance function returned
// a value no metric can produce: negative or NaN. J is -1 when the pair
// involved an external query item.
//
// The original underlying error can be accessed via errors.Unwrap.
type InvalidMetricError struct {
	Metric string
	I      int
	J      int
	Value  float64
	cause  error
}

func (e *InvalidMetricError) Error() string {
	return fmt.Sprintf("invalid metric: %q returned %v for pair (%d, %d)", e.Metric, e.Value, e.I, e.J)
}

func (e *InvalidMetricError) Unwrap() error { return e.cause }

// DistanceError indicates the caller-supplied distance function failed for a
// pair of items. J is -1 when the pair involved an external query item.
//
// The original underlying error can be accessed via errors.Unwrap.
type DistanceError struct {
	I     int
	J     int
	cause error
}

func (e *DistanceError) Error() string {
	return fmt.Sprintf("distance computation failed for pair (%d, %d): %v", e.I, e.J, e.cause)
}

func (e *DistanceError) Unwrap() error { return e.cause }

// translateError normalizes internal errors onto the public surface so
// callers match against this package alone.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, space.ErrEmptyDataset) {
		return fmt.Errorf("%w: %w", ErrEmptyDataset, err)
	}

	var ik *search.InvalidKError
	if errors.As(err, &ik) {
		return &InvalidKError{K: ik.K, Cardinality: ik.Cardinality, cause: err}
	}

	var im *space.ErrInvalidMetric
	if errors.As(err, &im) {
		return &InvalidMetricError{Metric: im.Metric, I: im.I, J: im.J, Value: im.Value, cause: err}
	}

	var dc *space.ErrDistanceComputation
	if errors.As(err, &dc) {
		return &DistanceError{I: dc.I, J: dc.J, cause: err}
	}

	return err
}
