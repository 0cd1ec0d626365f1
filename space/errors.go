package space

import (
	"errors"
	"fmt"
)

var (
	// ErrNilDataset is returned when a space is created without a dataset.
	ErrNilDataset = errors.New("space: dataset is nil")

	// ErrNilMetric is returned when a space is created without a metric.
	ErrNilMetric = errors.New("space: metric is nil")

	// ErrEmptyDataset is returned when a space is created over zero items.
	ErrEmptyDataset = errors.New("space: dataset is empty")

	// ErrDatasetTooLarge is returned when the dataset exceeds the 32-bit
	// identifier limit imposed by the packed pair keys of the cache.
	ErrDatasetTooLarge = errors.New("space: dataset exceeds 2^32-1 items")
)

// ErrIDOutOfRange indicates an item identifier outside [0, Len).
type ErrIDOutOfRange struct {
	ID  int
	Len int
}

func (e *ErrIDOutOfRange) Error() string {
	return fmt.Sprintf("space: id %d out of range [0, %d)", e.ID, e.Len)
}

// ErrInvalidMetric indicates the caller-supplied distance function
// produced a value no metric can: negative or NaN. Detection is
// opportunistic; a conforming-looking function may still violate
// symmetry or the triangle inequality undetected.
type ErrInvalidMetric struct {
	Metric string
	I      int
	J      int
	Value  float64
}

func (e *ErrInvalidMetric) Error() string {
	return fmt.Sprintf("space: metric %q returned invalid distance %v for pair (%d, %d)", e.Metric, e.Value, e.I, e.J)
}

// ErrDistanceComputation indicates the caller-supplied distance function
// failed for a pair of items. J is -1 when the right-hand side was an
// external query item rather than a dataset member.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrDistanceComputation struct {
	I     int
	J     int
	cause error
}

func (e *ErrDistanceComputation) Error() string {
	if e.J < 0 {
		return fmt.Sprintf("space: distance computation failed for item %d against query: %v", e.I, e.cause)
	}
	return fmt.Sprintf("space: distance computation failed for pair (%d, %d): %v", e.I, e.J, e.cause)
}

func (e *ErrDistanceComputation) Unwrap() error { return e.cause }
