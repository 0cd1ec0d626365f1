package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMatrix is returned when a matrix is built from zero rows.
	ErrEmptyMatrix = errors.New("dataset: matrix has no rows")

	// ErrRaggedRows is returned when input rows differ in length.
	ErrRaggedRows = errors.New("dataset: rows have inconsistent dimensions")

	// ErrBadShape is returned when a flat buffer does not divide evenly
	// into rows of the stated dimension.
	ErrBadShape = errors.New("dataset: flat data length is not a multiple of the dimension")
)

// Matrix is an in-memory row-major float64 matrix dataset. Rows are
// returned as subslices of one contiguous allocation, so At performs no
// copies and iteration is cache-friendly.
type Matrix struct {
	data []float64
	rows int
	dim  int
}

// NewMatrix copies rows into a contiguous matrix. All rows must share
// the same dimension.
func NewMatrix(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyMatrix
	}
	dim := len(rows[0])
	data := make([]float64, 0, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row 0 has %d, row %d has %d", ErrRaggedRows, dim, i, len(row))
		}
		data = append(data, row...)
	}
	return &Matrix{data: data, rows: len(rows), dim: dim}, nil
}

// FromFlat wraps an existing row-major buffer without copying. The
// buffer must not be mutated afterwards.
func FromFlat(data []float64, dim int) (*Matrix, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dataset: dimension must be positive, got %d", dim)
	}
	if len(data) == 0 {
		return nil, ErrEmptyMatrix
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("%w: len %d, dim %d", ErrBadShape, len(data), dim)
	}
	return &Matrix{data: data, rows: len(data) / dim, dim: dim}, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return m.rows }

// Dim returns the row dimension.
func (m *Matrix) Dim() int { return m.dim }

// At returns row i as a view into the backing buffer. Callers must treat
// it as read-only.
func (m *Matrix) At(i int) []float64 {
	start := i * m.dim
	return m.data[start : start+m.dim : start+m.dim]
}
