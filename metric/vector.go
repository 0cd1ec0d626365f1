package metric

import (
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors have different lengths.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("metric: vector dimension mismatch: expected %d, actual %d", e.Expected, e.Actual)
}

func checkDims(a, b []float64) error {
	if len(a) != len(b) {
		return &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	return nil
}

// Euclidean computes the Euclidean (L2) distance between float64 vectors.
type Euclidean struct{}

func (Euclidean) Name() string { return "euclidean" }

func (Euclidean) Distance(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	return math.Sqrt(sumOfSquares(a, b)), nil
}

// SquaredEuclidean computes the squared Euclidean distance. It does not
// satisfy the triangle inequality; pruning bounds built on it are not
// sound, so only callers that accept rank-only correctness should use it.
type SquaredEuclidean struct{}

func (SquaredEuclidean) Name() string { return "sq-euclidean" }

func (SquaredEuclidean) Distance(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	return sumOfSquares(a, b), nil
}

func sumOfSquares(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Manhattan computes the Manhattan (L1 / city-block) distance.
type Manhattan struct{}

func (Manhattan) Name() string { return "manhattan" }

func (Manhattan) Distance(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum, nil
}

// Chebyshev computes the Chebyshev (L-infinity) distance.
type Chebyshev struct{}

func (Chebyshev) Name() string { return "chebyshev" }

func (Chebyshev) Distance(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var max float64
	for i := range a {
		if v := math.Abs(a[i] - b[i]); v > max {
			max = v
		}
	}
	return max, nil
}

// Minkowski computes the Minkowski distance of order P. P must be >= 1 for
// the triangle inequality to hold; P = 1 is Manhattan, P = 2 is Euclidean.
type Minkowski struct {
	P float64
}

func (m Minkowski) Name() string { return fmt.Sprintf("minkowski-%g", m.P) }

func (m Minkowski) Distance(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	if m.P < 1 {
		return 0, fmt.Errorf("metric: minkowski order must be >= 1, got %g", m.P)
	}
	var sum float64
	for i := range a {
		sum += math.Pow(math.Abs(a[i]-b[i]), m.P)
	}
	return math.Pow(sum, 1/m.P), nil
}

// Cosine computes the angular distance acos(cos_sim)/pi, the metric form
// of cosine dissimilarity, normalized to [0, 1]. A zero vector has no
// direction and yields an error.
type Cosine struct{}

func (Cosine) Name() string { return "cosine" }

func (Cosine) Distance(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("metric: cosine distance undefined for zero vector")
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp against floating-point drift before acos.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) / math.Pi, nil
}
