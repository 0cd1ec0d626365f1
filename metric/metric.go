package metric

// Metric computes the distance between two items of type I.
//
// Search correctness depends on the metric contract: d(a,b) = d(b,a),
// d(a,a) = 0, and d(a,c) <= d(a,b) + d(b,c). The engine does not verify
// the contract beyond opportunistic checks (negative or NaN results);
// supplying a function that violates it may silently drop true neighbors.
//
// Name identifies the metric in snapshots so that a tree is never
// restored against a different distance function.
type Metric[I any] interface {
	// Name returns a short, stable identifier for the metric.
	Name() string
	// Distance returns the distance between a and b.
	Distance(a, b I) (float64, error)
}

// Func adapts a plain function into a Metric.
type Func[I any] func(a, b I) (float64, error)

type funcMetric[I any] struct {
	name string
	fn   Func[I]
}

// New wraps fn as a named Metric.
func New[I any](name string, fn Func[I]) Metric[I] {
	return &funcMetric[I]{name: name, fn: fn}
}

func (m *funcMetric[I]) Name() string { return m.name }

func (m *funcMetric[I]) Distance(a, b I) (float64, error) { return m.fn(a, b) }
