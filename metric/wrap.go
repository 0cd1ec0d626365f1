package metric

import (
	"fmt"
	"math"
	"sync/atomic"
)

// CountingMetric wraps a Metric and counts distance evaluations. It is
// safe for concurrent use and adds one atomic increment per call, so it
// is intended for benchmarks and tuning rather than steady-state serving.
type CountingMetric[I any] struct {
	inner Metric[I]
	calls atomic.Int64
}

// Counting wraps m with an evaluation counter.
func Counting[I any](m Metric[I]) *CountingMetric[I] {
	return &CountingMetric[I]{inner: m}
}

func (c *CountingMetric[I]) Name() string { return c.inner.Name() }

func (c *CountingMetric[I]) Distance(a, b I) (float64, error) {
	c.calls.Add(1)
	return c.inner.Distance(a, b)
}

// Count returns the number of distance evaluations since creation or the
// last Reset.
func (c *CountingMetric[I]) Count() int64 { return c.calls.Load() }

// Reset zeroes the evaluation counter.
func (c *CountingMetric[I]) Reset() { c.calls.Store(0) }

// CheckedMetric wraps a Metric and rejects results that cannot come from
// a valid metric: negative distances and NaN. The engine performs the
// same check opportunistically; wrapping the metric moves detection to
// every evaluation, including uncached ones.
type CheckedMetric[I any] struct {
	inner Metric[I]
}

// Checked wraps m with result validation.
func Checked[I any](m Metric[I]) *CheckedMetric[I] {
	return &CheckedMetric[I]{inner: m}
}

func (c *CheckedMetric[I]) Name() string { return c.inner.Name() }

func (c *CheckedMetric[I]) Distance(a, b I) (float64, error) {
	d, err := c.inner.Distance(a, b)
	if err != nil {
		return 0, err
	}
	if d < 0 || math.IsNaN(d) {
		return 0, fmt.Errorf("metric: %s returned invalid distance %v", c.inner.Name(), d)
	}
	return d, nil
}
