package space

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metrigo/dataset"
	"github.com/hupe1980/metrigo/metric"
)

func newTestSpace(t *testing.T, rows [][]float64, optFns ...func(o *Options)) *Space[[]float64] {
	t.Helper()
	m, err := dataset.NewMatrix(rows)
	require.NoError(t, err)
	s, err := New[[]float64](m, metric.Euclidean{}, optFns...)
	require.NoError(t, err)
	return s
}

func TestNewValidation(t *testing.T) {
	m, err := dataset.NewMatrix([][]float64{{0}})
	require.NoError(t, err)

	t.Run("NilDataset", func(t *testing.T) {
		_, err := New[[]float64](nil, metric.Euclidean{})
		require.ErrorIs(t, err, ErrNilDataset)
	})

	t.Run("NilMetric", func(t *testing.T) {
		_, err := New[[]float64](m, nil)
		require.ErrorIs(t, err, ErrNilMetric)
	})

	t.Run("EmptyDataset", func(t *testing.T) {
		_, err := New[[]float64](dataset.Slice[[]float64]{}, metric.Euclidean{})
		require.ErrorIs(t, err, ErrEmptyDataset)
	})
}

func TestDistance(t *testing.T) {
	s := newTestSpace(t, [][]float64{{0, 0}, {3, 4}, {6, 8}})

	t.Run("Basic", func(t *testing.T) {
		d, err := s.Distance(0, 1)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, d, 1e-12)
	})

	t.Run("SymmetricViaCache", func(t *testing.T) {
		d1, err := s.Distance(1, 2)
		require.NoError(t, err)
		d2, err := s.Distance(2, 1)
		require.NoError(t, err)
		assert.Equal(t, d1, d2)
	})

	t.Run("ReflexiveNoComputation", func(t *testing.T) {
		before := s.Stats().Computations
		d, err := s.Distance(2, 2)
		require.NoError(t, err)
		assert.Zero(t, d)
		assert.Equal(t, before, s.Stats().Computations)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		_, err := s.Distance(0, 99)
		var oor *ErrIDOutOfRange
		require.True(t, errors.As(err, &oor))
		assert.Equal(t, 99, oor.ID)

		_, err = s.Distance(-1, 0)
		require.Error(t, err)
	})
}

func TestDistanceCaching(t *testing.T) {
	s := newTestSpace(t, [][]float64{{0}, {1}, {2}})

	_, err := s.Distance(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Stats().Computations)

	// Same pair in either order hits the cache.
	_, err = s.Distance(1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Stats().Computations)

	st := s.Stats().Cache
	assert.Equal(t, int64(1), st.Entries)
	assert.Equal(t, int64(1), st.Hits)
}

func TestDistanceCacheDisabled(t *testing.T) {
	s := newTestSpace(t, [][]float64{{0}, {1}}, func(o *Options) {
		o.DisableCache = true
	})

	require.Nil(t, s.Cache())

	_, err := s.Distance(0, 1)
	require.NoError(t, err)
	_, err = s.Distance(0, 1)
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, int64(2), st.Computations)
	assert.Equal(t, CacheStats{}, st.Cache)
}

func TestDistanceToQuery(t *testing.T) {
	s := newTestSpace(t, [][]float64{{0, 0}, {1, 0}})

	d, err := s.DistanceToQuery([]float64{0.5, 0.5}, 0)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.5), d, 1e-12)

	// Query distances are never cached.
	assert.Equal(t, 0, s.Cache().Len())

	_, err = s.DistanceToQuery([]float64{0, 0}, 5)
	require.Error(t, err)
}

func TestDistanceComputationFailure(t *testing.T) {
	failing := metric.New("failing", func(a, b string) (float64, error) {
		return 0, errors.New("malformed record")
	})
	s, err := New[string](dataset.Slice[string]{"a", "b"}, failing)
	require.NoError(t, err)

	_, err = s.Distance(0, 1)
	var dce *ErrDistanceComputation
	require.True(t, errors.As(err, &dce))
	assert.Equal(t, 0, dce.I)
	assert.Equal(t, 1, dce.J)
	assert.EqualError(t, errors.Unwrap(dce), "malformed record")

	// Failures are not cached; the next call fails again.
	_, err = s.Distance(0, 1)
	require.Error(t, err)
	assert.Equal(t, 0, s.Cache().Len())

	_, err = s.DistanceToQuery("q", 0)
	require.True(t, errors.As(err, &dce))
	assert.Equal(t, -1, dce.J)
}

func TestInvalidMetricDetection(t *testing.T) {
	negative := metric.New("negative", func(a, b int) (float64, error) {
		return -1, nil
	})
	s, err := New[int](dataset.Slice[int]{1, 2}, negative)
	require.NoError(t, err)

	_, err = s.Distance(0, 1)
	var im *ErrInvalidMetric
	require.True(t, errors.As(err, &im))
	assert.Equal(t, "negative", im.Metric)
	assert.Equal(t, -1.0, im.Value)
}

func TestDistances(t *testing.T) {
	s := newTestSpace(t, [][]float64{{0}, {1}, {2}, {3}})

	ds, err := s.Distances(0, []int{1, 2, 3, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 0}, ds)
}

func TestDistanceConcurrent(t *testing.T) {
	rows := make([][]float64, 64)
	for i := range rows {
		rows[i] = []float64{float64(i), float64(i % 7)}
	}
	s := newTestSpace(t, rows)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < len(rows); i++ {
				for j := 0; j < len(rows); j++ {
					d, err := s.Distance(i, j)
					assert.NoError(t, err)
					want, err := metric.Euclidean{}.Distance(rows[i], rows[j])
					assert.NoError(t, err)
					assert.Equal(t, want, d)
				}
			}
		}()
	}
	wg.Wait()
}
