package space

import (
	"math"
	"sync/atomic"

	"github.com/hupe1980/metrigo/dataset"
	"github.com/hupe1980/metrigo/metric"
)

// Options configures a Space.
type Options struct {
	// CacheMaxEntries bounds the distance cache. <= 0 means unbounded.
	CacheMaxEntries int

	// DisableCache turns pairwise memoization off entirely. Useful for
	// cheap metrics where the map overhead exceeds recomputation.
	DisableCache bool
}

// DefaultOptions holds the defaults for a Space.
var DefaultOptions = Options{
	CacheMaxEntries: 0,
	DisableCache:    false,
}

// Space binds a dataset to a distance function and is the sole source
// of truth about distances between items. All distance traffic from
// construction and search flows through it, so its counters reflect the
// true metric workload.
type Space[I any] struct {
	data         dataset.Dataset[I]
	metric       metric.Metric[I]
	cache        *Cache
	computations atomic.Int64
}

// Stats is a point-in-time snapshot of space counters.
type Stats struct {
	// Computations is the number of metric evaluations performed.
	Computations int64
	// Cache holds the distance-cache counters; zero when caching is off.
	Cache CacheStats
}

// New creates a Space over data and m.
func New[I any](data dataset.Dataset[I], m metric.Metric[I], optFns ...func(o *Options)) (*Space[I], error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if data == nil {
		return nil, ErrNilDataset
	}
	if m == nil {
		return nil, ErrNilMetric
	}
	if data.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if int64(data.Len()) > int64(math.MaxUint32) {
		return nil, ErrDatasetTooLarge
	}

	s := &Space[I]{data: data, metric: m}
	if !opts.DisableCache {
		s.cache = NewCache(opts.CacheMaxEntries)
	}
	return s, nil
}

// Len returns the number of items in the space.
func (s *Space[I]) Len() int { return s.data.Len() }

// At returns the item with identifier i.
func (s *Space[I]) At(i int) I { return s.data.At(i) }

// Metric returns the distance function the space was built with.
func (s *Space[I]) Metric() metric.Metric[I] { return s.metric }

// Distance returns d(i, j), serving cached values when possible.
// d(i, i) is always 0 and costs no computation. A raced uncached pair
// may be computed twice; it is stored at most once.
func (s *Space[I]) Distance(i, j int) (float64, error) {
	n := s.data.Len()
	if i < 0 || i >= n {
		return 0, &ErrIDOutOfRange{ID: i, Len: n}
	}
	if j < 0 || j >= n {
		return 0, &ErrIDOutOfRange{ID: j, Len: n}
	}
	if i == j {
		return 0, nil
	}

	if s.cache != nil {
		if d, ok := s.cache.Get(i, j); ok {
			return d, nil
		}
	}

	d, err := s.compute(s.data.At(i), s.data.At(j), i, j)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		s.cache.PutIfAbsent(i, j, d)
	}
	return d, nil
}

// DistanceToQuery returns the distance from an external query item to
// dataset item i. Query items have no identifier, so these distances
// are never cached.
func (s *Space[I]) DistanceToQuery(q I, i int) (float64, error) {
	n := s.data.Len()
	if i < 0 || i >= n {
		return 0, &ErrIDOutOfRange{ID: i, Len: n}
	}
	return s.compute(q, s.data.At(i), i, -1)
}

// Distances returns d(from, id) for every id in ids, in order.
func (s *Space[I]) Distances(from int, ids []int) ([]float64, error) {
	out := make([]float64, len(ids))
	for n, id := range ids {
		d, err := s.Distance(from, id)
		if err != nil {
			return nil, err
		}
		out[n] = d
	}
	return out, nil
}

// Stats returns a snapshot of the space counters.
func (s *Space[I]) Stats() Stats {
	st := Stats{Computations: s.computations.Load()}
	if s.cache != nil {
		st.Cache = s.cache.Stats()
	}
	return st
}

// Cache returns the distance cache, or nil when caching is disabled.
func (s *Space[I]) Cache() *Cache { return s.cache }

func (s *Space[I]) compute(a, b I, i, j int) (float64, error) {
	d, err := s.metric.Distance(a, b)
	if err != nil {
		return 0, &ErrDistanceComputation{I: i, J: j, cause: err}
	}
	s.computations.Add(1)
	if d < 0 || math.IsNaN(d) {
		return 0, &ErrInvalidMetric{Metric: s.metric.Name(), I: i, J: j, Value: d}
	}
	return d, nil
}
