package metrigo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    knnCounter      prometheus.Counter
//	    searchHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordKNN(k int, duration time.Duration, err error) {
//	    p.knnCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
//
// Distance-computation and cache counters are not pushed through this
// interface; sample them from Stats(), which reads the space directly.
type MetricsCollector interface {
	// RecordBuild is called after tree construction.
	// cardinality is the dataset size, duration the total build time,
	// err is nil if successful.
	RecordBuild(cardinality int, duration time.Duration, err error)

	// RecordKNN is called after each k-NN search.
	// k is the number of neighbors requested, duration is the time taken,
	// err is nil if successful.
	RecordKNN(k int, duration time.Duration, err error)

	// RecordRange is called after each range search.
	RecordRange(duration time.Duration, err error)

	// RecordBatch is called after each query batch.
	// queries is the number of queries attempted, failed is the number that
	// failed, duration is the total wall time of the batch.
	RecordBatch(queries, failed int, duration time.Duration)

	// RecordSnapshotSave is called after each snapshot save.
	RecordSnapshotSave(duration time.Duration, err error)

	// RecordSnapshotLoad is called after each snapshot load.
	RecordSnapshotLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordKNN(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordRange(time.Duration, error)        {}
func (NoopMetricsCollector) RecordBatch(int, int, time.Duration)     {}
func (NoopMetricsCollector) RecordSnapshotSave(time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshotLoad(time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildTotalNanos atomic.Int64
	KNNCount        atomic.Int64
	KNNErrors       atomic.Int64
	KNNTotalNanos   atomic.Int64
	RangeCount      atomic.Int64
	RangeErrors     atomic.Int64
	RangeTotalNanos atomic.Int64
	BatchCount      atomic.Int64
	BatchQueries    atomic.Int64
	BatchFailed     atomic.Int64
	SaveCount       atomic.Int64
	SaveErrors      atomic.Int64
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(cardinality int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordKNN implements MetricsCollector.
func (b *BasicMetricsCollector) RecordKNN(k int, duration time.Duration, err error) {
	b.KNNCount.Add(1)
	b.KNNTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.KNNErrors.Add(1)
	}
}

// RecordRange implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRange(duration time.Duration, err error) {
	b.RangeCount.Add(1)
	b.RangeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RangeErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(queries, failed int, duration time.Duration) {
	b.BatchCount.Add(1)
	b.BatchQueries.Add(int64(queries))
	b.BatchFailed.Add(int64(failed))
}

// RecordSnapshotSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		KNNCount:      b.KNNCount.Load(),
		KNNErrors:     b.KNNErrors.Load(),
		KNNAvgNanos:   b.getAvgKNNNanos(),
		RangeCount:    b.RangeCount.Load(),
		RangeErrors:   b.RangeErrors.Load(),
		RangeAvgNanos: b.getAvgRangeNanos(),
		BatchCount:    b.BatchCount.Load(),
		BatchQueries:  b.BatchQueries.Load(),
		BatchFailed:   b.BatchFailed.Load(),
		SaveCount:     b.SaveCount.Load(),
		SaveErrors:    b.SaveErrors.Load(),
		LoadCount:     b.LoadCount.Load(),
		LoadErrors:    b.LoadErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgKNNNanos() int64 {
	count := b.KNNCount.Load()
	if count == 0 {
		return 0
	}
	return b.KNNTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgRangeNanos() int64 {
	count := b.RangeCount.Load()
	if count == 0 {
		return 0
	}
	return b.RangeTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount    int64
	BuildErrors   int64
	KNNCount      int64
	KNNErrors     int64
	KNNAvgNanos   int64
	RangeCount    int64
	RangeErrors   int64
	RangeAvgNanos int64
	BatchCount    int64
	BatchQueries  int64
	BatchFailed   int64
	SaveCount     int64
	SaveErrors    int64
	LoadCount     int64
	LoadErrors    int64
}
