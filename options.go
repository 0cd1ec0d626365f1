package metrigo

import (
	"log/slog"

	"github.com/hupe1980/metrigo/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	resource         *resource.Controller
	workers          int
	cacheMaxEntries  int
	disableCache     bool
}

// Option configures constructor and load behavior.
//
// Today options primarily exist to avoid exploding the API surface
// (e.g. loader-specific constructor variants); the fluent builder
// forwards to them.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &metrigo.BasicMetricsCollector{}
//	mg, _ := metrigo.LoadSnapshot(path, data, m, metrigo.WithMetricsCollector(metrics))
//	// ... use mg ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.KNNCount, stats.KNNAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := metrigo.NewJSONLogger(slog.LevelInfo)
//	mg, err := metrigo.LoadSnapshot(path, data, m, metrigo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResource configures a resource controller that bounds memory use and
// snapshot I/O throughput. Pass nil to run unconstrained.
func WithResource(rc *resource.Controller) Option {
	return func(o *options) {
		o.resource = rc
	}
}

// WithWorkers configures the worker count for tree construction and batch
// queries. Values <= 0 select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithCacheMaxEntries bounds the pairwise distance cache of the underlying
// space. Values <= 0 leave the cache unbounded.
func WithCacheMaxEntries(n int) Option {
	return func(o *options) {
		o.cacheMaxEntries = n
	}
}

// WithDisableCache turns distance memoization off entirely. Useful for
// cheap metrics where the cache overhead exceeds recomputation.
func WithDisableCache() Option {
	return func(o *options) {
		o.disableCache = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
