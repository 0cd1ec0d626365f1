package cluster

import (
	"fmt"
	"runtime"
)

// Config controls tree construction. Start with [DefaultConfig] and override
// the fields you need. None of the fields affect the correctness of exact
// queries, only the shape of the tree and the parallelism of the build.
type Config struct {
	// MinCardinality stops partitioning once a cluster holds this many items
	// or fewer. Larger values give shallower trees with bigger leaves, which
	// trades pruning power for fewer tree levels per query.
	// Set to 0 to default to 1 (partition down to singletons). Must be >= 0.
	MinCardinality int

	// MinRadius stops partitioning clusters whose radius is below this value.
	// Useful when items closer than some resolution are equivalent for the
	// application. 0 disables the criterion. Must be >= 0. Default: 0.
	MinRadius float64

	// DuplicateTolerance stops partitioning clusters whose diameter bound
	// (twice the radius) is within this tolerance: every pair of members is
	// then provably within DuplicateTolerance of each other. The default of 0
	// still folds exact duplicates, since a zero-radius cluster cannot be
	// split. Must be >= 0. Default: 0.
	DuplicateTolerance float64

	// MaxDepth stops partitioning at this depth regardless of cardinality.
	// 0 means unbounded. Must be >= 0. Default: 0.
	MaxDepth int

	// Workers is the number of goroutines used to build the tree. Set to 0
	// to default to runtime.GOMAXPROCS(0). Must be >= 0. The resulting tree
	// does not depend on the worker count.
	Workers int
}

// DefaultConfig returns the configuration used when callers override nothing:
// partition down to singletons using all available CPUs.
func DefaultConfig() Config {
	return Config{
		MinCardinality: 1,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if c.MinCardinality < 0 {
		return fmt.Errorf("%w: MinCardinality must be >= 0, got %d", ErrInvalidConfig, c.MinCardinality)
	}

	if c.MinRadius < 0 {
		return fmt.Errorf("%w: MinRadius must be >= 0, got %g", ErrInvalidConfig, c.MinRadius)
	}

	if c.DuplicateTolerance < 0 {
		return fmt.Errorf("%w: DuplicateTolerance must be >= 0, got %g", ErrInvalidConfig, c.DuplicateTolerance)
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: MaxDepth must be >= 0, got %d", ErrInvalidConfig, c.MaxDepth)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: Workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	}

	return nil
}

// normalized resolves the zero-value defaults into concrete settings.
func (c Config) normalized() Config {
	if c.MinCardinality == 0 {
		c.MinCardinality = 1
	}

	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}

	return c
}
