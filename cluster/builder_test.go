package cluster

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metrigo/dataset"
	"github.com/hupe1980/metrigo/metric"
	"github.com/hupe1980/metrigo/space"
)

// sixPoints is two well-separated groups of three points each.
var sixPoints = [][]float64{
	{0, 0}, {1, 0}, {0, 1},
	{10, 10}, {11, 10}, {10, 11},
}

func newTestSpace(t *testing.T, rows [][]float64) *space.Space[[]float64] {
	t.Helper()

	s, err := space.New[[]float64](dataset.Slice[[]float64](rows), metric.Euclidean{})
	require.NoError(t, err)

	return s
}

func newTestTree(t *testing.T, rows [][]float64, cfg Config) *Tree[[]float64] {
	t.Helper()

	tree, err := Build(context.Background(), newTestSpace(t, rows), cfg)
	require.NoError(t, err)

	return tree
}

// lcgPoints generates a reproducible point set without pulling in a RNG.
func lcgPoints(n, dim int) [][]float64 {
	seed := uint64(42)

	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, dim)
		for j := range row {
			seed = seed*6364136223846793005 + 1442695040888963407
			row[j] = float64(seed>>11) / float64(1<<53)
		}

		rows[i] = row
	}

	return rows
}

func TestBuildSixPointScenario(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 2})

	require.Equal(t, 6, tree.Cardinality())
	assert.Equal(t, 2, tree.Height())
	assert.Equal(t, 7, tree.NodeCount())
	assert.Equal(t, 4, tree.LeafCount())

	root := tree.Root()
	require.False(t, root.IsLeaf())
	assert.Equal(t, 6, root.Cardinality())
	assert.Equal(t, 0, root.Depth())
	assert.InDelta(t, math.Sqrt(200), root.Radius(), 1e-12)

	// The geometric median of all six points is item 3, the two groups end
	// up on opposite sides, and the stable partition preserves id order.
	assert.Equal(t, 3, root.Center())
	assert.Equal(t, []int{0, 1, 2}, root.Left().Items())
	assert.Equal(t, []int{3, 4, 5}, root.Right().Items())

	for _, child := range []*Cluster{root.Left(), root.Right()} {
		require.False(t, child.IsLeaf())
		assert.Equal(t, 1, child.Depth())
		assert.InDelta(t, 1.0, child.Radius(), 1e-12)
		assert.Equal(t, 2, child.Left().Cardinality())
		assert.Equal(t, 1, child.Right().Cardinality())
		assert.True(t, child.Left().IsLeaf())
		assert.True(t, child.Right().IsLeaf())
	}

	require.NoError(t, tree.Validate(context.Background()))
}

func TestBuildDefaultConfigSingletonLeaves(t *testing.T) {
	tree := newTestTree(t, sixPoints, DefaultConfig())

	assert.Equal(t, 6, tree.LeafCount())
	assert.Equal(t, 11, tree.NodeCount())

	tree.Walk(func(c *Cluster) bool {
		if c.IsLeaf() {
			assert.Equal(t, 1, c.Cardinality())
			assert.Zero(t, c.Radius())
			assert.Equal(t, 1.0, c.LFD())
		}

		return true
	})

	require.NoError(t, tree.Validate(context.Background()))
}

func TestBuildIdempotentAcrossWorkers(t *testing.T) {
	rows := lcgPoints(200, 8)

	var reference *Tree[[]float64]

	for _, workers := range []int{1, 3, 8} {
		tree := newTestTree(t, rows, Config{MinCardinality: 1, Workers: workers})

		if reference == nil {
			reference = tree
			continue
		}

		assert.Equal(t, reference.Items(), tree.Items(), "workers=%d", workers)
		assert.Equal(t, reference.Records(), tree.Records(), "workers=%d", workers)
	}
}

func TestBuildSingleton(t *testing.T) {
	tree := newTestTree(t, [][]float64{{1, 2}}, DefaultConfig())

	root := tree.Root()
	assert.True(t, root.IsLeaf())
	assert.Equal(t, 1, root.Cardinality())
	assert.Equal(t, 0, root.Center())
	assert.Zero(t, root.Radius())
	assert.Equal(t, 1.0, root.LFD())
	assert.Equal(t, 0, tree.Height())
	assert.Equal(t, 1, tree.NodeCount())
	assert.Equal(t, 1, tree.LeafCount())
}

func TestBuildFoldsDuplicates(t *testing.T) {
	rows := [][]float64{{3, 3}, {3, 3}, {3, 3}, {3, 3}, {3, 3}}

	tree := newTestTree(t, rows, DefaultConfig())

	// A zero-radius pile cannot be split, even down to MinCardinality 1.
	root := tree.Root()
	assert.True(t, root.IsLeaf())
	assert.Equal(t, 5, root.Cardinality())
	assert.Zero(t, root.Radius())
	assert.Equal(t, 1.0, root.LFD())
}

func TestBuildDuplicateTolerance(t *testing.T) {
	rows := [][]float64{{0}, {0.001}, {10}, {10.001}}

	tree := newTestTree(t, rows, Config{MinCardinality: 1, DuplicateTolerance: 0.01})

	root := tree.Root()
	require.False(t, root.IsLeaf())
	assert.Equal(t, 3, tree.NodeCount())
	assert.Equal(t, 2, tree.LeafCount())

	left, right := root.Left(), root.Right()
	require.True(t, left.IsLeaf())
	require.True(t, right.IsLeaf())

	if left.Items()[0] == 0 {
		assert.Equal(t, []int{0, 1}, left.Items())
		assert.Equal(t, []int{2, 3}, right.Items())
	} else {
		assert.Equal(t, []int{2, 3}, left.Items())
		assert.Equal(t, []int{0, 1}, right.Items())
	}
}

func TestBuildMaxDepth(t *testing.T) {
	tree := newTestTree(t, lcgPoints(64, 2), Config{MinCardinality: 1, MaxDepth: 2})

	assert.LessOrEqual(t, tree.Height(), 2)
	assert.LessOrEqual(t, tree.LeafCount(), 4)

	tree.Walk(func(c *Cluster) bool {
		if c.Depth() == 2 {
			assert.True(t, c.IsLeaf())
		}

		return true
	})
}

func TestBuildMinRadius(t *testing.T) {
	tree := newTestTree(t, sixPoints, Config{MinCardinality: 1, MinRadius: 100})

	assert.True(t, tree.Root().IsLeaf())
	assert.Equal(t, 1, tree.NodeCount())
}

func TestBuildMetricFailure(t *testing.T) {
	boom := errors.New("boom")

	m := metric.New("failing", func(a, b []float64) (float64, error) {
		if a[0] >= 10 || b[0] >= 10 {
			return 0, boom
		}

		return metric.Euclidean{}.Distance(a, b)
	})

	s, err := space.New[[]float64](dataset.Slice[[]float64](sixPoints), m)
	require.NoError(t, err)

	tree, err := Build(context.Background(), s, DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var dce *space.ErrDistanceComputation
	assert.ErrorAs(t, err, &dce)

	assert.Nil(t, tree)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := Build(ctx, newTestSpace(t, sixPoints), DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, tree)
}

func TestBuildNilSpace(t *testing.T) {
	tree, err := Build[[]float64](context.Background(), nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilSpace)
	assert.Nil(t, tree)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "default", cfg: DefaultConfig(), ok: true},
		{name: "zero value", cfg: Config{}, ok: true},
		{name: "negative min cardinality", cfg: Config{MinCardinality: -1}},
		{name: "negative min radius", cfg: Config{MinRadius: -0.5}},
		{name: "negative duplicate tolerance", cfg: Config{DuplicateTolerance: -0.1}},
		{name: "negative max depth", cfg: Config{MaxDepth: -2}},
		{name: "negative workers", cfg: Config{Workers: -4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
