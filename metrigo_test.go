package metrigo

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metrigo/dataset"
	"github.com/hupe1980/metrigo/metric"
	"github.com/hupe1980/metrigo/search"
	"github.com/hupe1980/metrigo/snapshot"
	"github.com/hupe1980/metrigo/testutil"
)

// sixPoints is two well-separated groups of three points each.
var sixPoints = [][]float64{
	{0, 0}, {1, 0}, {0, 1},
	{10, 10}, {11, 10}, {10, 11},
}

func newTestEngine(t *testing.T) *Metrigo[[]float64] {
	t.Helper()

	mg, err := Euclidean(sixPoints).MinCardinality(2).Build(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { _ = mg.Close() })

	return mg
}

func TestKNNSearch(t *testing.T) {
	mg := newTestEngine(t)

	res, err := mg.KNNSearch(context.Background(), []float64{0.5, 0.5}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)

	// (0.5, 0.5) is equidistant from items 0, 1 and 2; the lowest id wins.
	assert.Equal(t, 0, res[0].ID)
	assert.Equal(t, math.Sqrt(0.5), res[0].Distance)
}

func TestKNNSearchAlgorithms(t *testing.T) {
	mg := newTestEngine(t)

	want, err := mg.KNNSearch(context.Background(), []float64{0.5, 0.5}, 3)
	require.NoError(t, err)
	require.Len(t, want, 3)

	for _, algo := range []Algorithm{AlgorithmDepthFirst, AlgorithmBestFirst, AlgorithmRepeatedRange} {
		got, err := mg.KNNSearch(context.Background(), []float64{0.5, 0.5}, 3, func(o *KNNSearchOptions) {
			o.Algorithm = algo
		})
		require.NoError(t, err, "algo=%s", algo)
		assert.Equal(t, want, got, "algo=%s", algo)
	}
}

func TestKNNSearchMatchesLinear(t *testing.T) {
	ctx := context.Background()

	rng := testutil.NewRNG(4711)
	rows := rng.ClusteredVectors(200, 8, 4, 0.15)

	mg, err := Euclidean(rows).MinCardinality(4).Build(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mg.Close() })

	for _, q := range rng.PerturbedQueries(rows, 20, 0.05) {
		want, err := search.Linear(ctx, mg.Space(), q, 10)
		require.NoError(t, err)

		got, err := mg.KNNSearch(ctx, q, 10)
		require.NoError(t, err)

		assert.Equal(t, want, got)
		assert.InDelta(t, 1.0, testutil.ComputeRecall(want, got), 1e-12)
	}
}

func TestKNNSearchInvalidK(t *testing.T) {
	mg := newTestEngine(t)

	_, err := mg.KNNSearch(context.Background(), []float64{0, 0}, 7)

	var ike *InvalidKError
	require.ErrorAs(t, err, &ike)
	assert.Equal(t, 7, ike.K)
	assert.Equal(t, 6, ike.Cardinality)
}

func TestKNNSearchApprox(t *testing.T) {
	mg := newTestEngine(t)

	var info SearchInfo

	res, err := mg.KNNSearchApprox(context.Background(), []float64{0.5, 0.5}, 2, 0.25, func(o *KNNSearchOptions) {
		o.Info = &info
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, info.Approx)

	// The true 2nd-nearest distance is sqrt(0.5); the approximate one stays
	// within the (1+tolerance) bound.
	assert.LessOrEqual(t, res[1].Distance, 1.25*math.Sqrt(0.5)+1e-12)
}

func TestKNNSearchFilter(t *testing.T) {
	mg := newTestEngine(t)

	res, err := mg.KNNSearch(context.Background(), []float64{0, 0}, 2, func(o *KNNSearchOptions) {
		o.Filter = FilterFunc(func(id int) bool { return id >= 3 })
	})
	require.NoError(t, err)
	require.Len(t, res, 2)

	// Only the far group passes the filter.
	assert.Equal(t, 3, res[0].ID)
}

func TestKNNSearchInfoCounters(t *testing.T) {
	mg := newTestEngine(t)

	var info SearchInfo

	_, err := mg.KNNSearch(context.Background(), []float64{0.5, 0.5}, 1, func(o *KNNSearchOptions) {
		o.Info = &info
	})
	require.NoError(t, err)

	assert.Greater(t, info.ClustersVisited, 0)
	assert.Greater(t, info.ClustersPruned, 0) // the far group never gets scanned
	assert.Greater(t, info.ItemsScanned, 0)
}

func TestRangeSearch(t *testing.T) {
	mg := newTestEngine(t)

	res, err := mg.RangeSearch(context.Background(), []float64{0.5, 0.5}, 1.0)
	require.NoError(t, err)
	require.Len(t, res, 3)

	for i, r := range res {
		assert.Equal(t, i, r.ID)
		assert.InDelta(t, math.Sqrt(0.5), r.Distance, 1e-12)
	}
}

func TestRangeSearchEmpty(t *testing.T) {
	mg := newTestEngine(t)

	res, err := mg.RangeSearch(context.Background(), []float64{5, 5}, 0.5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestRangeSearchNegativeRadius(t *testing.T) {
	mg := newTestEngine(t)

	_, err := mg.RangeSearch(context.Background(), []float64{0, 0}, -1)
	assert.ErrorIs(t, err, search.ErrNegativeRadius)
}

func TestBatchKNNSearchIsolation(t *testing.T) {
	boom := errors.New("boom")

	m := metric.New("failing", func(a, b []float64) (float64, error) {
		if a[0] == 999 || b[0] == 999 {
			return 0, boom
		}

		return metric.Euclidean{}.Distance(a, b)
	})

	collector := &BasicMetricsCollector{}

	mg, err := New[[]float64](dataset.Slice[[]float64](sixPoints), m).
		MinCardinality(2).
		Metrics(collector).
		Build(context.Background())
	require.NoError(t, err)
	defer mg.Close()

	queries := [][]float64{{0, 0}, {999, 0}, {10, 10}}

	results := mg.BatchKNNSearch(context.Background(), queries, 1)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, 0, results[0].Neighbors[0].ID)

	var de *DistanceError
	assert.ErrorAs(t, results[1].Err, &de)
	assert.ErrorIs(t, results[1].Err, boom)

	require.NoError(t, results[2].Err)
	assert.Equal(t, 3, results[2].Neighbors[0].ID)

	stats := collector.GetStats()
	assert.Equal(t, int64(1), stats.BatchCount)
	assert.Equal(t, int64(3), stats.BatchQueries)
	assert.Equal(t, int64(1), stats.BatchFailed)
}

func TestBatchRangeSearch(t *testing.T) {
	mg := newTestEngine(t)

	queries := [][]float64{{0.5, 0.5}, {10.5, 10.5}}

	results := mg.BatchRangeSearch(context.Background(), queries, 1.0)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Len(t, results[0].Neighbors, 3)
	assert.Len(t, results[1].Neighbors, 3)
	assert.Equal(t, 0, results[0].Neighbors[0].ID)
	assert.Equal(t, 3, results[1].Neighbors[0].ID)
}

func TestClosedEngine(t *testing.T) {
	mg := newTestEngine(t)
	require.NoError(t, mg.Close())
	require.NoError(t, mg.Close()) // idempotent

	_, err := mg.KNNSearch(context.Background(), []float64{0, 0}, 1)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = mg.RangeSearch(context.Background(), []float64{0, 0}, 1)
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, mg.Validate(context.Background()), ErrClosed)
	assert.ErrorIs(t, mg.WriteCSV(&bytes.Buffer{}), ErrClosed)
	assert.ErrorIs(t, mg.SaveSnapshot(filepath.Join(t.TempDir(), "tree.mgo")), ErrClosed)
	assert.ErrorIs(t, mg.WriteSnapshot(&bytes.Buffer{}), ErrClosed)

	for _, br := range mg.BatchKNNSearch(context.Background(), [][]float64{{0, 0}, {1, 1}}, 1) {
		assert.ErrorIs(t, br.Err, ErrClosed)
	}
}

func TestCloseNil(t *testing.T) {
	var mg *Metrigo[[]float64]
	assert.NoError(t, mg.Close())
}

func TestAccessors(t *testing.T) {
	mg := newTestEngine(t)

	require.NotNil(t, mg.Tree())
	require.NotNil(t, mg.Space())
	assert.Equal(t, 6, mg.Tree().Cardinality())
	assert.Equal(t, 6, mg.Space().Len())
	assert.Same(t, mg.Space(), mg.Tree().Space())
}

func TestStats(t *testing.T) {
	mg := newTestEngine(t)

	stats := mg.Stats()
	assert.Equal(t, 6, stats.Tree.Cardinality)
	assert.Equal(t, 7, stats.Tree.NodeCount)
	assert.Equal(t, 4, stats.Tree.LeafCount)
	assert.Equal(t, 2, stats.Tree.Height)
	assert.Greater(t, stats.Space.Computations, int64(0))
}

func TestValidate(t *testing.T) {
	mg := newTestEngine(t)
	assert.NoError(t, mg.Validate(context.Background()))
}

func TestWriteCSV(t *testing.T) {
	mg := newTestEngine(t)

	var buf bytes.Buffer
	require.NoError(t, mg.WriteCSV(&buf))

	// Header plus one row per cluster.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, mg.Stats().Tree.NodeCount+1)
}

func TestSnapshotRoundTrip(t *testing.T) {
	mg := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "tree.mgo")
	require.NoError(t, mg.SaveSnapshot(path))

	restored, err := LoadSnapshot(path, dataset.Slice[[]float64](sixPoints), metric.Euclidean{})
	require.NoError(t, err)
	defer restored.Close()

	require.NoError(t, restored.Validate(context.Background()))

	want, err := mg.KNNSearch(context.Background(), []float64{0.5, 0.5}, 3)
	require.NoError(t, err)

	got, err := restored.KNNSearch(context.Background(), []float64{0.5, 0.5}, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadSnapshotMetricMismatch(t *testing.T) {
	mg := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "tree.mgo")
	require.NoError(t, mg.SaveSnapshot(path))

	_, err := LoadSnapshot(path, dataset.Slice[[]float64](sixPoints), metric.Manhattan{})
	assert.ErrorIs(t, err, snapshot.ErrMismatch)
}

func TestWriteSnapshot(t *testing.T) {
	mg := newTestEngine(t)

	var buf bytes.Buffer
	require.NoError(t, mg.WriteSnapshot(&buf))

	snap, err := snapshot.Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, "euclidean", snap.Fingerprint.Metric)
	assert.Equal(t, 6, snap.Fingerprint.Cardinality)
}

func TestMetricsCollector(t *testing.T) {
	collector := &BasicMetricsCollector{}

	mg, err := Euclidean(sixPoints).
		MinCardinality(2).
		Metrics(collector).
		Build(context.Background())
	require.NoError(t, err)
	defer mg.Close()

	_, err = mg.KNNSearch(context.Background(), []float64{0, 0}, 2)
	require.NoError(t, err)

	_, err = mg.KNNSearch(context.Background(), []float64{0, 0}, 99)
	require.Error(t, err)

	_, err = mg.RangeSearch(context.Background(), []float64{0, 0}, 1)
	require.NoError(t, err)

	require.NoError(t, mg.SaveSnapshot(filepath.Join(t.TempDir(), "tree.mgo")))

	stats := collector.GetStats()
	assert.Equal(t, int64(1), stats.BuildCount)
	assert.Equal(t, int64(0), stats.BuildErrors)
	assert.Equal(t, int64(2), stats.KNNCount)
	assert.Equal(t, int64(1), stats.KNNErrors)
	assert.Equal(t, int64(1), stats.RangeCount)
	assert.Equal(t, int64(0), stats.RangeErrors)
	assert.Equal(t, int64(1), stats.SaveCount)
	assert.GreaterOrEqual(t, stats.KNNAvgNanos, int64(0))
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mg, err := Euclidean(sixPoints).
		MinCardinality(2).
		Logger(logger).
		Build(context.Background())
	require.NoError(t, err)
	defer mg.Close()

	_, err = mg.KNNSearch(context.Background(), []float64{0, 0}, 1)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "build completed")
	assert.Contains(t, out, "knn search completed")
}
