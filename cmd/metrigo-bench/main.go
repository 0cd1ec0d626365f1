package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/metrigo"
	"github.com/hupe1980/metrigo/catalog"
	"github.com/hupe1980/metrigo/dataset"
	"github.com/hupe1980/metrigo/metric"
	"github.com/hupe1980/metrigo/search"
	"github.com/hupe1980/metrigo/testutil"
)

func main() {
	log.SetFlags(0)

	benchCmd := flag.NewFlagSet("bench", flag.ExitOnError)
	benchData := registerDataFlags(benchCmd)
	benchQueries := benchCmd.Int("queries", 100, "Number of queries")
	benchK := benchCmd.Int("k", 10, "Number of neighbors per query")
	benchAlgorithm := benchCmd.String("algorithm", string(metrigo.AlgorithmDepthFirst), "Search algorithm (depth-first, best-first, repeated-range)")
	benchTolerance := benchCmd.Float64("tolerance", 0, "Approximation tolerance (0 = exact)")
	benchMinCard := benchCmd.Int("min-cardinality", 8, "Stop splitting clusters below this size")
	benchWorkers := benchCmd.Int("workers", 0, "Worker count (0 = GOMAXPROCS)")

	buildCmd := flag.NewFlagSet("build", flag.ExitOnError)
	buildData := registerDataFlags(buildCmd)
	buildMinCard := buildCmd.Int("min-cardinality", 8, "Stop splitting clusters below this size")
	buildWorkers := buildCmd.Int("workers", 0, "Worker count (0 = GOMAXPROCS)")
	buildCatalog := buildCmd.String("catalog", "./snapshots", "Catalog directory")
	buildName := buildCmd.String("name", "", "Snapshot file name (default tree-<unix>.mgo)")

	searchCmd := flag.NewFlagSet("search", flag.ExitOnError)
	searchData := registerDataFlags(searchCmd)
	searchCatalog := searchCmd.String("catalog", "./snapshots", "Catalog directory holding CURRENT")
	searchSnapshot := searchCmd.String("snapshot", "", "Snapshot file (overrides -catalog)")
	searchQuery := searchCmd.String("query", "", "Comma-separated query coordinates")
	searchK := searchCmd.Int("k", 10, "Number of neighbors")
	searchAlgorithm := searchCmd.String("algorithm", string(metrigo.AlgorithmDepthFirst), "Search algorithm (depth-first, best-first, repeated-range)")
	searchTolerance := searchCmd.Float64("tolerance", 0, "Approximation tolerance (0 = exact)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "bench":
		benchCmd.Parse(os.Args[2:])
		runBench(benchData, *benchQueries, *benchK, *benchAlgorithm, *benchTolerance, *benchMinCard, *benchWorkers)
	case "build":
		buildCmd.Parse(os.Args[2:])
		runBuild(buildData, *buildMinCard, *buildWorkers, *buildCatalog, *buildName)
	case "search":
		searchCmd.Parse(os.Args[2:])
		runSearch(searchData, *searchCatalog, *searchSnapshot, *searchQuery, *searchK, *searchAlgorithm, *searchTolerance)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("metrigo-bench - benchmark harness for metric-space search")
	fmt.Println("\nUsage:")
	fmt.Println("  metrigo-bench bench   - Build a tree over generated data, measure latency and recall")
	fmt.Println("  metrigo-bench build   - Build a tree, save a snapshot and publish it to a catalog")
	fmt.Println("  metrigo-bench search  - Load a snapshot and run a single query")
	fmt.Println("\nExamples:")
	fmt.Println("  metrigo-bench bench -vectors 10000 -dim 16 -queries 200 -k 10")
	fmt.Println("  metrigo-bench bench -tolerance 0.1 -algorithm best-first")
	fmt.Println("  metrigo-bench build -vectors 10000 -catalog ./snapshots")
	fmt.Println("  metrigo-bench search -catalog ./snapshots -k 5")
}

// dataFlags describe the generated dataset. The data is fully determined
// by the seed, so build and search invocations with the same flags agree
// on the items backing a snapshot.
type dataFlags struct {
	vectors  int
	dim      int
	clusters int
	spread   float64
	seed     int64
}

func registerDataFlags(fs *flag.FlagSet) *dataFlags {
	df := &dataFlags{}
	fs.IntVar(&df.vectors, "vectors", 10000, "Number of items to generate")
	fs.IntVar(&df.dim, "dim", 16, "Vector dimension")
	fs.IntVar(&df.clusters, "clusters", 16, "Number of clusters in the generated data")
	fs.Float64Var(&df.spread, "spread", 0.15, "Per-coordinate cluster noise")
	fs.Int64Var(&df.seed, "seed", 42, "RNG seed")
	return df
}

func (df *dataFlags) generate() [][]float64 {
	return testutil.NewRNG(df.seed).ClusteredVectors(df.vectors, df.dim, df.clusters, df.spread)
}

// queries are drawn with a shifted seed so they never replay the dataset
// sequence.
func (df *dataFlags) queries(rows [][]float64, num int) [][]float64 {
	return testutil.NewRNG(df.seed + 1).PerturbedQueries(rows, num, df.spread/2)
}

func runBench(df *dataFlags, numQueries, k int, algorithm string, tolerance float64, minCard, workers int) {
	ctx := context.Background()

	fmt.Printf("Generating %d items (dim=%d, clusters=%d, seed=%d)...\n", df.vectors, df.dim, df.clusters, df.seed)
	rows := df.generate()
	qs := df.queries(rows, numQueries)

	fmt.Println("Building tree...")
	buildStart := time.Now()
	mg, err := metrigo.Euclidean(rows).
		MinCardinality(minCard).
		Workers(workers).
		Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()
	buildTime := time.Since(buildStart)

	ts := mg.Stats().Tree
	fmt.Printf("Built in %v: height=%d nodes=%d leaves=%d rootRadius=%.4f meanLFD=%.2f\n",
		buildTime.Round(time.Millisecond), ts.Height, ts.NodeCount, ts.LeafCount, ts.RootRadius, ts.MeanLFD)

	fmt.Println("Computing ground truth...")
	truth := make([][]metrigo.Result, len(qs))
	for i, q := range qs {
		if truth[i], err = search.Linear(ctx, mg.Space(), q, k); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println("Warming up...")
	for i := 0; i < 10 && i < len(qs); i++ {
		if _, err := knn(ctx, mg, qs[i], k, algorithm, tolerance); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println("Benchmarking search...")
	latencies := make([]float64, len(qs))
	var recallSum float64

	benchStart := time.Now()
	for i, q := range qs {
		qStart := time.Now()
		res, err := knn(ctx, mg, q, k, algorithm, tolerance)
		if err != nil {
			log.Fatal(err)
		}
		latencies[i] = float64(time.Since(qStart).Nanoseconds()) / 1e6
		recallSum += testutil.ComputeRecall(truth[i], res)
	}
	total := time.Since(benchStart)

	// Same workload once more through the shared worker pool.
	batchStart := time.Now()
	batch := mg.BatchKNNSearch(ctx, qs, k, func(o *metrigo.KNNSearchOptions) {
		o.Algorithm = metrigo.Algorithm(algorithm)
		o.Tolerance = tolerance
	})
	batchTotal := time.Since(batchStart)
	for _, br := range batch {
		if br.Err != nil {
			log.Fatal(br.Err)
		}
	}

	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	sort.Float64s(latencies)

	fmt.Println("\n=== Benchmark Results ===")
	fmt.Printf("Queries: %d, k=%d, algorithm=%s, tolerance=%g\n", len(qs), k, algorithm, tolerance)
	fmt.Printf("QPS: %.1f sequential, %.1f batched (%d workers)\n",
		float64(len(qs))/total.Seconds(), float64(len(qs))/batchTotal.Seconds(), workers)
	fmt.Printf("Latency: mean=%.3fms stddev=%.3fms p50=%.3fms p99=%.3fms\n",
		stat.Mean(latencies, nil),
		stat.StdDev(latencies, nil),
		stat.Quantile(0.50, stat.Empirical, latencies, nil),
		stat.Quantile(0.99, stat.Empirical, latencies, nil))
	fmt.Printf("Recall@%d: %.4f\n", k, recallSum/float64(len(qs)))

	sp := mg.Stats().Space
	fmt.Printf("Distance computations: %d\n", sp.Computations)
	fmt.Printf("Cache: entries=%d hits=%d misses=%d hitRate=%.2f%%\n",
		sp.Cache.Entries, sp.Cache.Hits, sp.Cache.Misses, sp.Cache.HitRate()*100)
}

func runBuild(df *dataFlags, minCard, workers int, catalogDir, name string) {
	ctx := context.Background()

	fmt.Printf("Generating %d items (dim=%d, clusters=%d, seed=%d)...\n", df.vectors, df.dim, df.clusters, df.seed)
	rows := df.generate()

	buildStart := time.Now()
	mg, err := metrigo.Euclidean(rows).
		MinCardinality(minCard).
		Workers(workers).
		Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()
	buildTime := time.Since(buildStart)

	if name == "" {
		name = fmt.Sprintf("tree-%d.mgo", time.Now().Unix())
	}

	if err := os.MkdirAll(catalogDir, 0o755); err != nil {
		log.Fatal(err)
	}
	if err := mg.SaveSnapshot(filepath.Join(catalogDir, name)); err != nil {
		log.Fatal(err)
	}

	store, err := catalog.Open(catalogDir)
	if err != nil {
		log.Fatal(err)
	}

	ts := mg.Stats().Tree
	version, err := store.Publish(catalog.Entry{
		Snapshot: name,
		Summary: catalog.Summary{
			Metric:      metric.Euclidean{}.Name(),
			Cardinality: ts.Cardinality,
			Height:      ts.Height,
			NodeCount:   ts.NodeCount,
			LeafCount:   ts.LeafCount,
			RootRadius:  ts.RootRadius,
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Built %d items in %v\n", len(rows), buildTime.Round(time.Millisecond))
	fmt.Printf("Published %s as version %d in %s\n", name, version, catalogDir)
}

func runSearch(df *dataFlags, catalogDir, snapshotPath, queryCSV string, k int, algorithm string, tolerance float64) {
	ctx := context.Background()

	rows := df.generate()

	path := snapshotPath
	if path == "" {
		store, err := catalog.Open(catalogDir)
		if err != nil {
			log.Fatal(err)
		}
		entry, err := store.Current()
		if err != nil {
			log.Fatal(err)
		}
		path = store.Path(entry)
		fmt.Printf("Using snapshot %s (version %d)\n", entry.Snapshot, entry.Version)
	}

	mg, err := metrigo.LoadSnapshot(path, dataset.Slice[[]float64](rows), metric.Euclidean{})
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()

	var query []float64
	if queryCSV == "" {
		fmt.Println("No -query given; using a perturbed dataset row")
		query = df.queries(rows, 1)[0]
	} else {
		if query, err = parseQuery(queryCSV, df.dim); err != nil {
			log.Fatal(err)
		}
	}

	start := time.Now()
	res, err := knn(ctx, mg, query, k, algorithm, tolerance)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Found %d neighbors in %v:\n", len(res), time.Since(start).Round(time.Microsecond))
	for _, r := range res {
		fmt.Printf("  id=%-8d distance=%.6f\n", r.ID, r.Distance)
	}
}

func knn(ctx context.Context, mg *metrigo.Metrigo[[]float64], query []float64, k int, algorithm string, tolerance float64) ([]metrigo.Result, error) {
	return mg.KNNSearch(ctx, query, k, func(o *metrigo.KNNSearchOptions) {
		o.Algorithm = metrigo.Algorithm(algorithm)
		o.Tolerance = tolerance
	})
}

func parseQuery(s string, dim int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != dim {
		return nil, fmt.Errorf("query has %d coordinates, want %d", len(parts), dim)
	}

	q := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %d: %w", i, err)
		}
		q[i] = v
	}

	return q, nil
}
