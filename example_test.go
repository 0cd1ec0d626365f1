package metrigo_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/metrigo"
	"github.com/hupe1980/metrigo/dataset"
	"github.com/hupe1980/metrigo/metric"
)

// Example_euclidean demonstrates k-NN search over vectors.
func Example_euclidean() {
	ctx := context.Background()

	rows := [][]float64{
		{0, 0}, {1, 0}, {0, 1},
		{10, 10}, {11, 10}, {10, 11},
	}

	mg, err := metrigo.Euclidean(rows).
		MinCardinality(2).
		Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()

	results, err := mg.KNNSearch(ctx, []float64{0.5, 0.5}, 1)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("ID: %d, Distance: %.4f\n", results[0].ID, results[0].Distance)
	// Output: ID: 0, Distance: 0.7071
}

// Example_strings demonstrates nearest neighbor search under edit distance.
func Example_strings() {
	ctx := context.Background()

	words := []string{"gopher", "golfer", "golang", "kotlin"}

	mg, err := metrigo.Strings(words, metric.Levenshtein{}).Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()

	results, err := mg.KNNSearch(ctx, "gophers", 1)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s (distance %g)\n", words[results[0].ID], results[0].Distance)
	// Output: gopher (distance 1)
}

// Example_rangeSearch demonstrates finding everything within a radius.
func Example_rangeSearch() {
	ctx := context.Background()

	rows := [][]float64{
		{0, 0}, {1, 0}, {0, 1},
		{10, 10}, {11, 10}, {10, 11},
	}

	mg, err := metrigo.Euclidean(rows).MinCardinality(2).Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()

	results, err := mg.RangeSearch(ctx, []float64{0.5, 0.5}, 1.0)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range results {
		fmt.Println(r.ID)
	}
	// Output:
	// 0
	// 1
	// 2
}

// Example_fluentSearch demonstrates the fluent search API.
func Example_fluentSearch() {
	ctx := context.Background()

	rows := [][]float64{
		{0, 0}, {1, 0}, {0, 1},
		{10, 10}, {11, 10}, {10, 11},
	}

	mg, err := metrigo.Euclidean(rows).MinCardinality(2).Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()

	nearest, err := mg.Search([]float64{10.4, 10.4}).First(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Nearest: %d\n", nearest.ID)
	// Output: Nearest: 3
}

// Example_batch demonstrates batched queries on the engine's worker pool.
func Example_batch() {
	ctx := context.Background()

	rows := [][]float64{
		{0, 0}, {1, 0}, {0, 1},
		{10, 10}, {11, 10}, {10, 11},
	}

	mg, err := metrigo.Euclidean(rows).MinCardinality(2).Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()

	queries := [][]float64{{0.5, 0.5}, {10.5, 10.5}}

	for _, br := range mg.BatchKNNSearch(ctx, queries, 1) {
		if br.Err != nil {
			log.Fatal(br.Err)
		}
		fmt.Printf("query %d -> item %d\n", br.Index, br.Neighbors[0].ID)
	}
	// Output:
	// query 0 -> item 0
	// query 1 -> item 3
}

// Example_snapshot demonstrates persisting and restoring the tree topology.
func Example_snapshot() {
	ctx := context.Background()

	rows := [][]float64{
		{0, 0}, {1, 0}, {0, 1},
		{10, 10}, {11, 10}, {10, 11},
	}

	dir, err := os.MkdirTemp("", "metrigo")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	mg, err := metrigo.Euclidean(rows).MinCardinality(2).Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()

	path := filepath.Join(dir, "tree.mgo")
	if err := mg.SaveSnapshot(path); err != nil {
		log.Fatal(err)
	}

	// Restoring requires the same dataset and metric; only the topology is
	// stored.
	restored, err := metrigo.LoadSnapshot(path, dataset.Slice[[]float64](rows), metric.Euclidean{})
	if err != nil {
		log.Fatal(err)
	}
	defer restored.Close()

	results, err := restored.KNNSearch(ctx, []float64{0.5, 0.5}, 1)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("ID: %d\n", results[0].ID)
	// Output: ID: 0
}

// Example_stats demonstrates tree statistics.
func Example_stats() {
	ctx := context.Background()

	rows := [][]float64{
		{0, 0}, {1, 0}, {0, 1},
		{10, 10}, {11, 10}, {10, 11},
	}

	mg, err := metrigo.Euclidean(rows).MinCardinality(2).Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer mg.Close()

	stats := mg.Stats()
	fmt.Printf("cardinality: %d\n", stats.Tree.Cardinality)
	fmt.Printf("leaves: %d\n", stats.Tree.LeafCount)
	// Output:
	// cardinality: 6
	// leaves: 4
}
