package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/metrigo/search"
)

// RNG is a seeded random source for reproducible datasets.
// It is safe for concurrent use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the source to its initial seed so the same sequence
// can be replayed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the seed the source was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformVectors generates num vectors of the given dimension with
// coordinates in [0, 1). All rows share one backing array.
func (r *RNG) UniformVectors(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	rows := make([][]float64, num)

	for i := range num {
		row := data[i*dim : (i+1)*dim]
		for j := range row {
			row[j] = r.rand.Float64()
		}
		rows[i] = row
	}

	return rows
}

// UniformRangeVectors generates vectors with coordinates in [-1, 1).
func (r *RNG) UniformRangeVectors(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	rows := make([][]float64, num)

	for i := range num {
		row := data[i*dim : (i+1)*dim]
		for j := range row {
			row[j] = r.rand.Float64()*2 - 1
		}
		rows[i] = row
	}

	return rows
}

// GaussianVectors generates vectors with standard normal coordinates.
func (r *RNG) GaussianVectors(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	rows := make([][]float64, num)

	for i := range num {
		row := data[i*dim : (i+1)*dim]
		for j := range row {
			row[j] = r.rand.NormFloat64()
		}
		rows[i] = row
	}

	return rows
}

// UnitVectors generates L2-normalized vectors. Gaussian coordinates
// followed by normalization give a uniform angular distribution on the
// hypersphere, which is what cosine benchmarks want.
func (r *RNG) UnitVectors(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	rows := make([][]float64, num)

	for i := range num {
		row := data[i*dim : (i+1)*dim]
		var norm float64
		for j := range row {
			v := r.rand.NormFloat64()
			row[j] = v
			norm += v * v
		}

		if norm == 0 {
			norm = 1
		}

		inv := 1 / math.Sqrt(norm)
		for j := range row {
			row[j] *= inv
		}
		rows[i] = row
	}

	return rows
}

// ClusteredVectors generates vectors grouped around random unit-vector
// centroids. spread is the per-coordinate Gaussian noise; smaller values
// give tighter clusters and a lower local fractal dimension.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float64) [][]float64 {
	// UnitVectors takes the lock itself, so draw the centroids before
	// locking here.
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	rows := make([][]float64, num)

	for i := range num {
		centroid := centroids[i%clusters]
		row := data[i*dim : (i+1)*dim]

		for j := range dim {
			row[j] = centroid[j] + r.rand.NormFloat64()*spread
		}
		rows[i] = row
	}

	return rows
}

// PerturbedQueries draws num rows from the dataset and adds Gaussian
// noise scaled by scale. The resulting workload lands near existing
// items, where pruning bounds are tightest.
func (r *RNG) PerturbedQueries(rows [][]float64, num int, scale float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	queries := make([][]float64, num)
	for i := range num {
		src := rows[r.rand.Intn(len(rows))]
		q := make([]float64, len(src))
		for j, v := range src {
			q[j] = v + r.rand.NormFloat64()*scale
		}
		queries[i] = q
	}

	return queries
}

// Words generates random lowercase strings with lengths in
// [minLen, maxLen]. Pass minLen == maxLen for the fixed-length strings
// Hamming distance requires.
func (r *RNG) Words(num, minLen, maxLen int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	words := make([]string, num)
	buf := make([]byte, maxLen)

	for i := range num {
		n := minLen
		if maxLen > minLen {
			n += r.rand.Intn(maxLen - minLen + 1)
		}
		for j := 0; j < n; j++ {
			buf[j] = byte('a' + r.rand.Intn(26))
		}
		words[i] = string(buf[:n])
	}

	return words
}

// ComputeRecall computes recall@k of approximate results against exact
// ground truth, where k is the shorter of the two lists.
func ComputeRecall(groundTruth, approximate []search.Result) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truth := make(map[int]struct{}, k)
	for i := range k {
		truth[groundTruth[i].ID] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truth[r.ID]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
