package cluster

import (
	"math"

	"github.com/hupe1980/metrigo/space"
)

// exhaustiveCenterLimit is the cardinality up to which center selection
// considers every member. Above it a ~sqrt(cardinality) sample of evenly
// spaced members keeps selection subquadratic.
const exhaustiveCenterLimit = 128

// centerSample returns the deterministic subset of items considered for
// center selection.
func centerSample(items []int) []int {
	card := len(items)
	if card <= exhaustiveCenterLimit {
		return items
	}

	size := int(math.Sqrt(float64(card)))
	stride := card / size

	sample := make([]int, 0, size+1)
	for pos := 0; pos < card; pos += stride {
		sample = append(sample, items[pos])
	}

	return sample
}

// selectCenter picks the geometric median of the sample: the sampled member
// with the smallest summed distance to the rest of the sample. Ties break
// toward the lower item id.
func selectCenter[I any](s *space.Space[I], items []int) (int, error) {
	sample := centerSample(items)

	center := sample[0]
	bestSum := math.Inf(1)

	for _, candidate := range sample {
		sum := 0.0

		for _, other := range sample {
			d, err := s.Distance(candidate, other)
			if err != nil {
				return 0, err
			}

			sum += d
		}

		if sum < bestSum || (sum == bestSum && candidate < center) {
			center, bestSum = candidate, sum
		}
	}

	return center, nil
}

// farthestMember scans aligned distances for the member farthest from their
// common origin. Ties break toward the lower item id.
func farthestMember(items []int, dists []float64) (pole int, radius float64) {
	pole, radius = items[0], dists[0]

	for i := 1; i < len(items); i++ {
		if dists[i] > radius || (dists[i] == radius && items[i] < pole) {
			pole, radius = items[i], dists[i]
		}
	}

	return pole, radius
}

// localFractalDimension estimates how fast the member count grows with the
// radius around the center: log2(card / |members within radius/2|). Clusters
// where the count is degenerate (zero radius, nobody or everybody within the
// half radius) report 1.
func localFractalDimension(card int, radius float64, fromCenter []float64) float64 {
	if radius == 0 {
		return 1
	}

	half := radius / 2

	count := 0
	for _, d := range fromCenter {
		if d <= half {
			count++
		}
	}

	if count == 0 || count == card {
		return 1
	}

	return math.Log2(float64(card) / float64(count))
}
