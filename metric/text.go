package metric

import "fmt"

// Hamming computes the Hamming distance between equal-length strings:
// the number of positions at which the corresponding bytes differ.
type Hamming struct{}

func (Hamming) Name() string { return "hamming" }

func (Hamming) Distance(a, b string) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("metric: hamming distance requires equal lengths, got %d and %d", len(a), len(b))
	}
	var n int
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			n++
		}
	}
	return float64(n), nil
}

// Levenshtein computes the edit distance between strings: the minimum
// number of single-byte insertions, deletions, and substitutions needed
// to transform one into the other. Suited to sequence data of unequal
// lengths where Hamming does not apply.
type Levenshtein struct{}

func (Levenshtein) Name() string { return "levenshtein" }

func (Levenshtein) Distance(a, b string) (float64, error) {
	if a == b {
		return 0, nil
	}
	if len(a) == 0 {
		return float64(len(b)), nil
	}
	if len(b) == 0 {
		return float64(len(a)), nil
	}
	// Two-row dynamic program; keep the shorter string as the row to
	// bound memory at O(min(len(a), len(b))).
	if len(b) < len(a) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			ins := curr[i-1] + 1
			del := prev[i] + 1
			sub := prev[i-1] + cost
			min := ins
			if del < min {
				min = del
			}
			if sub < min {
				min = sub
			}
			curr[i] = min
		}
		prev, curr = curr, prev
	}
	return float64(prev[len(a)]), nil
}
