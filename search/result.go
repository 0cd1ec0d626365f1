package search

import "sort"

// Result is one matched item: its id in the dataset and its distance from
// the query.
type Result struct {
	ID       int
	Distance float64
}

// sortResults orders results ascending by distance, ties toward the lower
// id, matching the order of a sorted linear scan.
func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Distance != rs[j].Distance {
			return rs[i].Distance < rs[j].Distance
		}

		return rs[i].ID < rs[j].ID
	})
}
