package cluster

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes one row per cluster in preorder with the columns depth,
// cardinality, radius, lfd, center and leaf. The output is meant for
// offline inspection of tree shape.
func (t *Tree[I]) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"depth", "cardinality", "radius", "lfd", "center", "leaf"}); err != nil {
		return err
	}

	var werr error

	t.Walk(func(c *Cluster) bool {
		row := []string{
			strconv.Itoa(c.depth),
			strconv.Itoa(len(c.items)),
			strconv.FormatFloat(c.radius, 'g', -1, 64),
			strconv.FormatFloat(c.lfd, 'g', -1, 64),
			strconv.Itoa(c.center),
			strconv.FormatBool(c.IsLeaf()),
		}

		if err := cw.Write(row); err != nil {
			werr = err
			return false
		}

		return true
	})

	if werr != nil {
		return werr
	}

	cw.Flush()

	return cw.Error()
}
