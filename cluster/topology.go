package cluster

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/metrigo/space"
)

// NodeRecord is the flattened form of one cluster. A preorder sequence of
// records plus the tree's item permutation fully describes a tree; snapshot
// codecs persist exactly that pair.
type NodeRecord struct {
	Center      int
	Cardinality int
	Radius      float64
	LFD         float64
	Leaf        bool
}

// Records returns the tree's clusters flattened in preorder.
func (t *Tree[I]) Records() []NodeRecord {
	records := make([]NodeRecord, 0, t.nodeCount)

	t.Walk(func(c *Cluster) bool {
		records = append(records, NodeRecord{
			Center:      c.center,
			Cardinality: len(c.items),
			Radius:      c.radius,
			LFD:         c.lfd,
			Leaf:        c.IsLeaf(),
		})

		return true
	})

	return records
}

// Reassemble rebuilds a tree from its item permutation and preorder records
// without recomputing any distances. It verifies that the records describe a
// well-formed tree over items and that items is a permutation of the
// dataset; mismatches return ErrBadTopology. The deep geometric invariants
// can be re-checked afterwards with Validate.
func Reassemble[I any](s *space.Space[I], cfg Config, items []int, records []NodeRecord) (*Tree[I], error) {
	if s == nil {
		return nil, ErrNilSpace
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(items) != s.Len() {
		return nil, fmt.Errorf("%w: %d items for a dataset of %d", ErrBadTopology, len(items), s.Len())
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrBadTopology)
	}

	seen := bitset.New(uint(s.Len()))
	for _, id := range items {
		if id < 0 || id >= s.Len() {
			return nil, fmt.Errorf("%w: item id %d out of range [0,%d)", ErrBadTopology, id, s.Len())
		}

		if seen.Test(uint(id)) {
			return nil, fmt.Errorf("%w: item id %d appears more than once", ErrBadTopology, id)
		}

		seen.Set(uint(id))
	}

	owned := make([]int, len(items))
	copy(owned, items)

	root, consumed, err := assemble(owned, records, s.Len())
	if err != nil {
		return nil, err
	}

	if consumed != len(records) {
		return nil, fmt.Errorf("%w: %d trailing records", ErrBadTopology, len(records)-consumed)
	}

	return newTree(s, cfg.normalized(), root, owned), nil
}

// assembleFrame is one pending subtree during iterative preorder assembly.
type assembleFrame struct {
	view   []int
	depth  int
	parent *Cluster
	isLeft bool
}

// assemble consumes preorder records against item views. Each internal
// record's left subtree size comes from the following record's cardinality,
// which is all the information the preorder needs.
func assemble(items []int, records []NodeRecord, datasetLen int) (*Cluster, int, error) {
	var root *Cluster

	next := 0
	stack := []assembleFrame{{view: items}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if next >= len(records) {
			return nil, 0, fmt.Errorf("%w: records exhausted at depth %d", ErrBadTopology, frame.depth)
		}

		rec := records[next]
		next++

		if rec.Cardinality != len(frame.view) {
			return nil, 0, fmt.Errorf("%w: record %d covers %d items, view has %d",
				ErrBadTopology, next-1, rec.Cardinality, len(frame.view))
		}

		if rec.Center < 0 || rec.Center >= datasetLen {
			return nil, 0, fmt.Errorf("%w: record %d center %d out of range [0,%d)",
				ErrBadTopology, next-1, rec.Center, datasetLen)
		}

		c := &Cluster{
			items:  frame.view,
			center: rec.Center,
			radius: rec.Radius,
			lfd:    rec.LFD,
			depth:  frame.depth,
		}

		switch {
		case frame.parent == nil:
			root = c
		case frame.isLeft:
			frame.parent.left = c
		default:
			frame.parent.right = c
		}

		if rec.Leaf {
			continue
		}

		if next >= len(records) {
			return nil, 0, fmt.Errorf("%w: internal record %d has no children", ErrBadTopology, next-1)
		}

		leftCard := records[next].Cardinality
		if leftCard <= 0 || leftCard >= len(frame.view) {
			return nil, 0, fmt.Errorf("%w: record %d splits %d items at %d",
				ErrBadTopology, next-1, len(frame.view), leftCard)
		}

		// Right is pushed first so the left subtree pops next, matching the
		// preorder of the records.
		stack = append(stack,
			assembleFrame{view: frame.view[leftCard:], depth: frame.depth + 1, parent: c},
			assembleFrame{view: frame.view[:leftCard:leftCard], depth: frame.depth + 1, parent: c, isLeft: true},
		)
	}

	return root, next, nil
}
