package cluster

import (
	"context"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/metrigo/space"
)

// Tree is an immutable cluster tree over a metric space. All methods are
// safe for concurrent use once the tree is built.
type Tree[I any] struct {
	space *space.Space[I]
	cfg   Config
	root  *Cluster
	items []int

	height    int
	nodeCount int
	leafCount int
}

// newTree wraps a finished root and derives the shape counters.
func newTree[I any](s *space.Space[I], cfg Config, root *Cluster, items []int) *Tree[I] {
	t := &Tree[I]{
		space: s,
		cfg:   cfg,
		root:  root,
		items: items,
	}

	t.Walk(func(c *Cluster) bool {
		t.nodeCount++

		if c.IsLeaf() {
			t.leafCount++
		}

		if c.depth > t.height {
			t.height = c.depth
		}

		return true
	})

	return t
}

// Root returns the cluster covering the whole dataset.
func (t *Tree[I]) Root() *Cluster { return t.root }

// Space returns the metric space the tree was built over.
func (t *Tree[I]) Space() *space.Space[I] { return t.space }

// Config returns the configuration the tree was built with.
func (t *Tree[I]) Config() Config { return t.cfg }

// Items returns the dataset ids in tree order: every cluster's Items is a
// contiguous run of this slice. It must not be modified.
func (t *Tree[I]) Items() []int { return t.items }

// Cardinality returns the number of items in the indexed dataset.
func (t *Tree[I]) Cardinality() int { return len(t.items) }

// Height returns the depth of the deepest cluster.
func (t *Tree[I]) Height() int { return t.height }

// NodeCount returns the number of clusters in the tree.
func (t *Tree[I]) NodeCount() int { return t.nodeCount }

// LeafCount returns the number of leaf clusters.
func (t *Tree[I]) LeafCount() int { return t.leafCount }

// Walk visits every cluster in preorder, left child before right, until fn
// returns false. The traversal uses an explicit stack, so arbitrarily deep
// trees are fine.
func (t *Tree[I]) Walk(fn func(c *Cluster) bool) {
	if t.root == nil {
		return
	}

	stack := []*Cluster{t.root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(c) {
			return
		}

		if !c.IsLeaf() {
			stack = append(stack, c.right, c.left)
		}
	}
}

// Validate re-verifies the tree's structural invariants against the space:
// the items form a permutation of the dataset, every center is a member of
// its cluster, every radius equals the recomputed farthest-member distance,
// and children exactly tile their parent. It recomputes distances and can
// be expensive on large trees; ctx cancels it between clusters.
func (t *Tree[I]) Validate(ctx context.Context) error {
	if len(t.items) != t.space.Len() {
		return fmt.Errorf("%w: tree covers %d items, space has %d", ErrTreeInvalid, len(t.items), t.space.Len())
	}

	seen := bitset.New(uint(t.space.Len()))
	for _, id := range t.items {
		if id < 0 || id >= t.space.Len() {
			return fmt.Errorf("%w: item id %d out of range [0,%d)", ErrTreeInvalid, id, t.space.Len())
		}

		if seen.Test(uint(id)) {
			return fmt.Errorf("%w: item id %d appears more than once", ErrTreeInvalid, id)
		}

		seen.Set(uint(id))
	}

	var verr error

	t.Walk(func(c *Cluster) bool {
		if err := ctx.Err(); err != nil {
			verr = err
			return false
		}

		if err := t.validateCluster(c); err != nil {
			verr = err
			return false
		}

		return true
	})

	return verr
}

func (t *Tree[I]) validateCluster(c *Cluster) error {
	card := len(c.items)
	if card == 0 {
		return fmt.Errorf("%w: empty cluster at depth %d", ErrTreeInvalid, c.depth)
	}

	member := false
	for _, id := range c.items {
		if id == c.center {
			member = true
			break
		}
	}

	if !member {
		return fmt.Errorf("%w: center %d is not a member of its cluster at depth %d", ErrTreeInvalid, c.center, c.depth)
	}

	radius := 0.0
	for _, id := range c.items {
		d, err := t.space.Distance(c.center, id)
		if err != nil {
			return err
		}

		if d > radius {
			radius = d
		}
	}

	if radius != c.radius {
		return fmt.Errorf("%w: cluster at depth %d stores radius %g, recomputed %g", ErrTreeInvalid, c.depth, c.radius, radius)
	}

	if (c.left == nil) != (c.right == nil) {
		return fmt.Errorf("%w: cluster at depth %d has exactly one child", ErrTreeInvalid, c.depth)
	}

	if c.left == nil {
		return nil
	}

	if len(c.left.items)+len(c.right.items) != card {
		return fmt.Errorf("%w: children of cluster at depth %d cover %d items, parent has %d",
			ErrTreeInvalid, c.depth, len(c.left.items)+len(c.right.items), card)
	}

	if &c.left.items[0] != &c.items[0] || &c.right.items[0] != &c.items[len(c.left.items)] {
		return fmt.Errorf("%w: children of cluster at depth %d do not tile the parent", ErrTreeInvalid, c.depth)
	}

	if c.left.depth != c.depth+1 || c.right.depth != c.depth+1 {
		return fmt.Errorf("%w: children of cluster at depth %d carry wrong depth", ErrTreeInvalid, c.depth)
	}

	return nil
}

// TreeStats summarizes the shape of a tree for logs and benchmarks.
type TreeStats struct {
	Cardinality         int
	Height              int
	NodeCount           int
	LeafCount           int
	RootRadius          float64
	MeanLeafDepth       float64
	MeanLeafCardinality float64
	MeanLFD             float64
}

// Stats walks the tree and aggregates its shape statistics.
func (t *Tree[I]) Stats() TreeStats {
	st := TreeStats{
		Cardinality: len(t.items),
		Height:      t.height,
		NodeCount:   t.nodeCount,
		LeafCount:   t.leafCount,
		RootRadius:  t.root.radius,
	}

	var depthSum, cardSum, lfdSum float64

	t.Walk(func(c *Cluster) bool {
		lfdSum += c.lfd

		if c.IsLeaf() {
			depthSum += float64(c.depth)
			cardSum += float64(len(c.items))
		}

		return true
	})

	if t.leafCount > 0 {
		st.MeanLeafDepth = depthSum / float64(t.leafCount)
		st.MeanLeafCardinality = cardSum / float64(t.leafCount)
	}

	if t.nodeCount > 0 {
		st.MeanLFD = lfdSum / float64(t.nodeCount)
	}

	return st
}
