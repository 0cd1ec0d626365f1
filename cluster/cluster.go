package cluster

// Cluster is one node of a cluster tree: a contiguous run of item ids with a
// designated center, the radius covering every member, and an estimate of
// the local fractal dimension around the center. Internal clusters have
// exactly two children whose items tile the parent's.
type Cluster struct {
	items  []int
	center int
	radius float64
	lfd    float64
	depth  int

	left  *Cluster
	right *Cluster
}

// Items returns the ids covered by this cluster. The slice is a view into
// tree-owned storage and must not be modified.
func (c *Cluster) Items() []int { return c.items }

// Cardinality returns the number of items covered by this cluster.
func (c *Cluster) Cardinality() int { return len(c.items) }

// Center returns the id of the member the radius is measured from.
func (c *Cluster) Center() int { return c.center }

// Radius returns the distance from the center to the farthest member.
func (c *Cluster) Radius() float64 { return c.radius }

// LFD returns the local fractal dimension estimate: log2 of the ratio of the
// cardinality to the number of members within half the radius of the center.
func (c *Cluster) LFD() float64 { return c.lfd }

// Depth returns the number of edges between this cluster and the root.
func (c *Cluster) Depth() int { return c.depth }

// IsLeaf reports whether the cluster has no children.
func (c *Cluster) IsLeaf() bool { return c.left == nil }

// Left returns the left child, or nil for leaves.
func (c *Cluster) Left() *Cluster { return c.left }

// Right returns the right child, or nil for leaves.
func (c *Cluster) Right() *Cluster { return c.right }
