package cluster

import (
	"context"
	"sync"

	"github.com/hupe1980/metrigo/internal/pool"
	"github.com/hupe1980/metrigo/space"
)

// Build constructs the cluster tree for s using a private worker pool sized
// by cfg.Workers. The pool is torn down before Build returns.
func Build[I any](ctx context.Context, s *space.Space[I], cfg Config) (*Tree[I], error) {
	p := pool.New(cfg.Workers)
	defer p.Close()

	return BuildWithPool(ctx, s, cfg, p)
}

// BuildWithPool constructs the cluster tree for s, forking subtree work onto
// p. Sharing one pool between construction and query batches keeps total
// parallelism at the configured width. The first error cancels construction
// and no partial tree is returned.
func BuildWithPool[I any](ctx context.Context, s *space.Space[I], cfg Config, p *pool.Pool) (*Tree[I], error) {
	if s == nil {
		return nil, ErrNilSpace
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.normalized()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make([]int, s.Len())
	for i := range items {
		items[i] = i
	}

	b := &builder[I]{
		space:  s,
		cfg:    cfg,
		pool:   p,
		ctx:    ctx,
		cancel: cancel,
	}

	root := &Cluster{items: items}

	b.wg.Add(1)
	b.process(root)
	b.wg.Wait()

	if b.err != nil {
		return nil, b.err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return newTree(s, cfg, root, items), nil
}

type builder[I any] struct {
	space  *space.Space[I]
	cfg    Config
	pool   *pool.Pool
	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	failOnce sync.Once
	err      error
}

// fail records the first error and cancels every in-flight worker.
func (b *builder[I]) fail(err error) {
	b.failOnce.Do(func() {
		b.err = err
		b.cancel()
	})
}

// process partitions clusters from an explicit LIFO stack. After each split
// the right subtree is offered to an idle pool worker; if none is free it
// stays on the local stack, so a full pool degrades to sequential work
// instead of deadlocking on its own queue.
func (b *builder[I]) process(c *Cluster) {
	defer b.wg.Done()

	stack := []*Cluster{c}
	for len(stack) > 0 {
		if err := b.ctx.Err(); err != nil {
			b.fail(err)
			return
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := b.split(node); err != nil {
			b.fail(err)
			return
		}

		if node.left == nil {
			continue
		}

		right := node.right

		b.wg.Add(1)
		if !b.pool.TrySubmit(func() { b.process(right) }) {
			b.wg.Done()
			stack = append(stack, right)
		}

		stack = append(stack, node.left)
	}
}

// split computes the cluster's geometry and, unless a stopping criterion
// applies, partitions its items between two poles. The partition rearranges
// the cluster's slice in place; the children become views of its two halves,
// preserving member order within each side so that the resulting tree does
// not depend on scheduling.
func (b *builder[I]) split(c *Cluster) error {
	card := len(c.items)

	// Singletons need no geometry.
	if card == 1 {
		c.center = c.items[0]
		c.lfd = 1

		return nil
	}

	center, err := selectCenter(b.space, c.items)
	if err != nil {
		return err
	}

	c.center = center

	fromCenter, err := b.space.Distances(center, c.items)
	if err != nil {
		return err
	}

	poleA, radius := farthestMember(c.items, fromCenter)
	c.radius = radius
	c.lfd = localFractalDimension(card, radius, fromCenter)

	if b.isLeaf(c) {
		return nil
	}

	fromA, err := b.space.Distances(poleA, c.items)
	if err != nil {
		return err
	}

	poleB, _ := farthestMember(c.items, fromA)

	fromB, err := b.space.Distances(poleB, c.items)
	if err != nil {
		return err
	}

	leftIDs := make([]int, 0, card)
	rightIDs := make([]int, 0, card)

	aWinsTies := poleA < poleB
	for i, id := range c.items {
		switch {
		case fromA[i] < fromB[i]:
			leftIDs = append(leftIDs, id)
		case fromB[i] < fromA[i]:
			rightIDs = append(rightIDs, id)
		case aWinsTies:
			leftIDs = append(leftIDs, id)
		default:
			rightIDs = append(rightIDs, id)
		}
	}

	// A one-sided partition cannot make progress; keep the cluster as a leaf.
	if len(leftIDs) == 0 || len(rightIDs) == 0 {
		return nil
	}

	copy(c.items, leftIDs)
	copy(c.items[len(leftIDs):], rightIDs)

	c.left = &Cluster{items: c.items[:len(leftIDs):len(leftIDs)], depth: c.depth + 1}
	c.right = &Cluster{items: c.items[len(leftIDs):], depth: c.depth + 1}

	return nil
}

func (b *builder[I]) isLeaf(c *Cluster) bool {
	if len(c.items) <= b.cfg.MinCardinality {
		return true
	}

	if c.radius < b.cfg.MinRadius {
		return true
	}

	if 2*c.radius <= b.cfg.DuplicateTolerance {
		return true
	}

	return b.cfg.MaxDepth > 0 && c.depth >= b.cfg.MaxDepth
}
