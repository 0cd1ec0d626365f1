package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("pool: closed")

// Pool manages a fixed set of goroutines shared by tree construction and
// query batches. A fixed pool keeps parallelism at the configured width
// instead of spawning a goroutine per subtree or per query.
type Pool struct {
	numWorkers int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

// New creates a pool with numWorkers goroutines. numWorkers <= 0 defaults
// to runtime.GOMAXPROCS(0), the right width for CPU-bound distance work.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2),
		stopCh:     make(chan struct{}),
	}

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker()
	}

	return p
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.numWorkers }

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			// Drain remaining work before exiting.
			for {
				select {
				case task, ok := <-p.workCh:
					if !ok {
						return
					}
					task()
				default:
					return
				}
			}
		case task, ok := <-p.workCh:
			if !ok {
				return
			}
			task()
		}
	}
}

// Submit enqueues a task, blocking for queue space. Independent tasks
// (batch queries) use this form; tasks that themselves submit must use
// TrySubmit or they can deadlock on a full queue.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}

	select {
	case p.workCh <- task:
		return nil
	case <-p.stopCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues a task only if queue space is immediately available.
// It reports whether the task was accepted; on false the caller runs the
// work itself. This is the fork-join form used by the tree builder, where
// a blocked worker would wait on work only it can drain.
func (p *Pool) TrySubmit(task func()) bool {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed.Load() {
		return false
	}

	select {
	case p.workCh <- task:
		return true
	default:
		return false
	}
}

// Close shuts the pool down gracefully, draining queued tasks. It is
// idempotent and safe to call concurrently with Submit.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.submitMu.Lock()
	close(p.stopCh)
	close(p.workCh)
	p.submitMu.Unlock()

	p.wg.Wait()
}
