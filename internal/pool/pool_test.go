package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsTasks(t *testing.T) {
	p := New(4)
	defer p.Close()

	var count atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func() {
			defer wg.Done()
			count.Add(1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int32(100), count.Load())
}

func TestDefaultWorkers(t *testing.T) {
	p := New(0)
	defer p.Close()
	assert.Greater(t, p.Workers(), 0)
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(2)
	p.Close()

	err := p.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrClosed)

	assert.False(t, p.TrySubmit(func() {}))
}

func TestSubmitContextCancelled(t *testing.T) {
	p := New(1)
	defer p.Close()

	block := make(chan struct{})
	var wg sync.WaitGroup

	// Occupy the single worker and fill the queue so Submit must wait.
	wg.Add(1)
	require.NoError(t, p.Submit(context.Background(), func() {
		defer wg.Done()
		<-block
	}))
	for p.TrySubmit(func() {}) {
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.Canceled)

	close(block)
	wg.Wait()
}

func TestTrySubmitBackpressure(t *testing.T) {
	p := New(1)
	defer p.Close()

	block := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	require.NoError(t, p.Submit(context.Background(), func() {
		defer wg.Done()
		<-block
	}))

	// With the worker blocked, the queue eventually refuses work instead
	// of blocking the caller.
	accepted := 0
	for p.TrySubmit(func() {}) {
		accepted++
		require.Less(t, accepted, 1000, "TrySubmit never exerted backpressure")
	}

	close(block)
	wg.Wait()
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	p := New(2)

	var count atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}))
	}

	p.Close()
	assert.Equal(t, int32(50), count.Load())

	// Idempotent.
	p.Close()
}
