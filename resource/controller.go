package resource

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds the budgets a Controller enforces.
type Config struct {
	// MemoryLimitBytes caps managed memory (block caches, staging buffers).
	// 0 tracks usage without enforcing a limit.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers caps concurrent background jobs such as snapshot
	// uploads. 0 defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec throttles bulk IO so persistence traffic cannot
	// starve queries. 0 means unthrottled.
	IOLimitBytesPerSec int64
}

// Controller enforces process-wide budgets for memory, background
// concurrency and bulk IO. A nil *Controller is valid and enforces
// nothing, so callers never special-case the ungoverned path.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	bgSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a controller for the given budgets.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireMemory reserves bytes, blocking until the budget allows it or ctx
// is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)

	return nil
}

// TryAcquireMemory reserves bytes without blocking. Returns false if the
// reservation would exceed the budget.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}

	c.memUsed.Add(bytes)

	return true
}

// ReleaseMemory returns a reservation.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}

	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}

	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory budget, 0 if unlimited.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}

	return c.cfg.MemoryLimitBytes
}

// AcquireBackground blocks until a background worker slot is free.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}

	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground reserves a background worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}

	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground returns a background worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}

	c.bgSem.Release(1)
}

// AcquireIO blocks until the IO budget allows the given number of bytes.
// Reservations above the limiter burst must be split by the caller; the
// Reader and Writer wrappers handle this.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return nil
	}

	return c.ioLimiter.WaitN(ctx, bytes)
}

// TryAcquireIO consumes IO budget without blocking.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return true
	}

	return c.ioLimiter.AllowN(time.Now(), bytes)
}

// ioBurst returns the largest single reservation the IO limiter accepts,
// 0 if IO is unthrottled.
func (c *Controller) ioBurst() int {
	if c == nil || c.ioLimiter == nil {
		return 0
	}

	return c.ioLimiter.Burst()
}
