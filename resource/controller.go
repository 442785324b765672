// Package resource bounds the I/O footprint of snapshot operations so a
// background save never starves the interactive rebuild loop.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxSnapshotJobs is the maximum number of concurrent snapshot
	// save/load operations. If 0, defaults to 1.
	MaxSnapshotJobs int64

	// IOLimitBytesPerSec is the maximum snapshot I/O throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages snapshot concurrency and I/O throughput.
type Controller struct {
	jobs      *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxSnapshotJobs <= 0 {
		cfg.MaxSnapshotJobs = 1
	}

	c := &Controller{
		jobs: semaphore.NewWeighted(cfg.MaxSnapshotJobs),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireJob blocks until a snapshot job slot is available or ctx is done.
func (c *Controller) AcquireJob(ctx context.Context) error {
	return c.jobs.Acquire(ctx, 1)
}

// ReleaseJob releases a slot acquired with AcquireJob.
func (c *Controller) ReleaseJob() {
	c.jobs.Release(1)
}

// WaitIO blocks until n bytes of I/O budget are available. Requests larger
// than the limiter burst are split so any n is valid.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c.ioLimiter == nil || n <= 0 {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := c.ioLimiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
