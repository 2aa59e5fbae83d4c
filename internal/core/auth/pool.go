package auth

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of CPU heavy tasks running at once. Callers block
// until a slot is free or their context is done.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a Pool allowing size concurrent tasks. A size of zero or
// less uses the number of CPUs.
func NewPool(size int64) *Pool {
	if size <= 0 {
		size = int64(runtime.NumCPU())
	}
	return &Pool{sem: semaphore.NewWeighted(size)}
}

// Do runs fn once a slot is available.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}
