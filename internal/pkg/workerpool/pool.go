// Package workerpool bounds how many CPU-heavy jobs (password and token
// hashing) run at the same time, so a burst of logins cannot starve the
// rest of the process.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a pool with size slots. A non-positive size means GOMAXPROCS.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

func (p *Pool) Size() int { return p.size }

// Do waits for a free slot and runs fn in it. Only the wait honours ctx:
// once fn has started it runs to completion.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	fn()
	return nil
}
