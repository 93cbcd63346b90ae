package worker

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
)

const defaultSize = 16

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker: pool closed")

// Pool bounds how many blocking upstream calls run at once. Callers wait for
// a slot, the job runs on its own goroutine, and the caller resumes when the
// job returns or its context ends.
type Pool struct {
	sem    *semaphore.Weighted
	size   int64
	closed chan struct{}
}

// NewPool creates a Pool with size slots; a non-positive size uses the default.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = defaultSize
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   int64(size),
		closed: make(chan struct{}),
	}
}

func (p *Pool) Size() int { return int(p.size) }

// Close stops accepting jobs and waits until in-flight jobs release their
// slots or ctx ends.
func (p *Pool) Close(ctx context.Context) error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	if err := p.sem.Acquire(ctx, p.size); err != nil {
		return fmt.Errorf("worker: drain: %w", err)
	}
	p.sem.Release(p.size)
	return nil
}

type result[T any] struct {
	val T
	err error
}

// Submit runs job on p and waits for its result; job must honour its ctx.
// If ctx ends first the job's context is cancelled and ctx.Err() is
// returned. The slot is released once the job actually returns.
func Submit[T any](ctx context.Context, p *Pool, job func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	select {
	case <-p.closed:
		return zero, ErrPoolClosed
	default:
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("worker: wait for slot: %w", err)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	done := make(chan result[T], 1)
	go func() {
		defer p.sem.Release(1)
		defer cancel()
		v, err := job(jobCtx)
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		cancel()
		return zero, ctx.Err()
	}
}
