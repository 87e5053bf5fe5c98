// Package async wraps connections and cursors for concurrent callers.
//
// Native calls block inside the runtime and cannot be cancelled once
// issued. The wrappers here serialize access per connection, dispatch
// each blocking call to a bounded worker pool, and let a done context
// abandon the wait rather than the call: the worker finishes (or blocks)
// on its own, and its result is discarded.
package async

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/sync/semaphore"
)

// defaultWorkers bounds in-flight native calls when no size is given.
const defaultWorkers = 8

// WorkerPool bounds the number of concurrently blocking native calls.
// One pool is typically shared by all async handles in a process.
type WorkerPool struct {
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewWorkerPool creates a pool allowing size concurrent calls (a default
// when size <= 0).
func NewWorkerPool(size int, logger *slog.Logger) *WorkerPool {
	if size <= 0 {
		size = defaultWorkers
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WorkerPool{sem: semaphore.NewWeighted(int64(size)), logger: logger}
}

// result pairs a call's return value with its error.
type result[T any] struct {
	value T
	err   error
}

// dispatch runs fn on the pool under the handle mutex and returns its
// result, or ctx.Err() when the context finishes first. An abandoned call
// keeps running to completion on its worker; only the wait stops.
func dispatch[T any](ctx context.Context, p *WorkerPool, h *handleLock, op string, fn func() (T, error)) (T, error) {
	var zero T

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	ch := make(chan result[T], 1)
	go func() {
		defer p.sem.Release(1)
		h.mu.Lock()
		defer h.mu.Unlock()
		v, err := fn()
		ch <- result[T]{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			r := <-ch
			p.logger.Warn("abandoned call completed", "op", op, "error", r.err)
		}()
		return zero, ctx.Err()
	case r := <-ch:
		return r.value, r.err
	}
}
