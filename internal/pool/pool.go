// Package pool runs independent fetch tasks with bounded concurrency and
// yields results as they complete, so callers can keep progress counters
// accurate.
package pool

import (
	"context"
	"sync"
)

// The platform's secondary abuse detection throttles silently rather than
// rejecting cleanly, so each tier's bound is a hard-coded safety margin
// below the observed failure threshold, not a discovered value. The tiers
// never share a pool: their per-call cost differs by orders of magnitude.
const (
	// ProbeWorkers bounds the unauthenticated calendar probes.
	ProbeWorkers = 20

	// StatWorkers bounds the high-volume, low-cost per-commit stat fetches.
	StatWorkers = 10

	// MemberWorkers bounds the expensive full per-subject gathering.
	MemberWorkers = 3
)

// Result carries one task's outcome and the index it was submitted under.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Run executes tasks with at most limit in flight and sends each result on
// the returned channel as soon as its task finishes, in completion order.
// Once the context is canceled no new tasks start, but in-flight tasks
// drain rather than being killed, to avoid half-built results. The channel
// closes after the last outstanding task completes.
func Run[T any](ctx context.Context, limit int, tasks []func(context.Context) (T, error)) <-chan Result[T] {
	if limit < 1 {
		limit = 1
	}
	out := make(chan Result[T])
	sem := make(chan struct{}, limit)

	go func() {
		defer close(out)
		var wg sync.WaitGroup
		for i, task := range tasks {
			if ctx.Err() != nil {
				break
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(i int, task func(context.Context) (T, error)) {
				defer wg.Done()
				defer func() { <-sem }()
				value, err := task(ctx)
				out <- Result[T]{Index: i, Value: value, Err: err}
			}(i, task)
		}
		wg.Wait()
	}()
	return out
}
