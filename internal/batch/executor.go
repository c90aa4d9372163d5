// Package batch runs independent tasks in fixed-size concurrent waves.
//
// Every task in a wave starts concurrently and the next wave does not
// start until the current one has fully settled. This bounds simultaneous
// outbound connections against rate-limited providers without a dynamic
// concurrency limiter, and makes the backpressure behaviour trivially
// auditable.
package batch

import (
	"context"
	"sync"
	"time"
)

// DefaultSize is the wave size used by the fetchers and the rescore job.
const DefaultSize = 5

// Task produces a value of type T or an error.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of one task, tagged with the index the task had
// in the input slice. Attribution is by tag, never by completion order.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Run executes tasks in waves of the given size and returns results
// ordered by task index. A pause greater than zero is inserted between
// waves. When the context is cancelled mid-run, tasks not yet started
// report ctx.Err().
func Run[T any](ctx context.Context, size int, pause time.Duration, tasks []Task[T]) []Result[T] {
	if size <= 0 {
		size = DefaultSize
	}

	results := make([]Result[T], len(tasks))

	for start := 0; start < len(tasks); start += size {
		end := start + size
		if end > len(tasks) {
			end = len(tasks)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				value, err := tasks[i](ctx)
				results[i] = Result[T]{Index: i, Value: value, Err: err}
			}(i)
		}
		wg.Wait()

		if end == len(tasks) {
			break
		}

		if pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(pause):
			}
		}

		if ctx.Err() != nil {
			for i := end; i < len(tasks); i++ {
				results[i] = Result[T]{Index: i, Err: ctx.Err()}
			}
			break
		}
	}

	return results
}
