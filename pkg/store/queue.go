package store

import (
	"context"
	"sync"
)

// runQueue admits one run at a time. Waiters are released in arrival order.
type runQueue struct {
	mu      sync.Mutex
	running bool
	waiters []chan struct{}
}

// acquire blocks until the caller owns the run slot or ctx ends.
func (q *runQueue) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	if !q.running {
		q.running = true
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		for i, w := range q.waiters {
			if w == ch {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				q.mu.Unlock()
				return ctx.Err()
			}
		}
		q.mu.Unlock()
		// The slot was handed over while ctx ended; pass it on.
		q.release()
		return ctx.Err()
	}
}

// release hands the slot to the oldest waiter, or frees it.
func (q *runQueue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiters) > 0 {
		ch := q.waiters[0]
		q.waiters[0] = nil
		q.waiters = q.waiters[1:]
		close(ch)
		return
	}
	q.running = false
}

// pending returns the number of waiting runs.
func (q *runQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}
