package store

import (
	"context"

	"github.com/airset-dev/airset/pkg/tree"
)

// Task is one step of a Run. It edits tc.Data in place and may call
// tc.Update to publish an intermediate state.
type Task func(tc *TaskContext) error

// RunFunc executes the tasks of one run.
type RunFunc func(tc *TaskContext) error

// Middleware wraps the execution of every Run of a store.
type Middleware func(next RunFunc) RunFunc

// TaskContext is shared by the tasks of one run.
type TaskContext struct {
	// Store is the store being run.
	Store *Store

	// Data is a deep clone of the store data taken when the run started.
	// Tasks mutate it; the run merges it back with Store.Update when all
	// tasks succeed.
	Data tree.Value

	// PrevData is the store data the clone was taken from.
	PrevData tree.Value

	// TaskCount is the number of tasks in the run.
	TaskCount int

	// Updated reports whether the run committed a change, either through
	// Update during a task or through the final merge.
	Updated bool

	ctx context.Context
}

// Context returns the run's context.
func (tc *TaskContext) Context() context.Context {
	if tc.ctx == nil {
		return context.Background()
	}
	return tc.ctx
}

// SetContext replaces the run's context. Middleware uses it to attach
// request-scoped values such as a tracing span.
func (tc *TaskContext) SetContext(ctx context.Context) {
	if ctx != nil {
		tc.ctx = ctx
	}
}

// Update publishes a clone of the current working data without ending the
// run. It reports whether this call committed a change.
func (tc *TaskContext) Update() bool {
	updated := tc.Store.Update(tc.Store.Clone(tc.Data))
	tc.Updated = tc.Updated || updated
	return updated
}

// Run executes tasks in order against a clone of the store data and merges
// the result back with Update. Runs of one store are queued and execute one
// at a time in call order. The first task error, panic or context
// cancellation stops the run; intermediate updates already published stay
// committed.
func (s *Store) Run(ctx context.Context, tasks ...Task) (*TaskContext, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Destroyed() {
		return nil, destroyedError(s.name)
	}
	if err := s.queue.acquire(ctx); err != nil {
		return nil, cancelledError(err)
	}
	defer s.queue.release()

	if s.Destroyed() {
		return nil, destroyedError(s.name)
	}

	prev := s.Data()
	tc := &TaskContext{
		Store:     s,
		Data:      tree.DeepClone(prev, nil),
		PrevData:  prev,
		TaskCount: len(tasks),
		ctx:       ctx,
	}

	run := RunFunc(func(tc *TaskContext) error {
		for i, task := range tasks {
			if task == nil {
				continue
			}
			if err := tc.Context().Err(); err != nil {
				return cancelledError(err)
			}
			if err := runTask(i, task, tc); err != nil {
				return err
			}
		}
		if s.Update(tc.Data) {
			tc.Updated = true
		}
		return nil
	})
	for i := len(s.middleware) - 1; i >= 0; i-- {
		run = s.middleware[i](run)
	}

	if err := run(tc); err != nil {
		s.logger.Warn("store run failed", "error", err, "tasks", len(tasks))
		return tc, err
	}
	return tc, nil
}

func runTask(i int, task Task, tc *TaskContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(i, r)
		}
	}()
	if err := task(tc); err != nil {
		return taskError(i, err)
	}
	return nil
}
