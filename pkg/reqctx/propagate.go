package reqctx

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// contextKey prevents collisions with other packages using context values
type contextKey struct{}

// Attach stores rc in ctx. It is called once at the HTTP boundary and again
// when authentication derives the principal-bearing copy.
func Attach(ctx context.Context, rc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext returns the request context of the active request.
// Outside a request it returns ErrMissingContext.
func FromContext(ctx context.Context) (Context, error) {
	if ctx == nil {
		return Context{}, ErrMissingContext
	}
	rc, ok := ctx.Value(contextKey{}).(Context)
	if !ok || rc.IsZero() {
		return Context{}, ErrMissingContext
	}
	return rc, nil
}

// MustFromContext panics if no request context is attached. Use only in
// handlers mounted behind the tenant middleware.
func MustFromContext(ctx context.Context) Context {
	rc, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return rc
}

// Checkpoint must be called before starting a new step of a request.
// It returns ErrCancelled once the request was cancelled or timed out.
func Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// Task is a unit of scheduled work. The request context is bound when the task
// is submitted, never looked up when it runs.
type Task func(ctx context.Context, rc Context) error

// Fanout runs tasks concurrently, each one receiving the same rc. The first
// failure cancels the remaining tasks; tasks that have not started by then are
// skipped.
func Fanout(ctx context.Context, rc Context, tasks ...Task) error {
	if rc.IsZero() {
		return ErrMissingContext
	}
	if err := Checkpoint(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			if err := Checkpoint(gctx); err != nil {
				return err
			}
			return task(gctx, rc)
		})
	}
	return g.Wait()
}

// Map applies fn to every item concurrently and returns results in input order.
// limit bounds the number of in-flight calls; zero or less means unbounded.
func Map[T, U any](ctx context.Context, rc Context, limit int, items []T, fn func(context.Context, Context, T) (U, error)) ([]U, error) {
	if rc.IsZero() {
		return nil, ErrMissingContext
	}
	if err := Checkpoint(ctx); err != nil {
		return nil, err
	}

	results := make([]U, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			if err := Checkpoint(gctx); err != nil {
				return err
			}
			res, err := fn(gctx, rc, item)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Future is the result of a single asynchronous step started with Go.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Go runs fn in its own goroutine with rc bound at submission.
func Go[U any](ctx context.Context, rc Context, fn func(context.Context, Context) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		if rc.IsZero() {
			f.err = ErrMissingContext
			return
		}
		// Pre-cancelled requests never start the step.
		if err := Checkpoint(ctx); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx, rc)
	}()

	return f
}

// Await blocks until the step finishes or ctx is done.
func (f *Future[U]) Await(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// Done reports whether the step has finished, without blocking.
func (f *Future[U]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// AwaitAll waits for every future and returns the first error encountered in order.
func AwaitAll[U any](ctx context.Context, futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	for i, f := range futures {
		res, err := f.Await(ctx)
		if err != nil {
			return results, err
		}
		results[i] = res
	}
	return results, nil
}

// Group collects tasks for a later Fanout. It is useful when the set of
// sub-operations is assembled across several code paths.
type Group struct {
	mu    sync.Mutex
	rc    Context
	tasks []Task
}

// NewGroup binds rc to every task added to the group.
func NewGroup(rc Context) *Group {
	return &Group{rc: rc}
}

// Add schedules a task.
func (g *Group) Add(t Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks = append(g.tasks, t)
}

// Run executes all scheduled tasks concurrently.
func (g *Group) Run(ctx context.Context) error {
	g.mu.Lock()
	tasks := g.tasks
	g.tasks = nil
	g.mu.Unlock()
	return Fanout(ctx, g.rc, tasks...)
}
