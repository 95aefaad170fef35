package build

import (
	"context"
	"time"
)

// Task is a handle on background work that can be torn down.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Go runs fn in its own goroutine under a context derived from parent.
func Go(parent context.Context, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		fn(ctx)
	}()
	return t
}

// Every calls fn once per interval until fn reports done or the task stops.
func Every(parent context.Context, interval time.Duration, fn func(ctx context.Context) bool) *Task {
	return Go(parent, func(ctx context.Context) {
		_ = Repeat(ctx, interval, fn)
	})
}

// Stop cancels the task and waits for it to return.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Repeat waits interval, calls fn, and repeats until fn returns true. The
// timer is re-armed only after fn returns, so calls never overlap. It returns
// ctx.Err() when the context ends first.
func Repeat(ctx context.Context, interval time.Duration, fn func(ctx context.Context) bool) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if fn(ctx) {
			return nil
		}
		timer.Reset(interval)
	}
}
