// Package sync keeps the dialog list and the selected thread in step with
// the backend by polling.
package sync

import (
	"context"
	"time"
)

// task runs fn immediately and then on every tick of interval until its
// context is cancelled. A tick that fires while fn is still running is
// skipped.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startTask(parent context.Context, interval time.Duration, fn func(ctx context.Context)) *task {
	ctx, cancel := context.WithCancel(parent)
	t := &task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()
	return t
}

// stop cancels the task without waiting for an in-flight fn to return.
func (t *task) stop() {
	if t != nil {
		t.cancel()
	}
}

// wait blocks until the task's goroutine has exited.
func (t *task) wait() {
	if t != nil {
		<-t.done
	}
}
