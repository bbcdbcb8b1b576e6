package script

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// call is a unit of work queued on the executor.
type call struct {
	fn     func() error
	result chan error
}

// Executor serializes work onto a single goroutine.
//
// Both the Lua state and the history stack must be driven from one
// execution context. Code on other goroutines (the config watcher, signal
// handlers) hands work to the executor instead of touching them directly.
//
// Usage:
//
//	exec := NewExecutor(100)
//	go exec.Run(ctx)
//	defer exec.Close()
//
//	// From any goroutine:
//	err := exec.Execute(ctx, func() error {
//	    return host.RunFile(ctx, "build.lua")
//	})
type Executor struct {
	queue  chan *call
	closed atomic.Bool
	done   chan struct{}

	closeOnce sync.Once
}

// NewExecutor creates an executor with the given queue length.
func NewExecutor(queueSize int) *Executor {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Executor{
		queue: make(chan *call, queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes queued work until ctx is cancelled or Close is called.
// The goroutine calling Run is the owner of everything the work touches.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-e.done:
			e.drainQueue(ErrExecutorClosed)
			return
		default:
		}
		select {
		case <-ctx.Done():
			e.drainQueue(ctx.Err())
			return
		case <-e.done:
			e.drainQueue(ErrExecutorClosed)
			return
		case c := <-e.queue:
			c.result <- e.execute(c)
			close(c.result)
		}
	}
}

// execute runs one call, converting a panic into an error.
func (e *Executor) execute(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = fmt.Errorf("executor panic: %w", v)
			default:
				err = fmt.Errorf("executor panic: %v", v)
			}
		}
	}()
	return c.fn()
}

// drainQueue fails every queued call with err.
func (e *Executor) drainQueue(err error) {
	for {
		select {
		case c := <-e.queue:
			c.result <- err
			close(c.result)
		default:
			return
		}
	}
}

// Execute runs fn on the executor goroutine and waits for its result.
//
// If ctx is cancelled while waiting, Execute returns ctx.Err(); fn may still
// run later.
func (e *Executor) Execute(ctx context.Context, fn func() error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- c:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-c.result:
		if !ok {
			return ErrExecutorClosed
		}
		return err
	}
}

// ExecuteAsync queues fn without waiting. onDone, if non-nil, receives the
// result on a separate goroutine.
func (e *Executor) ExecuteAsync(fn func() error, onDone func(error)) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- c:
		go func() {
			err, ok := <-c.result
			if !ok {
				err = ErrExecutorClosed
			}
			if onDone != nil {
				onDone(err)
			}
		}()
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the executor. Queued work fails with ErrExecutorClosed.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
}

// IsClosed returns true if the executor has been closed.
func (e *Executor) IsClosed() bool {
	return e.closed.Load()
}

