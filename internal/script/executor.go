package script

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// Call is a Lua operation queued on an Executor.
type Call struct {
	// Fn runs on the executor goroutine with exclusive use of the LState.
	Fn func(L *lua.LState) error

	// Result receives the outcome and is then closed.
	Result chan error
}

// Executor serializes all Lua operations through a single goroutine.
//
// gopher-lua's LState is NOT goroutine-safe. The Executor marshals work from
// any goroutine onto the one goroutine running Run.
//
//	exec := NewExecutor(L, 0)
//	go exec.Run(ctx)
//	defer exec.Close()
//
//	err := exec.Execute(ctx, func(L *lua.LState) error {
//	    return L.DoString(`x = 1`)
//	})
type Executor struct {
	L      *lua.LState
	queue  chan *Call
	closed atomic.Bool
	done   chan struct{}

	// stopped is closed when Run returns
	stopped chan struct{}

	closeOnce sync.Once
}

// NewExecutor creates an Executor for L. The queue size bounds how many
// operations can wait; non-positive selects 100.
func NewExecutor(L *lua.LState, queueSize int) *Executor {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Executor{
		L:       L,
		queue:   make(chan *Call, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run processes queued operations until ctx is cancelled or Close is called.
func (e *Executor) Run(ctx context.Context) {
	defer close(e.stopped)

	for {
		select {
		case <-ctx.Done():
			e.drainQueue(ctx.Err())
			return
		case <-e.done:
			e.drainQueue(ErrExecutorClosed)
			return
		case call := <-e.queue:
			err := e.executeCall(call)
			call.Result <- err
			close(call.Result)
		}
	}
}

// executeCall runs a single operation with panic recovery.
func (e *Executor) executeCall(call *Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("lua panic: %v", v)
			}
		}
	}()
	return call.Fn(e.L)
}

// drainQueue fails every queued operation with err.
func (e *Executor) drainQueue(err error) {
	for {
		select {
		case call := <-e.queue:
			call.Result <- err
			close(call.Result)
		default:
			return
		}
	}
}

// Execute runs fn on the executor goroutine and waits for it. If ctx ends
// while fn is running, Execute returns ctx.Err() without waiting; fn itself
// is expected to observe the same ctx.
func (e *Executor) Execute(ctx context.Context, fn func(L *lua.LState) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	call := &Call{
		Fn:     fn,
		Result: make(chan error, 1),
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- call:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-call.Result:
		if !ok {
			return ErrExecutorClosed
		}
		return err
	}
}

// ExecuteAsync queues fn without waiting. It fails with ErrQueueFull instead
// of blocking.
func (e *Executor) ExecuteAsync(fn func(L *lua.LState) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	call := &Call{
		Fn:     fn,
		Result: make(chan error, 1),
	}

	select {
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- call:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the executor. Queued operations fail with ErrExecutorClosed.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
}

// Wait blocks until Run has returned.
func (e *Executor) Wait() {
	<-e.stopped
}

// IsClosed returns true if the executor has been closed.
func (e *Executor) IsClosed() bool {
	return e.closed.Load()
}
