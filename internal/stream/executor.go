package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrExecutorStopped is returned by Flush when the executor shut down
// before the barrier ran.
var ErrExecutorStopped = errors.New("stream: executor stopped")

// Executor is an execution context: it runs tasks somewhere, in the order
// they were handed over.
type Executor interface {
	Execute(task func())
}

// Stopper is implemented by executors that can shut down. Done is closed
// once the executor no longer runs tasks.
type Stopper interface {
	Done() <-chan struct{}
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func())

// Execute calls f(task).
func (f ExecutorFunc) Execute(task func()) { f(task) }

// Immediate runs every task synchronously on the calling goroutine.
var Immediate Executor = ExecutorFunc(func(task func()) { task() })

// SerialExecutor runs tasks one at a time, in FIFO order, on a dedicated
// goroutine.
//
// Thread-safety: Execute may be called from any goroutine. Tasks handed
// over after Close are dropped.
type SerialExecutor struct {
	tasks *Mailbox[func()]
	done  chan struct{}
	once  sync.Once
}

// NewSerialExecutor starts a serial executor. Close it when no longer needed.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{
		tasks: NewMailbox[func()](),
		done:  make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *SerialExecutor) loop() {
	defer close(e.done)
	ctx := context.Background()
	for {
		task, ok := e.tasks.Receive(ctx)
		if !ok {
			return
		}
		task()
	}
}

// Execute queues task.
func (e *SerialExecutor) Execute(task func()) {
	e.tasks.Enqueue(task)
}

// Close stops accepting tasks. Queued tasks still run; Done closes after
// the last one.
func (e *SerialExecutor) Close() {
	e.once.Do(e.tasks.Close)
}

// Done is closed once the executor has stopped.
func (e *SerialExecutor) Done() <-chan struct{} {
	return e.done
}

// Flush waits until every task handed to exec before the call has run, or
// ctx is done. If exec is a Stopper that shuts down first, Flush returns
// ErrExecutorStopped.
func Flush(ctx context.Context, exec Executor) error {
	barrier := make(chan struct{})
	exec.Execute(func() { close(barrier) })

	var stopped <-chan struct{}
	if s, ok := exec.(Stopper); ok {
		stopped = s.Done()
	}
	select {
	case <-barrier:
		return nil
	case <-stopped:
		// The barrier may have been the last task to run.
		select {
		case <-barrier:
			return nil
		default:
			return ErrExecutorStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
