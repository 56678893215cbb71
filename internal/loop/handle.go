package loop

import (
	"context"
	"sync"
	"sync/atomic"
)

// Phase is the lifecycle position of a live instance. Phases only move
// forward: Unwired, Seeding, Running, Terminated.
type Phase int32

const (
	// PhaseUnwired: the instance waits for its start signal.
	PhaseUnwired Phase = iota
	// PhaseSeeding: the state channel exists and the seed is being committed.
	PhaseSeeding
	// PhaseRunning: sources are subscribed and mutations are reduced.
	PhaseRunning
	// PhaseTerminated: the instance is gone. Err reports why.
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnwired:
		return "unwired"
	case PhaseSeeding:
		return "seeding"
	case PhaseRunning:
		return "running"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Handle controls one live instance of a loop.
//
// Thread-safety: every method is safe for concurrent use.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	phase  atomic.Int32

	mu  sync.Mutex
	err error
}

func newHandle(id string, cancel context.CancelFunc) *Handle {
	return &Handle{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the instance's loop id.
func (h *Handle) ID() string {
	return h.id
}

// Cancel stops the instance: consumption, reduction and interpretation
// stop together. Calling it more than once, or after termination, is a
// no-op.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed once the instance has terminated.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns why the instance terminated: nil for natural completion,
// context.Canceled after Cancel, a *RuntimeError for faults. It returns
// nil while the instance is still live.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the instance terminates or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Phase returns the current lifecycle phase.
func (h *Handle) Phase() Phase {
	return Phase(h.phase.Load())
}

func (h *Handle) advance(p Phase) {
	h.phase.Store(int32(p))
}

// finish records the outcome and releases waiters. Called exactly once.
func (h *Handle) finish(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()

	h.advance(PhaseTerminated)
	h.cancel()
	close(h.done)
}
