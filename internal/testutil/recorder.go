package testutil

import (
	"sync"
	"time"
)

// Recorder captures every state handed to its Interpret method. Use the
// method value as a loop interpreter:
//
//	rec := testutil.NewRecorder[Counter]()
//	loop.Mutate(src).Interpret(rec.Interpret)
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder[S any] struct {
	mu     sync.Mutex
	states []S
	notify chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder[S any]() *Recorder[S] {
	return &Recorder[S]{notify: make(chan struct{}, 1)}
}

// Interpret records s.
func (r *Recorder[S]) Interpret(s S) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// States returns a copy of the recorded states, in interpretation order.
func (r *Recorder[S]) States() []S {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]S(nil), r.states...)
}

// Len returns the number of recorded states.
func (r *Recorder[S]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// WaitFor blocks until at least n states were recorded. It returns false
// if timeout elapses first.
func (r *Recorder[S]) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if r.Len() >= n {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return r.Len() >= n
		}
	}
}
