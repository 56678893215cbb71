package stream

import (
	"context"
	"sync"
	"time"
)

// Signal is a one-shot event source. It fires when the channel is closed or
// delivers a value; only the first occurrence matters.
//
// A context's Done channel is a Signal. Prefer closing over sending: a
// closed signal can gate any number of loops, a sent value is observed by
// exactly one of them.
type Signal <-chan struct{}

// After returns a signal that fires once d has elapsed.
func After(d time.Duration) Signal {
	ch := make(chan struct{})
	time.AfterFunc(d, func() { close(ch) })
	return ch
}

// SignalFromContext fires when ctx is done.
func SignalFromContext(ctx context.Context) Signal {
	return ctx.Done()
}

// Fired reports, without blocking, whether sig has fired. On a send-style
// signal it consumes the value.
func Fired(sig Signal) bool {
	if sig == nil {
		return false
	}
	select {
	case <-sig:
		return true
	default:
		return false
	}
}

// Trigger is a signal fired explicitly by the host.
//
// Thread-safety: Fire may be called from any goroutine, any number of times.
type Trigger struct {
	once sync.Once
	ch   chan struct{}
}

// NewTrigger creates an unfired trigger.
func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan struct{})}
}

// Fire fires the trigger. Calls after the first are no-ops.
func (t *Trigger) Fire() {
	t.once.Do(func() { close(t.ch) })
}

// Signal returns the trigger's signal.
func (t *Trigger) Signal() Signal {
	return t.ch
}
