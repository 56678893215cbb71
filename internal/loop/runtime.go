package loop

import (
	"context"
	"time"

	"github.com/roach88/rxloop/internal/fn"
	"github.com/roach88/rxloop/internal/stream"
)

// Loop is an assembled circuit bound to an initial state. It holds no live
// resources: every Run or Start* call wires a fresh instance with its own
// state channel, seeded with the same initial state.
type Loop[S, M any] struct {
	cfg     Config[S, M]
	initial S
	source  Source[S, M]
}

// Initial returns the state every instance is seeded with.
func (l *Loop[S, M]) Initial() S {
	return l.initial
}

// Run wires an instance and blocks until it terminates. It returns nil when
// every source completed or a cutoff fired, ctx.Err() when ctx was
// cancelled, and a *RuntimeError for faults.
func (l *Loop[S, M]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	h := newHandle(l.cfg.IDs.Generate(), cancel)
	l.wire(ctx, h)
	return h.Err()
}

// Start wires an instance immediately, in the background.
func (l *Loop[S, M]) Start(ctx context.Context) *Handle {
	return l.StartWhen(ctx, nil)
}

// StartWhen defers wiring until sig first fires; a nil signal starts at
// once. The seed reaches the interpreters at trigger time. If ctx is done
// or the handle is cancelled before the signal fires, the instance
// terminates without ever being wired.
func (l *Loop[S, M]) StartWhen(ctx context.Context, sig stream.Signal) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := newHandle(l.cfg.IDs.Generate(), cancel)

	go func() {
		if sig != nil {
			select {
			case <-sig:
			case <-ctx.Done():
			}
		}
		if err := ctx.Err(); err != nil {
			l.cfg.Logger.Debug("loop cancelled before start", "loop_id", h.ID())
			h.finish(err)
			return
		}
		l.wire(ctx, h)
	}()

	return h
}

// StartAfter is StartWhen with a one-shot timer.
func (l *Loop[S, M]) StartAfter(ctx context.Context, d time.Duration) *Handle {
	return l.StartWhen(ctx, stream.After(d))
}

// TakeUntil returns a loop with the same reducer and interpreters whose
// pipeline stops accepting mutations once sig first fires. Mutations
// accepted before the cutoff are still reduced and interpreted, then the
// instance completes.
func (l *Loop[S, M]) TakeUntil(sig stream.Signal) *Loop[S, M] {
	cutoff := func(mutations stream.Stream[M]) stream.Stream[M] {
		return stream.TakeUntil(mutations, sig)
	}
	next := *l
	next.source = fn.Sequential(l.source, cutoff)
	return &next
}

func (l *Loop[S, M]) wire(ctx context.Context, h *Handle) {
	in := newInstance(l, h)
	h.finish(in.run(ctx))
}
