package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/rxloop/internal/fn"
	"github.com/roach88/rxloop/internal/stream"
)

// instance is one live wiring of a loop: pipeline, feedback core and
// interpreter chain around a fresh state channel.
type instance[S, M any] struct {
	id      string
	handle  *Handle
	initial S
	source  Source[S, M]
	reducer Reducer[S, M]
	exec    stream.Executor
	onFault func(error)
	obs     Observer
	log     *slog.Logger

	channel *stateChannel[S]
	chain   func(Commit[S])

	// interpreting is cleared on cancellation; queued interpretations
	// check it before they start.
	interpreting atomic.Bool
}

func newInstance[S, M any](l *Loop[S, M], h *Handle) *instance[S, M] {
	in := &instance[S, M]{
		id:      h.ID(),
		handle:  h,
		initial: l.initial,
		source:  l.source,
		reducer: l.cfg.Reducer,
		exec:    l.cfg.Executor,
		onFault: l.cfg.OnInterpreterError,
		obs:     l.cfg.Observer,
		log:     l.cfg.Logger.With("loop_id", h.ID()),
		channel: newStateChannel[S](),
	}

	guarded := make([]func(Commit[S]), len(l.cfg.Interpreters))
	for i, interp := range l.cfg.Interpreters {
		guarded[i] = in.guard(i, interp)
	}
	in.chain = fn.ConcatSideEffects(guarded...)
	return in
}

// run drives the instance from seeding to termination and returns the
// termination cause.
func (in *instance[S, M]) run(ctx context.Context) error {
	in.handle.advance(PhaseSeeding)
	in.obs.LoopStarted(in.id)
	in.log.Info("loop starting")

	in.interpreting.Store(true)
	stop := context.AfterFunc(ctx, func() { in.interpreting.Store(false) })
	defer stop()

	// The interpreter chain is subscribed before the seed so the seed is
	// the first state it interprets.
	unsubscribe := in.channel.subscribe(subscriber[S]{deliver: in.schedule}, false)
	seed := in.channel.seed(in.initial)
	in.obs.StateCommitted(in.id, seed.Seq)
	in.log.Debug("loop seeded", "seq", seed.Seq)

	// A stopped executor drops every later commit, so the sources are
	// cancelled with it.
	runCtx, stopRun := context.WithCancelCause(ctx)
	defer stopRun(nil)
	if s, ok := in.exec.(stream.Stopper); ok {
		go func() {
			select {
			case <-s.Done():
				stopRun(stream.ErrExecutorStopped)
			case <-runCtx.Done():
			}
		}()
	}

	in.handle.advance(PhaseRunning)
	err := in.source(in.channel.states()).Subscribe(runCtx, in.reduce)
	err = in.classify(ctx, runCtx, err)

	if isCancellation(ctx, err) {
		in.interpreting.Store(false)
	} else {
		// Natural termination and faults: committed states still get
		// interpreted.
		flushErr := stream.Flush(ctx, in.exec)
		switch {
		case err != nil:
			// The pipeline's cause wins.
		case errors.Is(flushErr, stream.ErrExecutorStopped):
			err = in.executorStopped()
		case flushErr != nil:
			err = flushErr
		}
	}

	unsubscribe()
	in.channel.close()
	in.obs.LoopTerminated(in.id, err)

	last := in.channel.latestCommit().Seq
	switch {
	case err == nil:
		in.log.Info("loop terminated", "seq", last)
	case isCancellation(ctx, err):
		in.log.Info("loop cancelled", "seq", last)
	default:
		in.log.Error("loop failed", "seq", last, "error", err)
	}
	return err
}

// reduce pairs m with the latest commit, folds it and commits the result.
// Merge serializes calls, so each reduction commits before the next
// mutation is paired.
func (in *instance[S, M]) reduce(m M) error {
	latest := in.channel.latestCommit()
	pair := Pair[S, M]{Mutation: m, State: latest.State, Seq: latest.Seq}

	start := time.Now()
	next, err := in.apply(pair)
	if err != nil {
		return err
	}
	in.obs.MutationReduced(in.id, time.Since(start))

	commit := in.channel.commit(next)
	in.obs.StateCommitted(in.id, commit.Seq)
	in.log.Debug("state committed", "seq", commit.Seq)
	return nil
}

func (in *instance[S, M]) apply(p Pair[S, M]) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(ErrCodeReducerFault, "reducer panicked", in.id, p.Seq+1, r)
		}
	}()
	return in.reducer(p.State, p.Mutation), nil
}

// classify maps the pipeline's result to the instance's termination cause.
func (in *instance[S, M]) classify(ctx, runCtx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(context.Cause(runCtx), stream.ErrExecutorStopped):
		return in.executorStopped()
	case IsReducerFault(err):
		return err
	default:
		return &RuntimeError{
			Code:    ErrCodeSourceFailed,
			Message: "mutation source failed",
			LoopID:  in.id,
			Seq:     in.channel.latestCommit().Seq,
			Err:     err,
		}
	}
}

func (in *instance[S, M]) executorStopped() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeExecutorStopped,
		Message: "interpretation executor stopped",
		LoopID:  in.id,
		Seq:     in.channel.latestCommit().Seq,
		Err:     stream.ErrExecutorStopped,
	}
}

// schedule hands a commit to the interpretation executor.
func (in *instance[S, M]) schedule(c Commit[S]) {
	in.exec.Execute(func() {
		if !in.interpreting.Load() {
			return
		}
		in.chain(c)
	})
}

// guard isolates one interpreter: a panic is reported and the rest of the
// chain still runs.
func (in *instance[S, M]) guard(index int, interp Interpreter[S]) func(Commit[S]) {
	return func(c Commit[S]) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err := newPanicError(ErrCodeInterpreterFault, fmt.Sprintf("interpreter %d panicked", index), in.id, c.Seq, r)
			in.log.Warn("interpreter failed", "seq", c.Seq, "interpreter", index, "error", err)
			in.obs.InterpreterFailed(in.id, err)
			if in.onFault != nil {
				in.onFault(err)
			}
		}()
		interp(c.State)
	}
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && err == ctx.Err()
}
