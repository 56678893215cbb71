package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rxloop/internal/journal"
	"github.com/roach88/rxloop/internal/loop"
	"github.com/roach88/rxloop/internal/stream"
	"github.com/roach88/rxloop/internal/testutil"
)

type options struct {
	journal  *journal.Journal
	run      string
	observer loop.Observer
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*options)

// WithJournal records the run's mutations and commits under run.
func WithJournal(j *journal.Journal, run string) Option {
	return func(o *options) {
		o.journal = j
		o.run = run
	}
}

// WithObserver attaches a loop observer, e.g. the metrics collector.
func WithObserver(obs loop.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithLogger replaces the default logger, which discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// LoopID is the instance id a scenario's loop runs under.
func LoopID(s *Scenario) string {
	return "scenario-" + s.Name
}

// Run executes a scenario and evaluates its expectations.
//
// Loop faults are part of the result, not the returned error: a scenario
// may expect one. The error is non-nil only when the run could not be set
// up or ctx ended it.
//
// Execution is deterministic: a fixed instance id, logical trace stamps and
// in-order interpretation on the committing goroutine.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	result := NewResult()
	clock := testutil.NewDeterministicClock()
	recorder := testutil.NewRecorder[TraceStep]()
	cutoff := stream.NewTrigger()

	trace := func(state Counters) {
		recorder.Interpret(TraceStep{Seq: clock.Stamp(), State: state.Clone()})
		if s.TakeUntilCommits > 0 && recorder.Len() > s.TakeUntilCommits {
			cutoff.Fire()
		}
	}

	b := loop.Mutate[Counters, Mutation](newScript(s).source()).
		Reduce(Reduce).
		Interpret(trace).
		On(stream.Immediate).
		WithLogger(o.logger).
		WithIDGenerator(testutil.NewFixedIDGenerator(LoopID(s)))
	if o.observer != nil {
		b = b.WithObserver(o.observer)
	}
	if o.journal != nil {
		if err := o.journal.BeginRun(ctx, o.run, LoopID(s), s.Name); err != nil {
			return nil, err
		}
		b = b.Transform(journal.MutationTap[Mutation](o.journal, o.run)).
			Interpret(journal.Interpreter[Counters](o.journal, o.run))
	}

	factory, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build scenario loop: %w", err)
	}

	l := factory(s.Initial.Clone())
	if s.TakeUntilCommits > 0 {
		l = l.TakeUntil(cutoff.Signal())
	}

	var runErr error
	if d := s.Delay(); d > 0 {
		runErr = l.StartAfter(ctx, d).Wait(ctx)
	} else {
		runErr = l.Run(ctx)
	}

	result.Trace = recorder.States()
	result.Err = runErr
	result.ErrorKind = ClassifyError(runErr)

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(runErr, ctxErr) {
		return result, ctxErr
	}

	evaluateExpectations(result, s.Expect)
	return result, nil
}

// ClassifyError maps a loop termination error to an expected error kind.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCancelled
	case loop.IsReducerFault(err):
		return ErrorReducerFault
	case IsStepsExceededError(err):
		return ErrorQuotaExceeded
	case loop.IsSourceFailure(err):
		return ErrorSourceFailed
	default:
		return ErrorOther
	}
}
