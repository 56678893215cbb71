package journal

import (
	"context"
	"fmt"

	"github.com/roach88/rxloop/internal/codec"
	"github.com/roach88/rxloop/internal/loop"
	"github.com/roach88/rxloop/internal/stream"
)

// Interpreter returns a loop interpreter that appends every committed
// state of one instance to run, seq 0 first.
//
// The interpreter must see every commit of the instance, in order, which
// holds for any interpreter in the chain. It counts commits itself, so
// build one per instance: each Run or Start journals under its own run.
// A failed write panics; the loop reports it as an interpreter fault and
// keeps running, and the next commit is written at its own seq.
func Interpreter[S any](j *Journal, run string) loop.Interpreter[S] {
	var next int64
	return func(state S) {
		seq := next
		next++
		payload, err := codec.MarshalCanonical(state)
		if err != nil {
			panic(fmt.Errorf("journal %s: encode state %d: %w", run, seq, err))
		}
		if err := j.AppendCommit(context.Background(), run, seq, payload); err != nil {
			panic(err)
		}
	}
}

// MutationTap returns a transform that appends every mutation to run once
// the rest of the pipeline, reduction included, has accepted it. A
// mutation whose reduction faulted is not recorded. A failed write fails
// the pipeline.
func MutationTap[M any](j *Journal, run string) loop.Transform[M] {
	return func(mutations stream.Stream[M]) stream.Stream[M] {
		return func(ctx context.Context, yield func(M) error) error {
			var seq int64
			return mutations.Subscribe(ctx, func(m M) error {
				if err := yield(m); err != nil {
					return err
				}
				seq++
				payload, err := codec.MarshalCanonical(m)
				if err != nil {
					return fmt.Errorf("journal %s: encode mutation %d: %w", run, seq, err)
				}
				return j.AppendMutation(ctx, run, seq, payload)
			})
		}
	}
}
