package loop

import (
	"context"

	"github.com/roach88/rxloop/internal/fn"
	"github.com/roach88/rxloop/internal/stream"
)

// Source turns the state stream into a stream of mutations.
//
// A source may ignore the states entirely (an emitter of external input)
// or derive its mutations from them (a state binder). Each invocation must
// start fresh producers: a loop invokes its sources once per live instance.
type Source[S, M any] func(states stream.Stream[S]) stream.Stream[M]

// Transform is a same-type stage applied to the merged mutation stream.
type Transform[M any] func(mutations stream.Stream[M]) stream.Stream[M]

// Reducer folds a mutation into the latest committed state. It must be
// pure; a panic is a reducer fault.
type Reducer[S, M any] func(state S, mutation M) S

// Interpreter performs side effects for a committed state.
type Interpreter[S any] func(state S)

// Pair binds a mutation to the state it will be reduced against: the state
// most recently committed when the mutation was accepted.
type Pair[S, M any] struct {
	Mutation M
	State    S
	Seq      int64
}

// Bind builds a state binder from a stage that derives intermediate
// values from the states and a stage that turns them into mutations.
func Bind[S, X, M any](binder func(stream.Stream[S]) stream.Stream[X], emit func(stream.Stream[X]) stream.Stream[M]) Source[S, M] {
	return fn.Sequential(binder, emit)
}

// Then appends transforms to a source, applied in order.
func Then[S, M any](source Source[S, M], transforms ...Transform[M]) Source[S, M] {
	out := source
	for _, t := range transforms {
		out = fn.Sequential(out, t)
	}
	return out
}

// Emitter lifts a producer that does not read the states into a Source.
func Emitter[S, M any](produce func() stream.Stream[M]) Source[S, M] {
	return func(stream.Stream[S]) stream.Stream[M] {
		return produce()
	}
}

// Binder lifts a per-state function into a Source: f runs for every state
// the source observes, the seed included, and its mutations are
// concatenated in observation order.
func Binder[S, M any](f func(S) []M) Source[S, M] {
	return func(states stream.Stream[S]) stream.Stream[M] {
		return func(ctx context.Context, yield func(M) error) error {
			return states.Subscribe(ctx, func(s S) error {
				for _, m := range f(s) {
					if err := yield(m); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
}

// compose merges every source over the same state stream and applies the
// transforms to the merged mutations.
func compose[S, M any](sources []Source[S, M], transforms []Transform[M]) Source[S, M] {
	binders := make([]func(stream.Stream[S]) stream.Stream[M], len(sources))
	for i, s := range sources {
		binders[i] = s
	}
	return Then[S, M](fn.MergeBinders(binders...), transforms...)
}
