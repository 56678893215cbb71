// Package fn holds the stateless combinators used to assemble loops
// declaratively.
//
// Every combinator is structural: it wires functions together and never
// recovers a panic or swallows an error raised by one of them.
package fn

import "github.com/roach88/rxloop/internal/stream"

// Sequential composes f1 and f2: a ↦ f2(f1(a)).
func Sequential[A, B, C any](f1 func(A) B, f2 func(B) C) func(A) C {
	return func(a A) C {
		return f2(f1(a))
	}
}

// Aggregate threads the output of f1 into f2 alongside a second,
// independently supplied argument: (a, c) ↦ f2(f1(a), c).
//
// Typical use pairs a pipeline output with the current state.
func Aggregate[A, B, C, D any](f1 func(A) B, f2 func(B, C) D) func(A, C) D {
	return func(a A, c C) D {
		return f2(f1(a), c)
	}
}

// FanOutOverTwoArgs composes a two-argument f1 with f2: (a, b) ↦ f2(f1(a, b)).
func FanOutOverTwoArgs[A, B, C, D any](f1 func(A, B) C, f2 func(C) D) func(A, B) D {
	return func(a A, b B) D {
		return f2(f1(a, b))
	}
}

// Flatten applies every function to the same input. The output order
// matches the argument order.
func Flatten[A, B any](funcs ...func(A) B) func(A) []B {
	return func(a A) []B {
		out := make([]B, len(funcs))
		for i, f := range funcs {
			out[i] = f(a)
		}
		return out
	}
}

// MergeStreams starts every producer and interleaves their values in
// arrival order. The merged stream stays open while any producer is open.
func MergeStreams[A any](funcs ...func() stream.Stream[A]) func() stream.Stream[A] {
	return func() stream.Stream[A] {
		streams := make([]stream.Stream[A], len(funcs))
		for i, f := range funcs {
			streams[i] = f()
		}
		return stream.Merge(streams...)
	}
}

// MergeBinders is MergeStreams for producers that take an input, such as
// state binders: every binder receives the same input and their outputs are
// merged.
func MergeBinders[A, B any](funcs ...func(A) stream.Stream[B]) func(A) stream.Stream[B] {
	return Sequential(Flatten(funcs...), mergeAll[B])
}

func mergeAll[B any](streams []stream.Stream[B]) stream.Stream[B] {
	return stream.Merge(streams...)
}

// ConcatSideEffects invokes every function, in order, synchronously.
func ConcatSideEffects[A any](funcs ...func(A)) func(A) {
	return func(a A) {
		for _, f := range funcs {
			f(a)
		}
	}
}
