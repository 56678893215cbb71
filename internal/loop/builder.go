package loop

import (
	"log/slog"
	"slices"

	"github.com/roach88/rxloop/internal/stream"
)

// Builder is an immutable assembly value. Every method returns a new
// Builder and leaves the receiver untouched, so a partially configured
// builder can be shared and extended in different directions.
//
//	factory, err := loop.Mutate(clicks, ticks).
//		Reduce(reduce).
//		Interpret(render).
//		On(stream.Immediate).
//		Build()
type Builder[S, M any] struct {
	cfg Config[S, M]
}

// Mutate starts a builder with the given mutation sources.
func Mutate[S, M any](sources ...Source[S, M]) Builder[S, M] {
	return Builder[S, M]{cfg: Config[S, M]{Sources: slices.Clone(sources)}}
}

// Merge adds sources merged with the existing ones.
func (b Builder[S, M]) Merge(sources ...Source[S, M]) Builder[S, M] {
	b.cfg.Sources = append(slices.Clone(b.cfg.Sources), sources...)
	return b
}

// Transform appends stages applied to the merged mutations.
func (b Builder[S, M]) Transform(transforms ...Transform[M]) Builder[S, M] {
	b.cfg.Transforms = append(slices.Clone(b.cfg.Transforms), transforms...)
	return b
}

// Reduce sets the reducer.
func (b Builder[S, M]) Reduce(r Reducer[S, M]) Builder[S, M] {
	b.cfg.Reducer = r
	return b
}

// Interpret appends interpreters to the chain.
func (b Builder[S, M]) Interpret(interpreters ...Interpreter[S]) Builder[S, M] {
	b.cfg.Interpreters = append(slices.Clone(b.cfg.Interpreters), interpreters...)
	return b
}

// On sets the interpretation executor.
func (b Builder[S, M]) On(exec stream.Executor) Builder[S, M] {
	b.cfg.Executor = exec
	return b
}

// OnInterpreterError sets the interpreter fault hook.
func (b Builder[S, M]) OnInterpreterError(hook func(error)) Builder[S, M] {
	b.cfg.OnInterpreterError = hook
	return b
}

// WithLogger sets the logger; nil falls back to slog.Default().
func (b Builder[S, M]) WithLogger(logger *slog.Logger) Builder[S, M] {
	b.cfg.Logger = logger
	return b
}

// WithObserver sets the lifecycle observer; nil means NopObserver.
func (b Builder[S, M]) WithObserver(o Observer) Builder[S, M] {
	b.cfg.Observer = o
	return b
}

// WithIDGenerator sets the source of instance IDs; nil means
// UUIDv7Generator.
func (b Builder[S, M]) WithIDGenerator(ids IDGenerator) Builder[S, M] {
	b.cfg.IDs = ids
	return b
}

// Config returns a copy of the accumulated configuration.
func (b Builder[S, M]) Config() Config[S, M] {
	c := b.cfg
	c.Sources = slices.Clone(c.Sources)
	c.Transforms = slices.Clone(c.Transforms)
	c.Interpreters = slices.Clone(c.Interpreters)
	return c
}

// Build validates the configuration and returns a loop factory.
func (b Builder[S, M]) Build() (Factory[S, M], error) {
	return New(b.cfg)
}
