package loop

import (
	"log/slog"
	"slices"

	"github.com/roach88/rxloop/internal/stream"
)

// Config assembles a loop. Sources, Reducer, Interpreters and Executor are
// required; the rest have defaults.
type Config[S, M any] struct {
	// Sources are merged over the same state stream.
	Sources []Source[S, M]

	// Transforms run over the merged mutations, in order.
	Transforms []Transform[M]

	Reducer Reducer[S, M]

	// Interpreters run for every commit, in order.
	Interpreters []Interpreter[S]

	// Executor runs the interpreter chain. There is no default:
	// stream.Immediate interprets on the reducing goroutine, a
	// stream.SerialExecutor on its own goroutine.
	Executor stream.Executor

	// OnInterpreterError is called, on Executor, with every interpreter
	// fault.
	OnInterpreterError func(err error)

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observer defaults to NopObserver.
	Observer Observer

	// IDs defaults to UUIDv7Generator.
	IDs IDGenerator
}

// Factory binds an assembled loop to an initial state.
type Factory[S, M any] func(initial S) *Loop[S, M]

// New validates cfg and returns a factory for loops with that wiring.
// The config is copied; later changes to cfg have no effect.
func New[S, M any](cfg Config[S, M]) (Factory[S, M], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	source := compose(cfg.Sources, cfg.Transforms)

	return func(initial S) *Loop[S, M] {
		return &Loop[S, M]{
			cfg:     cfg,
			initial: initial,
			source:  source,
		}
	}, nil
}

func (c Config[S, M]) validate() error {
	if len(c.Sources) == 0 {
		return newConfigError("at least one mutation source is required")
	}
	for i, s := range c.Sources {
		if s == nil {
			return newConfigError("source %d is nil", i)
		}
	}
	for i, t := range c.Transforms {
		if t == nil {
			return newConfigError("transform %d is nil", i)
		}
	}
	if c.Reducer == nil {
		return newConfigError("a reducer is required")
	}
	if len(c.Interpreters) == 0 {
		return newConfigError("at least one interpreter is required")
	}
	for i, in := range c.Interpreters {
		if in == nil {
			return newConfigError("interpreter %d is nil", i)
		}
	}
	if c.Executor == nil {
		return newConfigError("an interpretation executor is required")
	}
	return nil
}

func (c Config[S, M]) withDefaults() Config[S, M] {
	c.Sources = slices.Clone(c.Sources)
	c.Transforms = slices.Clone(c.Transforms)
	c.Interpreters = slices.Clone(c.Interpreters)
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	if c.IDs == nil {
		c.IDs = UUIDv7Generator{}
	}
	return c
}
