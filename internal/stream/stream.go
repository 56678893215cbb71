package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stream is a cold, push-based sequence of values.
//
// Calling a Stream subscribes to it: the producer starts and delivers values
// to yield, one at a time and in order. The call returns when the producer
// completes (nil), fails (non-nil), or ctx is done (ctx.Err()). A non-nil
// error returned by yield stops the producer, and the producer returns it
// (possibly wrapped).
//
// Every call starts a fresh producer; a Stream holds no state between
// subscriptions.
type Stream[T any] func(ctx context.Context, yield func(T) error) error

// Subscribe runs the stream. A nil stream completes immediately.
func (s Stream[T]) Subscribe(ctx context.Context, yield func(T) error) error {
	if s == nil {
		return nil
	}
	return s(ctx, yield)
}

// Of emits values in order, then completes.
func Of[T any](values ...T) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		for _, v := range values {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := yield(v); err != nil {
				return err
			}
		}
		return nil
	}
}

// Empty completes without emitting.
func Empty[T any]() Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		return nil
	}
}

// Never emits nothing and stays open until ctx is done.
func Never[T any]() Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		<-ctx.Done()
		return ctx.Err()
	}
}

// Fail terminates immediately with err.
func Fail[T any](err error) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		return err
	}
}

// FromChannel emits every value received from ch and completes when ch is
// closed.
func FromChannel[T any](ch <-chan T) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case v, ok := <-ch:
				if !ok {
					return nil
				}
				if err := yield(v); err != nil {
					return err
				}
			}
		}
	}
}

// Map applies f to every value.
func Map[A, B any](s Stream[A], f func(A) B) Stream[B] {
	return func(ctx context.Context, yield func(B) error) error {
		return s.Subscribe(ctx, func(v A) error {
			return yield(f(v))
		})
	}
}

// Filter keeps the values for which keep returns true.
func Filter[T any](s Stream[T], keep func(T) bool) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		return s.Subscribe(ctx, func(v T) error {
			if !keep(v) {
				return nil
			}
			return yield(v)
		})
	}
}

// StartWith emits values before the values of s.
func StartWith[T any](s Stream[T], values ...T) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		if err := Of(values...)(ctx, yield); err != nil {
			return err
		}
		return s.Subscribe(ctx, yield)
	}
}

// Delay shifts every value of s by d, keeping their order.
func Delay[T any](s Stream[T], d time.Duration) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		return s.Subscribe(ctx, func(v T) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
			return yield(v)
		})
	}
}

// Merge subscribes to every stream concurrently and forwards their values
// in arrival order.
//
// Deliveries to yield are serialized: yield is never called concurrently,
// and a value is only handed over after the previous yield returned. Each
// source keeps its own relative order; there is no ordering across
// sources. The merged stream completes when every source has completed and
// fails with the first source (or yield) error, cancelling the others.
func Merge[T any](streams ...Stream[T]) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		if len(streams) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		var mu sync.Mutex

		serialized := func(v T) error {
			mu.Lock()
			defer mu.Unlock()
			if err := gctx.Err(); err != nil {
				return err
			}
			return yield(v)
		}

		for _, s := range streams {
			g.Go(func() error {
				return s.Subscribe(gctx, serialized)
			})
		}

		err := g.Wait()
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}

// errCutoff stops the upstream producer of TakeUntil.
var errCutoff = errors.New("stream: take-until cutoff")

// TakeUntil forwards the values of s until sig first fires, then completes.
//
// A value is accepted only if the signal has not fired when the value is
// handed over; values accepted before the cutoff have been fully yielded.
// After the cutoff the producers of s are cancelled and nothing else is
// forwarded.
func TakeUntil[T any](s Stream[T], sig Signal) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		inner, cancel := context.WithCancel(ctx)
		defer cancel()

		latch := make(chan struct{})
		var once sync.Once
		trip := func() {
			once.Do(func() {
				close(latch)
				cancel()
			})
		}

		fired := func() bool {
			select {
			case <-latch:
				return true
			default:
			}
			if Fired(sig) {
				trip()
				return true
			}
			return false
		}

		go func() {
			select {
			case <-sig:
				trip()
			case <-inner.Done():
			}
		}()

		err := s.Subscribe(inner, func(v T) error {
			if fired() {
				return errCutoff
			}
			return yield(v)
		})

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if fired() && (err == nil || errors.Is(err, errCutoff) || errors.Is(err, context.Canceled)) {
			return nil
		}
		return err
	}
}

// ObserveOn hands every value of s to yield on exec. With a FIFO executor
// the order of values is preserved. The stream returns once every value
// scheduled on exec has been delivered (or ctx is done).
func ObserveOn[T any](s Stream[T], exec Executor) Stream[T] {
	return func(ctx context.Context, yield func(T) error) error {
		var (
			mu     sync.Mutex
			failed error
		)
		failure := func() error {
			mu.Lock()
			defer mu.Unlock()
			return failed
		}

		err := s.Subscribe(ctx, func(v T) error {
			if err := failure(); err != nil {
				return err
			}
			exec.Execute(func() {
				if failure() != nil {
					return
				}
				if err := yield(v); err != nil {
					mu.Lock()
					if failed == nil {
						failed = err
					}
					mu.Unlock()
				}
			})
			return nil
		})

		if flushErr := Flush(ctx, exec); flushErr != nil && err == nil {
			err = flushErr
		}
		if err == nil {
			err = failure()
		}
		return err
	}
}

// Collect subscribes to s and returns every value it emitted.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	var out []T
	err := s.Subscribe(ctx, func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}
