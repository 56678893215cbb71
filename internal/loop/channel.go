package loop

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/rxloop/internal/stream"
)

// Commit is one committed state and the logical time it was committed at.
// The seed is seq 0.
type Commit[S any] struct {
	Seq   int64
	State S
}

// subscriber is a non-owning reader handle on the state channel.
type subscriber[S any] struct {
	deliver func(Commit[S])
	closed  func()
}

// stateChannel is the single multicast node of a live instance.
//
// There is exactly one writer (the reduction step) and any number of
// readers: every state binder of the pipeline and the interpreter chain.
// A reader sees commits in seq order, each exactly once.
//
// Delivery happens outside the lock, on the writer's goroutine. Readers
// must not block in deliver; binders get a mailbox, the interpreter chain
// hands the commit to its executor.
type stateChannel[S any] struct {
	mu     sync.Mutex
	clock  *Clock
	latest Commit[S]
	seeded bool
	closed bool
	nextID int
	subs   map[int]subscriber[S]
}

func newStateChannel[S any]() *stateChannel[S] {
	return &stateChannel[S]{
		clock: NewClock(),
		subs:  make(map[int]subscriber[S]),
	}
}

// seed commits the initial state at the clock's current value.
func (c *stateChannel[S]) seed(state S) Commit[S] {
	c.mu.Lock()
	if c.seeded {
		c.mu.Unlock()
		panic("loop: state channel seeded twice")
	}
	c.seeded = true
	c.latest = Commit[S]{Seq: c.clock.Current(), State: state}
	commit, subs := c.latest, c.snapshot()
	c.mu.Unlock()

	for _, s := range subs {
		s.deliver(commit)
	}
	return commit
}

// commit publishes the next state. Only the writer calls it.
func (c *stateChannel[S]) commit(state S) Commit[S] {
	c.mu.Lock()
	c.latest = Commit[S]{Seq: c.clock.Next(), State: state}
	commit, subs := c.latest, c.snapshot()
	c.mu.Unlock()

	for _, s := range subs {
		s.deliver(commit)
	}
	return commit
}

// latestCommit returns the most recent commit.
func (c *stateChannel[S]) latestCommit() Commit[S] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// subscribe registers a reader. With replay, a seeded channel hands the
// latest commit to the reader before any later commit. Registration and
// replay share one critical section, so the reader neither misses nor
// duplicates a commit. On a closed channel the reader is closed at once.
func (c *stateChannel[S]) subscribe(s subscriber[S], replay bool) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		if s.closed != nil {
			s.closed()
		}
		return func() {}
	}

	id := c.nextID
	c.nextID++
	c.subs[id] = s
	if replay && c.seeded {
		s.deliver(c.latest)
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// states is the state stream handed to mutation sources. Every
// subscription gets its own mailbox, starts with the latest commit and then
// follows every commit. It completes when the channel is closed.
func (c *stateChannel[S]) states() stream.Stream[S] {
	return func(ctx context.Context, yield func(S) error) error {
		box := stream.NewMailbox[S]()
		cancel := c.subscribe(subscriber[S]{
			deliver: func(commit Commit[S]) { box.Enqueue(commit.State) },
			closed:  box.Close,
		}, true)
		defer cancel()

		for {
			state, ok := box.Receive(ctx)
			if !ok {
				return ctx.Err()
			}
			if err := yield(state); err != nil {
				return err
			}
		}
	}
}

// close completes every reader. Later commits are not delivered.
func (c *stateChannel[S]) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.snapshot()
	c.subs = make(map[int]subscriber[S])
	c.mu.Unlock()

	for _, s := range subs {
		if s.closed != nil {
			s.closed()
		}
	}
}

// snapshot returns the subscribers in registration order. Caller holds mu.
func (c *stateChannel[S]) snapshot() []subscriber[S] {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	subs := make([]subscriber[S], len(ids))
	for i, id := range ids {
		subs[i] = c.subs[id]
	}
	return subs
}
