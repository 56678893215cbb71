package harness

import (
	"context"
	"errors"

	"github.com/roach88/rxloop/internal/loop"
	"github.com/roach88/rxloop/internal/stream"
)

var errScriptDone = errors.New("harness: script exhausted")

// script is the mutation source of a scenario. It is a state binder: every
// observed state, the seed included, yields at most one mutation, so the
// next mutation is only produced once the previous one has been committed.
type script struct {
	rules     []Rule
	mutations []Mutation
	maxSteps  int
}

func newScript(s *Scenario) *script {
	return &script{
		rules:     s.Rules,
		mutations: s.Mutations,
		maxSteps:  s.MaxSteps,
	}
}

// next picks the mutation for state: the first matching rule, else the next
// scripted mutation. ok is false once neither applies.
func (p *script) next(state Counters, cursor *int) (Mutation, bool) {
	for _, r := range p.rules {
		if r.When.Matches(state) {
			return r.Emit, true
		}
	}
	if *cursor < len(p.mutations) {
		m := p.mutations[*cursor]
		*cursor++
		return m, true
	}
	return Mutation{}, false
}

func (p *script) source() loop.Source[Counters, Mutation] {
	return func(states stream.Stream[Counters]) stream.Stream[Mutation] {
		return func(ctx context.Context, yield func(Mutation) error) error {
			cursor := 0
			quota := NewQuotaEnforcer(p.maxSteps)

			err := states.Subscribe(ctx, func(state Counters) error {
				m, ok := p.next(state, &cursor)
				if !ok {
					return errScriptDone
				}
				if err := quota.Check(); err != nil {
					return err
				}
				return yield(m)
			})
			if errors.Is(err, errScriptDone) {
				return nil
			}
			return err
		}
	}
}
