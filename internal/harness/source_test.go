package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxloop/internal/stream"
)

func TestScript_RulesWinOverMutations(t *testing.T) {
	three := int64(3)
	p := newScript(&Scenario{
		Rules: []Rule{{
			When: Condition{Key: "n", Gte: &three},
			Emit: Mutation{Op: OpSet, Key: "n", By: 0},
		}},
		Mutations: []Mutation{{Op: OpAdd, Key: "n", By: 1}},
	})
	cursor := 0

	m, ok := p.next(Counters{"n": 3}, &cursor)
	assert.True(t, ok)
	assert.Equal(t, OpSet, m.Op)
	assert.Equal(t, 0, cursor, "a rule does not consume the script")

	m, ok = p.next(Counters{"n": 0}, &cursor)
	assert.True(t, ok)
	assert.Equal(t, OpAdd, m.Op)

	_, ok = p.next(Counters{"n": 1}, &cursor)
	assert.False(t, ok)
}

func TestScript_InvocationsCountStepsSeparately(t *testing.T) {
	src := newScript(&Scenario{
		Mutations: []Mutation{
			{Op: OpAdd, Key: "n", By: 1},
			{Op: OpAdd, Key: "n", By: 1},
		},
		MaxSteps: 2,
	}).source()
	states := stream.Of(Counters{"n": 0}, Counters{"n": 1}, Counters{"n": 2})
	ctx := context.Background()

	var outer, inner int
	err := src(states).Subscribe(ctx, func(Mutation) error {
		outer++
		if outer > 1 {
			return nil
		}
		// A second instance runs to completion while the first is live.
		return src(states).Subscribe(ctx, func(Mutation) error {
			inner++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, outer)
	assert.Equal(t, 2, inner)
}
