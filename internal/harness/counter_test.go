package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduce_Ops(t *testing.T) {
	s := Counters{"a": 10, "b": 2}

	assert.Equal(t, Counters{"a": 13, "b": 2}, Reduce(s, Mutation{Op: OpAdd, Key: "a", By: 3}))
	assert.Equal(t, Counters{"a": 10, "b": 2, "c": -1}, Reduce(s, Mutation{Op: OpAdd, Key: "c", By: -1}))
	assert.Equal(t, Counters{"a": 7, "b": 2}, Reduce(s, Mutation{Op: OpSet, Key: "a", By: 7}))
	assert.Equal(t, Counters{"a": 0, "b": 2}, Reduce(s, Mutation{Op: OpReset, Key: "a"}))
	assert.Equal(t, Counters{}, Reduce(s, Mutation{Op: OpReset}))
	assert.Equal(t, Counters{"a": 5, "b": 2}, Reduce(s, Mutation{Op: OpDiv, Key: "a", By: 2}))
	assert.Equal(t, s, Reduce(s, Mutation{Op: "explode"}))
}

func TestReduce_DoesNotModifyInput(t *testing.T) {
	s := Counters{"a": 1}
	Reduce(s, Mutation{Op: OpAdd, Key: "a", By: 1})
	assert.Equal(t, Counters{"a": 1}, s)
}

func TestReduce_DivByZeroPanics(t *testing.T) {
	assert.Panics(t, func() {
		Reduce(Counters{"a": 1}, Mutation{Op: OpDiv, Key: "a"})
	})
}

func TestCounters_Clone(t *testing.T) {
	var nilCounters Counters
	assert.NotNil(t, nilCounters.Clone())
	assert.Equal(t, "{a=1 b=2}", Counters{"b": 2, "a": 1}.String())
}

func TestMutation_String(t *testing.T) {
	assert.Equal(t, "add count 1", Mutation{Op: OpAdd, Key: "count", By: 1}.String())
	assert.Equal(t, "reset count", Mutation{Op: OpReset, Key: "count"}.String())
	assert.Equal(t, "reset", Mutation{Op: OpReset}.String())
}
