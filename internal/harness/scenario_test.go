package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "rule_reset.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "rule_reset", s.Name)
	assert.Equal(t, Counters{"count": 0}, s.Initial)
	require.Len(t, s.Rules, 1)
	assert.Equal(t, Mutation{Op: OpReset, Key: "count"}, s.Rules[0].Emit)
	assert.Len(t, s.Mutations, 3)
	assert.Equal(t, DefaultMaxSteps, s.MaxSteps)
	assert.Equal(t, Counters{"count": 1}, s.Expect.Final)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_Defaults(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: defaults
description: Minimal scenario.
expect:
  commits: 0
`))
	require.NoError(t, err)

	assert.NotNil(t, s.Initial)
	assert.Equal(t, DefaultMaxSteps, s.MaxSteps)
	assert.Zero(t, s.Delay())
	require.NotNil(t, s.Expect.Commits)
	assert.Equal(t, 0, *s.Expect.Commits)
}

func TestParseScenario_SchemaViolations(t *testing.T) {
	for _, name := range []string{"unknown_field", "bad_op"} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata", "invalid", name+".yaml"))
			require.Error(t, err)

			var schemaErr *SchemaError
			assert.ErrorAs(t, err, &schemaErr)
		})
	}
}

func TestParseScenario_SemanticViolations(t *testing.T) {
	tests := map[string]string{
		"missing_key":    `op "add" requires a key`,
		"no_expectation": "expect must set at least one of",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata", "invalid", name+".yaml"))
			require.Error(t, err)
			assert.ErrorContains(t, err, want)
		})
	}
}

func TestParseScenario_RequiresName(t *testing.T) {
	_, err := ParseScenario([]byte(`
description: No name.
expect: {commits: 0}
`))
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestParseScenario_RuleWithoutBounds(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: unbounded
description: A rule that matches nothing in particular.
rules:
  - when: {key: count}
    emit: {op: add, key: count, by: 1}
expect: {commits: 0}
`))
	assert.ErrorContains(t, err, "needs gte, lte or eq")
}

func TestParseScenario_BadDuration(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad_duration
description: Unparseable delay.
start_after: soon
expect: {commits: 0}
`))
	assert.ErrorContains(t, err, "start_after")
}

func TestCondition_Matches(t *testing.T) {
	two, five := int64(2), int64(5)

	between := Condition{Key: "n", Gte: &two, Lte: &five}
	assert.False(t, between.Matches(Counters{"n": 1}))
	assert.True(t, between.Matches(Counters{"n": 2}))
	assert.True(t, between.Matches(Counters{"n": 5}))
	assert.False(t, between.Matches(Counters{"n": 6}))

	exact := Condition{Key: "n", Eq: &two}
	assert.True(t, exact.Matches(Counters{"n": 2}))
	assert.False(t, exact.Matches(Counters{}), "a missing counter reads as zero")
}
