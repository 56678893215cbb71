package harness

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxloop/internal/journal"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{"counter_basic", "rule_reset", "reset_all", "take_until", "reducer_fault"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			_, err = RunWithGolden(t, s)
			require.NoError(t, err)
		})
	}
}

func TestRun_TraceSeqsMatchCommits(t *testing.T) {
	s := mustLoad(t, "counter_basic")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	for i, step := range result.Trace {
		assert.Equal(t, int64(i), step.Seq)
	}
	assert.Equal(t, 3, result.Commits())
	assert.Equal(t, ErrorNone, result.ErrorKind)
}

func TestRun_FailedExpectation(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: Expects the wrong final count.
initial: {count: 0}
mutations:
  - {op: add, key: count, by: 1}
expect:
  final: {count: 2}
  error: reducer_fault
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: error")
	assert.Contains(t, result.Errors[1], "Assertion failed: final")
	assert.Contains(t, result.Errors[1], "Expected: {count=2}")
	assert.Contains(t, result.Errors[1], "Actual: {count=1}")
}

func TestRun_QuotaExceededIsASourceFailure(t *testing.T) {
	result, err := Run(context.Background(), mustLoad(t, "quota_exceeded"))
	require.NoError(t, err)

	assert.Equal(t, ErrorQuotaExceeded, result.ErrorKind)
	assert.True(t, IsStepsExceededError(result.Err))
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	s := mustLoad(t, "start_after")
	s.StartAfter = "1h"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	result, err := Run(ctx, s)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, result)
	assert.Empty(t, result.Trace)
	assert.Equal(t, ErrorCancelled, result.ErrorKind)
}

func TestRun_Observer(t *testing.T) {
	obs := &countingObserver{}

	_, err := Run(context.Background(), mustLoad(t, "counter_basic"), WithObserver(obs))
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"scenario-counter_basic"}, obs.started)
	assert.Equal(t, 4, obs.committed, "seed plus three derived commits")
	assert.Equal(t, 3, obs.reduced)
	assert.Equal(t, 1, obs.terminated)
}

func TestRun_JournalAndReplay(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	s := mustLoad(t, "rule_reset")

	result, err := Run(ctx, s, WithJournal(j, "run-1"))
	require.NoError(t, err)
	require.True(t, result.Pass)

	run, err := j.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, LoopID(s), run.LoopID)
	assert.Equal(t, "rule_reset", run.Scenario)
	assert.Equal(t, 5, run.Commits)
	assert.Equal(t, 4, run.Mutations)

	replayed, err := Replay(ctx, j, "run-1")
	require.NoError(t, err)
	assert.True(t, replayed.Deterministic())
}

func TestRun_JournalRejectsDuplicateRun(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	s := mustLoad(t, "counter_basic")
	_, err = Run(context.Background(), s, WithJournal(j, "run-1"))
	require.NoError(t, err)

	_, err = Run(context.Background(), s, WithJournal(j, "run-1"))
	assert.ErrorIs(t, err, journal.ErrRunExists)
}

func TestRun_JournalSkipsFaultedMutation(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	_, err = Run(ctx, mustLoad(t, "reducer_fault"), WithJournal(j, "fault"))
	require.NoError(t, err)

	mutations, err := j.ReadMutations(ctx, "fault")
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.JSONEq(t, `{"op":"div","key":"count","by":2}`, string(mutations[0].Payload))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorNone, ClassifyError(nil))
	assert.Equal(t, ErrorCancelled, ClassifyError(context.Canceled))
	assert.Equal(t, ErrorOther, ClassifyError(assert.AnError))
}

func mustLoad(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

type countingObserver struct {
	mu         sync.Mutex
	started    []string
	reduced    int
	committed  int
	terminated int
}

func (o *countingObserver) LoopStarted(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, id)
}

func (o *countingObserver) MutationReduced(string, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reduced++
}

func (o *countingObserver) StateCommitted(string, int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed++
}

func (o *countingObserver) InterpreterFailed(string, error) {}

func (o *countingObserver) LoopTerminated(string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.terminated++
}
