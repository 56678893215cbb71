package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxloop/internal/journal"
)

func scenarioPath(name string) string {
	return filepath.Join("..", "harness", "testdata", "scenarios", name+".yaml")
}

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const wrongExpectation = `name: wrong
description: Expects a count the script never reaches.
initial: {count: 0}
mutations:
  - {op: add, key: count, by: 1}
expect:
  final: {count: 9}
`

func TestRun_Text(t *testing.T) {
	out, err := execute(t, "run", scenarioPath("counter_basic"))
	require.NoError(t, err)

	assert.Contains(t, out, "scenario counter_basic: pass")
	assert.Contains(t, out, "  [0] {count=0}\n  [1] {count=1}\n  [2] {count=2}\n  [3] {count=1}\n")
	assert.Contains(t, out, "outcome: none")
}

func TestRun_JSONWithMetrics(t *testing.T) {
	out, err := execute(t, "run", scenarioPath("counter_basic"), "--metrics", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Len(t, resp.Data.Trace, 4)

	var started float64
	for _, s := range resp.Data.Metrics {
		if s.Name == "rxloop_loops_started_total" {
			started = s.Value
		}
	}
	assert.Equal(t, 1.0, started)
}

func TestRun_FailedScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "wrong", wrongExpectation)

	out, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "scenario wrong: FAIL")
	assert.Contains(t, out, "Assertion failed: final")
}

func TestRun_MissingFile(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	bad := writeScenario(t, dir, "bad", "name: bad\ndescription: x\nexpect: {commits: 0}\nextra: 1\n")

	out, err := execute(t, "validate", scenarioPath("counter_basic"), bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ "+scenarioPath("counter_basic")+" (counter_basic)")
	assert.Contains(t, out, "✗ "+bad)
	assert.Contains(t, out, "1 valid, 1 invalid")
}

func TestValidate_AllValid(t *testing.T) {
	_, err := execute(t, "validate", scenarioPath("counter_basic"), scenarioPath("take_until"))
	assert.NoError(t, err)
}

func TestTest_HarnessScenarios(t *testing.T) {
	out, err := execute(t, "test",
		filepath.Join("..", "harness", "testdata", "scenarios"),
		"--golden", filepath.Join("..", "harness", "testdata", "golden"))
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ counter_basic")
	assert.Contains(t, out, "0 failed")
}

func TestTest_UpdateThenMismatch(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(scenarioPath("counter_basic"))
	require.NoError(t, err)
	writeScenario(t, dir, "counter_basic", string(src))

	_, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)

	golden := filepath.Join(dir, "golden", "counter_basic.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"scenario_name":"counter_basic","trace":[`))

	_, err = execute(t, "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"counter_basic","trace":[]}`), 0o644))
	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_Filter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong", wrongExpectation)
	src, err := os.ReadFile(scenarioPath("counter_basic"))
	require.NoError(t, err)
	writeScenario(t, dir, "counter_basic", string(src))

	out, err := execute(t, "test", dir, "--filter", "counter_*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestJournal_RunTraceReplay(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rxloop.db")

	out, err := execute(t, "run", scenarioPath("counter_basic"), "--journal", db, "--run", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "journal run: demo")

	out, err = execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "demo  scenario=counter_basic loop=scenario-counter_basic commits=4 mutations=3")

	out, err = execute(t, "trace", "--db", db, "--run", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, `[0] {"count":0}`)
	assert.Contains(t, out, `[1] {"count":1} <- {"by":1,"key":"count","op":"add"}`)

	out, err = execute(t, "replay", "--db", db, "--run", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "run demo: 3 mutations, 4 commits")
	assert.Contains(t, out, "deterministic: every commit reproduced")
}

func TestRun_GeneratedRunName(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rxloop.db")

	out, err := execute(t, "run", scenarioPath("counter_basic"), "--journal", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data RunOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, strings.HasPrefix(resp.Data.Run, "counter_basic-"))
}

func TestReplay_Divergence(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rxloop.db")
	ctx := context.Background()

	j, err := journal.Open(db)
	require.NoError(t, err)
	require.NoError(t, j.BeginRun(ctx, "tampered", "loop-1", "counter_basic"))
	require.NoError(t, j.AppendCommit(ctx, "tampered", 0, []byte(`{"count":0}`)))
	require.NoError(t, j.AppendMutation(ctx, "tampered", 1, []byte(`{"by":1,"key":"count","op":"add"}`)))
	require.NoError(t, j.AppendCommit(ctx, "tampered", 1, []byte(`{"count":5}`)))
	require.NoError(t, j.Close())

	out, err := execute(t, "replay", "--db", db, "--run", "tampered")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `[1] recorded {"count":5}, replayed {"count":1}`)
	assert.Contains(t, out, "NOT deterministic: 1 divergence(s)")
}

func TestReplay_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rxloop.db")

	_, err := execute(t, "replay", "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, journal.ErrRunNotFound)
}

func TestTrace_EmptyJournal(t *testing.T) {
	out, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "rxloop.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}
