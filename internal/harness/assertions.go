package harness

import (
	"fmt"
	"maps"
	"strings"
)

// AssertionError describes one failed expectation with the full trace for
// context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceStep
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, step := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", step.Seq, step.State)
	}
	return buf.String()
}

// evaluateExpectations checks every set expectation and records failures
// on result.
func evaluateExpectations(result *Result, expect Expectation) {
	checks := []func(*Result, Expectation) error{
		assertError,
		assertStates,
		assertFinal,
		assertCommits,
	}
	for _, check := range checks {
		if err := check(result, expect); err != nil {
			result.AddError(err.Error())
		}
	}
}

func assertError(result *Result, expect Expectation) error {
	want := expect.Error
	if want == "" {
		want = ErrorNone
	}
	if result.ErrorKind == want {
		return nil
	}

	actual := result.ErrorKind
	if result.Err != nil {
		actual += " (" + result.Err.Error() + ")"
	}
	return &AssertionError{Type: "error", Expected: want, Actual: actual, Trace: result.Trace}
}

func assertStates(result *Result, expect Expectation) error {
	if expect.States == nil {
		return nil
	}

	got := result.States()
	if len(got) == len(expect.States) {
		same := true
		for i := range got {
			if !equalCounters(got[i], expect.States[i]) {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return &AssertionError{
		Type:     "states",
		Expected: formatStates(expect.States),
		Actual:   formatStates(got),
		Trace:    result.Trace,
	}
}

func assertFinal(result *Result, expect Expectation) error {
	if expect.Final == nil {
		return nil
	}
	if final := result.Final(); final != nil && equalCounters(final, expect.Final) {
		return nil
	}
	return &AssertionError{
		Type:     "final",
		Expected: expect.Final.String(),
		Actual:   result.Final().String(),
		Trace:    result.Trace,
	}
}

func assertCommits(result *Result, expect Expectation) error {
	if expect.Commits == nil || result.Commits() == *expect.Commits {
		return nil
	}
	return &AssertionError{
		Type:     "commits",
		Expected: fmt.Sprintf("%d derived commits", *expect.Commits),
		Actual:   fmt.Sprintf("%d derived commits", result.Commits()),
		Trace:    result.Trace,
	}
}

// equalCounters treats a missing counter and an explicit zero as distinct,
// so reset-all and reset-key stay distinguishable.
func equalCounters(a, b Counters) bool {
	return maps.Equal(a, b)
}

func formatStates(states []Counters) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
