package harness

import (
	"errors"
	"fmt"
)

// StepsExceededError is returned when a scenario emits more mutations than
// its max_steps allows, usually a rule that keeps matching its own output.
type StepsExceededError struct {
	Steps int
	Limit int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("scenario exceeded max steps: %d > %d", e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err is, or wraps, a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var target *StepsExceededError
	return errors.As(err, &target)
}

// QuotaEnforcer counts emitted mutations against a limit. It is used from
// the single source goroutine and is not safe for concurrent use.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer; a non-positive limit falls back to
// DefaultMaxSteps.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check records one step and fails once the limit is passed.
func (q *QuotaEnforcer) Check() error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{Steps: q.current, Limit: q.maxSteps}
	}
	return nil
}

// Current returns the number of steps recorded so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}
