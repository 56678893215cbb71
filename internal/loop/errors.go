package loop

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected while assembling or running a
// loop.
//
// Runtime errors include:
//   - Reducer fault: the reducer panicked; nothing was committed
//   - Source failure: a mutation source terminated with an error
//   - Interpreter fault: an interpreter panicked; the state stays committed
//   - Invalid config: the loop could not be assembled
//   - Executor stopped: the interpretation executor shut down mid-run
type RuntimeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// LoopID identifies the affected instance. Empty for config errors.
	LoopID string

	// Seq is the commit the failure relates to: the commit being computed
	// for reducer faults, the commit being interpreted for interpreter
	// faults, the latest commit for source failures.
	Seq int64

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes runtime errors.
type ErrorCode string

const (
	// ErrCodeReducerFault indicates the reducer panicked.
	ErrCodeReducerFault ErrorCode = "REDUCER_FAULT"

	// ErrCodeSourceFailed indicates a mutation source returned an error.
	ErrCodeSourceFailed ErrorCode = "SOURCE_FAILED"

	// ErrCodeInterpreterFault indicates an interpreter panicked.
	ErrCodeInterpreterFault ErrorCode = "INTERPRETER_FAULT"

	// ErrCodeInvalidConfig indicates a loop was assembled without a
	// required part.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrCodeExecutorStopped indicates the interpretation executor shut
	// down while the instance was live.
	ErrCodeExecutorStopped ErrorCode = "EXECUTOR_STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.LoopID != "" {
		msg = fmt.Sprintf("%s (loop=%s, seq=%d)", msg, e.LoopID, e.Seq)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsReducerFault returns true if err is, or wraps, a reducer fault.
func IsReducerFault(err error) bool {
	return hasCode(err, ErrCodeReducerFault)
}

// IsSourceFailure returns true if err is, or wraps, a source failure.
func IsSourceFailure(err error) bool {
	return hasCode(err, ErrCodeSourceFailed)
}

// IsInterpreterFault returns true if err is, or wraps, an interpreter fault.
func IsInterpreterFault(err error) bool {
	return hasCode(err, ErrCodeInterpreterFault)
}

// IsInvalidConfig returns true if err is, or wraps, a config error.
func IsInvalidConfig(err error) bool {
	return hasCode(err, ErrCodeInvalidConfig)
}

// IsExecutorStopped returns true if err is, or wraps, an executor-stopped
// termination.
func IsExecutorStopped(err error) bool {
	return hasCode(err, ErrCodeExecutorStopped)
}

func hasCode(err error, code ErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newConfigError(format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf(format, args...),
	}
}

// newPanicError converts a recovered panic value into a RuntimeError.
func newPanicError(code ErrorCode, message, loopID string, seq int64, recovered any) *RuntimeError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", recovered)
	}
	return &RuntimeError{
		Code:    code,
		Message: message,
		LoopID:  loopID,
		Seq:     seq,
		Err:     cause,
	}
}
