package loop

import "time"

// Observer receives lifecycle and throughput events from every instance
// built with it. Calls for one instance never overlap, except
// InterpreterFailed, which runs on the interpretation executor.
//
// Implementations must be safe for concurrent use across instances.
type Observer interface {
	LoopStarted(loopID string)
	MutationReduced(loopID string, took time.Duration)
	StateCommitted(loopID string, seq int64)
	InterpreterFailed(loopID string, err error)
	LoopTerminated(loopID string, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) LoopStarted(string)                    {}
func (NopObserver) MutationReduced(string, time.Duration) {}
func (NopObserver) StateCommitted(string, int64)          {}
func (NopObserver) InterpreterFailed(string, error)       {}
func (NopObserver) LoopTerminated(string, error)          {}
