// Package loop implements the feedback-loop runtime.
//
// A loop is a closed circuit around a single state channel:
//
//	states ──> sources ──merge──> transforms ──> reduce ──commit──┐
//	   ^                                                          │
//	   └──────────────────────────────────────────────────────────┤
//	                                                  interpreters <┘
//
// Mutation sources observe the state stream and emit mutations; the merged
// mutations are folded one at a time against the latest committed state;
// every new state is committed to the channel, where both the sources and
// the interpreter chain observe it.
//
// ORDERING:
//
// The seed is committed at seq 0 before any source is subscribed, so it is
// the first state every reader sees. Reductions are serialized in merge
// order and each reduction commits before the next mutation is paired.
// Interpreters see commits in seq order and never see an uncommitted state.
//
// FAILURES:
//
// A reducer panic terminates the instance with REDUCER_FAULT; a source
// error with SOURCE_FAILED. An interpreter panic is isolated to that
// interpreter (INTERPRETER_FAULT): it is logged, counted and reported
// through Config.OnInterpreterError, and the instance keeps running.
// An executor that stops while the instance is live (see stream.Stopper)
// cancels its sources and terminates it with EXECUTOR_STOPPED. Nothing is
// retried.
//
// LIFECYCLE:
//
// Loops are assembled once, with New or the Builder, and started any
// number of times. Each Run or Start* call wires an independent instance
// controlled by a Handle.
package loop
