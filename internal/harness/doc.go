// Package harness runs declarative loop scenarios over a small counter
// domain and checks their traces.
//
// # Scenario Format
//
//	name: rule_reset
//	description: "What this scenario validates"
//	initial: {count: 0}
//	rules:
//	  - when: {key: count, gte: 2}
//	    emit: {op: reset, key: count}
//	mutations:
//	  - {op: add, key: count, by: 1}
//	take_until_commits: 0   # optional cutoff
//	start_after: 10ms       # optional deferred start
//	max_steps: 1000         # optional, default 1000
//	expect:
//	  states: [{count: 0}, {count: 1}]
//	  final: {count: 1}
//	  commits: 1
//	  error: none           # none | reducer_fault | source_failed | quota_exceeded
//
// Documents are checked against an embedded CUE schema, then decoded with
// unknown fields rejected.
//
// # Execution
//
// The scenario's mutation source is bound to the state stream and emits at
// most one mutation per committed state: the first matching rule, else the
// next scripted mutation. The source completes once neither applies, which
// completes the loop. Operations are add, set, reset and div; dividing by
// zero is a reducer fault.
//
// Runs are deterministic: a fixed instance id, logical trace stamps and
// in-order interpretation, so traces can be compared with golden files in
// testdata/golden.
package harness
