// Package journal provides a SQLite-backed log of loop runs.
//
// A run records every committed state (commits) and every accepted
// mutation (mutations) of one loop instance, both encoded as canonical
// JSON and keyed by logical seq. Mutation n is the one whose reduction
// produced commit n, so a run can be replayed by folding the mutations
// over commit 0.
//
// # Writers
//
//   - Interpreter: a loop interpreter appending each committed state
//   - MutationTap: a pipeline transform appending each mutation once it
//     has been reduced
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait up to 5 seconds on lock contention
//   - foreign_keys=ON: rows must belong to a known run
//   - one open connection: SQLite has a single writer
package journal
