package harness

import (
	"context"

	"github.com/roach88/rxloop/internal/journal"
)

// Replay refolds a journaled scenario run with Reduce and compares every
// state with the recorded commit.
func Replay(ctx context.Context, j *journal.Journal, run string) (journal.ReplayResult, error) {
	return journal.Replay[Counters, Mutation](ctx, j, run, Reduce)
}
