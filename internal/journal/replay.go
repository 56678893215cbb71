package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/rxloop/internal/codec"
	"github.com/roach88/rxloop/internal/loop"
)

// Divergence is a replayed state that differs from the journaled one.
type Divergence struct {
	Seq      int64
	Recorded []byte
	Replayed []byte
}

// ReplayResult is the outcome of folding a run's mutations again.
type ReplayResult struct {
	Run         string
	Commits     int
	Mutations   int
	Divergences []Divergence
}

// Deterministic reports whether the replay reproduced every commit.
func (r ReplayResult) Deterministic() bool {
	return len(r.Divergences) == 0 && r.Commits == r.Mutations+1
}

// Replay decodes commit 0 of run as the seed, folds every journaled
// mutation over it with reduce and compares each resulting state with the
// journaled commit of the same seq, byte for byte in canonical form.
//
// Commits without a matching mutation, and mutations without a matching
// commit, are reported as divergences with an empty side.
func Replay[S, M any](ctx context.Context, j *Journal, run string, reduce loop.Reducer[S, M]) (ReplayResult, error) {
	commits, err := j.ReadCommits(ctx, run)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	mutations, err := j.ReadMutations(ctx, run)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	result := ReplayResult{Run: run, Commits: len(commits), Mutations: len(mutations)}
	if len(commits) == 0 || commits[0].Seq != 0 {
		return result, fmt.Errorf("replay %s: no seed commit", run)
	}

	var state S
	if err := json.Unmarshal(commits[0].Payload, &state); err != nil {
		return result, fmt.Errorf("replay %s: decode seed: %w", run, err)
	}

	recorded := make(map[int64][]byte, len(commits))
	for _, c := range commits {
		recorded[c.Seq] = c.Payload
	}

	for _, m := range mutations {
		var mutation M
		if err := json.Unmarshal(m.Payload, &mutation); err != nil {
			return result, fmt.Errorf("replay %s: decode mutation %d: %w", run, m.Seq, err)
		}
		state, err = fold(reduce, state, mutation)
		if err != nil {
			return result, fmt.Errorf("replay %s: mutation %d: %w", run, m.Seq, err)
		}

		replayed, err := codec.MarshalCanonical(state)
		if err != nil {
			return result, fmt.Errorf("replay %s: encode state %d: %w", run, m.Seq, err)
		}
		if want, ok := recorded[m.Seq]; !ok || !bytes.Equal(want, replayed) {
			result.Divergences = append(result.Divergences, Divergence{Seq: m.Seq, Recorded: want, Replayed: replayed})
		}
		delete(recorded, m.Seq)
	}

	for _, c := range commits[1:] {
		if _, left := recorded[c.Seq]; left {
			result.Divergences = append(result.Divergences, Divergence{Seq: c.Seq, Recorded: c.Payload})
		}
	}
	return result, nil
}

func fold[S, M any](reduce loop.Reducer[S, M], state S, m M) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reducer panicked: %v", r)
		}
	}()
	return reduce(state, m), nil
}
