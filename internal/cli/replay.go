package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rxloop/internal/harness"
	"github.com/roach88/rxloop/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Run      string
}

// ReplayDivergence is a commit the replay did not reproduce.
type ReplayDivergence struct {
	Seq      int64  `json:"seq"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayOutput is the result of the replay command.
type ReplayOutput struct {
	Run           string             `json:"run"`
	Commits       int                `json:"commits"`
	Mutations     int                `json:"mutations"`
	Deterministic bool               `json:"deterministic"`
	Divergences   []ReplayDivergence `json:"divergences,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Refold a journaled run and verify determinism",
		Long: `Refold a journaled run's mutations from its seed with the counter
reducer and compare every state with the recorded commit.

Exit codes:
  0 - Every commit was reproduced
  1 - Determinism verification failed (divergences detected)
  2 - Command error (journal not found, unknown run, etc.)

Examples:
  rxloop replay --db ./rxloop.db --run demo
  rxloop replay --db ./rxloop.db --run demo --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run to replay (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	j, err := journal.Open(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if _, err := j.GetRun(cmd.Context(), opts.Run); err != nil {
		if errors.Is(err, journal.ErrRunNotFound) {
			_ = f.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "run not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	replayed, err := harness.Replay(cmd.Context(), j, opts.Run)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	out := ReplayOutput{
		Run:           replayed.Run,
		Commits:       replayed.Commits,
		Mutations:     replayed.Mutations,
		Deterministic: replayed.Deterministic(),
	}
	for _, d := range replayed.Divergences {
		out.Divergences = append(out.Divergences, ReplayDivergence{
			Seq:      d.Seq,
			Recorded: string(d.Recorded),
			Replayed: string(d.Replayed),
		})
	}

	err = f.Success(out, func(w io.Writer) {
		fmt.Fprintf(w, "run %s: %d mutations, %d commits\n", out.Run, out.Mutations, out.Commits)
		for _, d := range out.Divergences {
			fmt.Fprintf(w, "  [%d] recorded %s, replayed %s\n", d.Seq, d.Recorded, d.Replayed)
		}
		if out.Deterministic {
			fmt.Fprintln(w, "deterministic: every commit reproduced")
		} else {
			fmt.Fprintf(w, "NOT deterministic: %d divergence(s)\n", len(out.Divergences))
		}
	})
	if err != nil {
		return err
	}

	if !out.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s is not deterministic", out.Run))
	}
	return nil
}
