package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rxloop/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Run      string // optional; lists runs when empty
}

// TraceCommit is one journaled commit.
type TraceCommit struct {
	Seq   int64           `json:"seq"`
	State json.RawMessage `json:"state"`
}

// TraceMutation is one journaled mutation.
type TraceMutation struct {
	Seq      int64           `json:"seq"`
	Mutation json.RawMessage `json:"mutation"`
}

// TraceOutput is the trace of a single run.
type TraceOutput struct {
	Run       journal.Run     `json:"run"`
	Commits   []TraceCommit   `json:"commits"`
	Mutations []TraceMutation `json:"mutations"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled runs and their commits",
		Long: `Show the runs recorded in a journal, or the commits and mutations of
one run in seq order. Mutation n produced commit n; commit 0 is the seed.

Examples:
  rxloop trace --db ./rxloop.db
  rxloop trace --db ./rxloop.db --run demo
  rxloop trace --db ./rxloop.db --run demo --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run to show; lists runs when empty")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	j, err := journal.Open(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if opts.Run == "" {
		runs, err := j.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return f.Success(runs, func(w io.Writer) {
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  scenario=%s loop=%s commits=%d mutations=%d\n",
					r.Name, r.Scenario, r.LoopID, r.Commits, r.Mutations)
			}
		})
	}

	out, err := loadTrace(cmd, j, opts.Run)
	if err != nil {
		if errors.Is(err, journal.ErrRunNotFound) {
			_ = f.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "run not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	return f.Success(out, func(w io.Writer) {
		fmt.Fprintf(w, "run %s (scenario %s, loop %s)\n", out.Run.Name, out.Run.Scenario, out.Run.LoopID)
		mutations := make(map[int64]json.RawMessage, len(out.Mutations))
		for _, m := range out.Mutations {
			mutations[m.Seq] = m.Mutation
		}
		for _, c := range out.Commits {
			if m, ok := mutations[c.Seq]; ok {
				fmt.Fprintf(w, "  [%d] %s <- %s\n", c.Seq, c.State, m)
				continue
			}
			fmt.Fprintf(w, "  [%d] %s\n", c.Seq, c.State)
		}
	})
}

func loadTrace(cmd *cobra.Command, j *journal.Journal, name string) (TraceOutput, error) {
	ctx := cmd.Context()

	run, err := j.GetRun(ctx, name)
	if err != nil {
		return TraceOutput{}, err
	}
	commits, err := j.ReadCommits(ctx, name)
	if err != nil {
		return TraceOutput{}, err
	}
	mutations, err := j.ReadMutations(ctx, name)
	if err != nil {
		return TraceOutput{}, err
	}

	out := TraceOutput{
		Run:       run,
		Commits:   make([]TraceCommit, len(commits)),
		Mutations: make([]TraceMutation, len(mutations)),
	}
	for i, c := range commits {
		out.Commits[i] = TraceCommit{Seq: c.Seq, State: c.Payload}
	}
	for i, m := range mutations {
		out.Mutations[i] = TraceMutation{Seq: m.Seq, Mutation: m.Payload}
	}
	return out, nil
}
