package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/rxloop/internal/harness"
	"github.com/roach88/rxloop/internal/journal"
	"github.com/roach88/rxloop/internal/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string // optional SQLite journal path
	RunName string // journal run name, generated when empty
	Metrics bool   // report loop metrics
}

// RunOutput is the result of the run command.
type RunOutput struct {
	Scenario  string              `json:"scenario"`
	Run       string              `json:"run,omitempty"`
	Pass      bool                `json:"pass"`
	ErrorKind string              `json:"error_kind"`
	Trace     []harness.TraceStep `json:"trace"`
	Errors    []string            `json:"errors,omitempty"`
	Metrics   []metrics.Sample    `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its interpreted states",
		Long: `Run one scenario and print every interpreted state, the seed first.

With --journal the run's mutations and committed states are appended to a
SQLite journal, for later use by trace and replay.

Exit codes:
  0 - Scenario expectations held
  1 - Scenario failed or is invalid
  2 - Command error (missing file, journal error, etc.)

Examples:
  rxloop run ./scenarios/counter_basic.yaml
  rxloop run ./scenarios/counter_basic.yaml --journal ./rxloop.db --run demo
  rxloop run ./scenarios/counter_basic.yaml --metrics --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "append the run to a SQLite journal")
	cmd.Flags().StringVar(&opts.RunName, "run", "", "journal run name (default <scenario>-<uuid>)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report loop metrics")

	return cmd
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	if _, err := os.Stat(path); err != nil {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("scenario not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "scenario not found", err)
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = f.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(opts.logger(cmd))}

	out := RunOutput{Scenario: scenario.Name}
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			_ = f.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()

		out.Run = opts.RunName
		if out.Run == "" {
			out.Run = fmt.Sprintf("%s-%s", scenario.Name, uuid.Must(uuid.NewV7()))
		}
		runOpts = append(runOpts, harness.WithJournal(j, out.Run))
	}

	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		obs, err := metrics.New(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to set up metrics", err)
		}
		runOpts = append(runOpts, harness.WithObserver(obs))
	}

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario run failed", err)
	}

	out.Pass = result.Pass
	out.ErrorKind = result.ErrorKind
	out.Trace = result.Trace
	out.Errors = result.Errors
	if reg != nil {
		if out.Metrics, err = metrics.Snapshot(reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
	}

	if err := f.Success(out, func(w io.Writer) { printRun(w, out) }); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printRun(w io.Writer, out RunOutput) {
	status := "pass"
	if !out.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "scenario %s: %s\n", out.Scenario, status)
	if out.Run != "" {
		fmt.Fprintf(w, "journal run: %s\n", out.Run)
	}
	for _, step := range out.Trace {
		fmt.Fprintf(w, "  [%d] %s\n", step.Seq, step.State)
	}
	fmt.Fprintf(w, "outcome: %s\n", out.ErrorKind)
	for _, e := range out.Errors {
		fmt.Fprintln(w, e)
	}
	for _, s := range out.Metrics {
		if len(s.Labels) == 0 {
			fmt.Fprintf(w, "%s %g\n", s.Name, s.Value)
			continue
		}
		fmt.Fprintf(w, "%s%v %g\n", s.Name, s.Labels, s.Value)
	}
}
