package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rxloop/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateOutput is the result of the validate command.
type ValidateOutput struct {
	Files   []FileValidation `json:"files"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files",
		Long: `Check scenario files against the scenario schema without running them.

Exit codes:
  0 - Every file is valid
  1 - One or more files are invalid

Examples:
  rxloop validate ./scenarios/*.yaml
  rxloop validate ./scenarios/counter_basic.yaml --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	out := ValidateOutput{Files: make([]FileValidation, 0, len(paths))}

	for _, path := range paths {
		v := FileValidation{Path: path, Valid: true}
		s, err := harness.LoadScenario(path)
		if err != nil {
			v.Valid = false
			v.Error = err.Error()
			out.Invalid++
		} else {
			v.Name = s.Name
			out.Valid++
		}
		out.Files = append(out.Files, v)
	}

	err := opts.formatter(cmd).Success(out, func(w io.Writer) {
		for _, v := range out.Files {
			if v.Valid {
				fmt.Fprintf(w, "✓ %s (%s)\n", v.Path, v.Name)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n  %s\n", v.Path, v.Error)
		}
		fmt.Fprintf(w, "\n%d valid, %d invalid\n", out.Valid, out.Invalid)
	})
	if err != nil {
		return err
	}

	if out.Invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario file(s)", out.Invalid))
	}
	return nil
}
