package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recordgraph/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// RenderText prints a check mark or one line per problem.
func (r ValidationResult) RenderText(w io.Writer) error {
	if r.Valid {
		fmt.Fprintln(w, "✓ Schema valid")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  %s: %s\n", warn.Level, warn.Message)
		}
		return nil
	}
	fmt.Fprintf(w, "✗ %d validation error(s):\n", len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a CUE schema",
		Long: `Validate a CUE schema: syntax, field types, key fields, relations and
navigation names. Every declaration problem is reported, not just the first.
Cycles in the relation graph are reported as warnings.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Schema
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if path == "" {
		return NewExitError(ExitCommandError, "validate needs a schema path or --schema")
	}
	formatter.VerboseLog("Validating %s", path)

	schema, err := loadSchema(path)
	if err == nil {
		return formatter.Success(ValidationResult{Valid: true, Warnings: compiler.AnalyzeCycles(schema)})
	}

	var verrs compiler.ValidationErrors
	if !errors.As(err, &verrs) {
		return opts.commandError(formatter, schemaErrorCode(err), err)
	}

	result := ValidationResult{Valid: false, Errors: verrs}
	if opts.Format == "json" {
		_ = formatter.Error(verrs[0].Code, fmt.Sprintf("%d validation error(s)", len(verrs)), result)
	} else {
		_ = result.RenderText(formatter.Writer)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(verrs)))
}
