package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Schema  string // CUE file or directory; empty means the insurance domain
	Data    string // seed YAML; empty means the insurance sample records
	Today   string // YYYY-MM-DD override for date-dependent computed fields

	logger *zap.Logger
	traces engine.TraceIDGenerator // nil means UUIDv7
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the recordgraph CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recordgraph",
		Version: ir.EngineVersion,
		Short:   "recordgraph - typed in-memory record queries",
		Long: `An in-memory typed record engine: filter, order and page collections,
follow relationships between record types, and merge partial records.

Without --schema the built-in insurance domain (products, policies, claims,
beneficiaries) is loaded together with its sample records.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.logger = newLogger(opts.Verbose, cmd.ErrOrStderr())
			zap.ReplaceGlobals(opts.logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.Logger().Sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Schema, "schema", "", "CUE schema file or directory (default: built-in insurance schema)")
	flags.StringVar(&opts.Data, "data", "", "seed data YAML (default: built-in insurance records)")
	flags.StringVar(&opts.Today, "today", "", "date used as today (YYYY-MM-DD)")

	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewRelatedCommand(opts))
	cmd.AddCommand(NewWriteCommand(opts, opCreate))
	cmd.AddCommand(NewWriteCommand(opts, opUpdate))
	cmd.AddCommand(NewWriteCommand(opts, opUpsert))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Logger returns the command logger, or a no-op logger before the root
// command has run.
func (o *RootOptions) Logger() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

// newLogger builds a console logger at Debug for --verbose and a JSON
// logger at Warn otherwise. Both write to w so stdout stays clean.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	if verbose {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel), zap.AddCaller())
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.WarnLevel))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
