package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/recordgraph/internal/insurance"
	"github.com/roach88/recordgraph/internal/ir"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Output string // output file path
}

// SchemaResult is the compiled schema with summary counts.
type SchemaResult struct {
	Schema    *ir.Schema `json:"schema"`
	Types     int        `json:"types"`
	Relations int        `json:"relations"`
	Output    string     `json:"output,omitempty"`
}

// RenderText lists each type with its fields, then the relations.
func (r SchemaResult) RenderText(w io.Writer) error {
	if r.Output != "" {
		fmt.Fprintf(w, "✓ Wrote %d type(s), %d relation(s) to %s\n", r.Types, r.Relations, r.Output)
		return nil
	}
	for _, t := range r.Schema.Types {
		fmt.Fprintf(w, "%s", t.Name)
		if t.EntitySet != "" {
			fmt.Fprintf(w, " (%s)", t.EntitySet)
		}
		fmt.Fprintln(w)
		for _, f := range t.Fields {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	for _, rel := range r.Schema.Relations {
		fmt.Fprintf(w, "%s: %s.%s -> %s.%s (via %s.%s)\n",
			rel.Name, rel.Parent, rel.ParentNav, rel.Child, rel.ChildNav, rel.Child, rel.ForeignKey)
	}
	return nil
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema [path]",
		Short: "Compile a CUE schema and print it",
		Long: `Compile a CUE schema (a file or a directory of files with top-level
type: and relation: structs) and print the record types it declares.

Without a path the --schema flag is used, and without that the built-in
insurance schema.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.Schema
			if len(args) == 1 {
				path = args[0]
			}
			return runSchema(opts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled schema as JSON to this file")

	return cmd
}

func runSchema(opts *SchemaOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var (
		schema *ir.Schema
		err    error
	)
	if path == "" {
		schema, err = insurance.Schema()
	} else {
		formatter.VerboseLog("Compiling %s", path)
		schema, err = loadSchema(path)
	}
	if err != nil {
		return opts.commandError(formatter, schemaErrorCode(err), err)
	}

	result := SchemaResult{
		Schema:    schema,
		Types:     len(schema.Types),
		Relations: len(schema.Relations),
	}

	if opts.Output != "" {
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return opts.commandError(formatter, ErrCodeGeneric, err)
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			return opts.commandError(formatter, ErrCodeWriteFailed, err)
		}
		result.Output = opts.Output
	}

	return formatter.Success(result)
}
