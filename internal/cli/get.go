package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recordgraph/internal/ir"
)

// GetResult is a single record with its entity tag.
type GetResult struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	ETag   string      `json:"etag"`
	Record ir.IRObject `json:"record"`
}

// RenderText prints the record followed by its etag.
func (r GetResult) RenderText(w io.Writer) error {
	b, err := r.Record.MarshalJSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	fmt.Fprintf(w, "etag: %s\n", r.ETag)
	return nil
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <type> <id>",
		Short:         "Fetch one record by identifier",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			eng, err := rootOpts.openEngine(f)
			if err != nil {
				return err
			}
			typeName, id := args[0], args[1]
			obj, err := eng.Get(typeName, id)
			if err != nil {
				return f.Fail(err)
			}
			etag, err := eng.ETag(typeName, id)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(GetResult{Type: typeName, ID: id, ETag: etag, Record: obj})
		},
	}
	return cmd
}
