package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/query"
	"github.com/roach88/recordgraph/internal/queryir"
)

// queryFlags are the query options shared by query and related.
type queryFlags struct {
	filter  string
	orderBy string
	skip    int
	top     int
	count   bool
	sel     string
	expand  string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&q.filter, "filter", "", "filter expression, e.g. \"Amount gt 100 and Active eq true\"")
	fs.StringVar(&q.orderBy, "orderby", "", "comma-separated sort keys, each optionally followed by asc or desc")
	fs.IntVar(&q.skip, "skip", 0, "number of results to skip")
	fs.IntVar(&q.top, "top", -1, "maximum number of results (-1 for no limit)")
	fs.BoolVar(&q.count, "count", false, "include the total matching count")
	fs.StringVar(&q.sel, "select", "", "comma-separated properties to return")
	fs.StringVar(&q.expand, "expand", "", "comma-separated navigations to inline")
}

// options parses the flags. Only flags the user set become paging options.
func (q *queryFlags) options(cmd *cobra.Command) (queryir.Options, error) {
	raw := queryir.RawOptions{
		Filter:  q.filter,
		OrderBy: q.orderBy,
		Count:   q.count,
		Select:  q.sel,
		Expand:  q.expand,
	}
	if cmd.Flags().Changed("skip") {
		raw.Skip = &q.skip
	}
	if cmd.Flags().Changed("top") && q.top >= 0 {
		raw.Top = &q.top
	}
	return raw.Parse()
}

// QueryResult is the output of query and related.
type QueryResult struct {
	Type    string        `json:"type"`
	Records []ir.IRObject `json:"records"`
	Count   *int          `json:"count,omitempty"`
}

func newQueryResult(typeName string, res *query.Result) QueryResult {
	return QueryResult{Type: typeName, Records: res.Objects(), Count: res.Count}
}

// RenderText prints one record per line.
func (r QueryResult) RenderText(w io.Writer) error {
	for _, obj := range r.Records {
		b, err := obj.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	}
	if r.Count != nil {
		fmt.Fprintf(w, "count: %d\n", *r.Count)
	}
	return nil
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "query <type>",
		Short: "Query the records of a type",
		Long: `Run the query pipeline over every record of a type: filter, sort,
count, page, select and expand, in that order.

Example:
  recordgraph query Product --filter "Active eq true and Price gt 100" --orderby "Price desc"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			opts, err := q.options(cmd)
			if err != nil {
				return f.Fail(err)
			}
			eng, err := rootOpts.openEngine(f)
			if err != nil {
				return err
			}
			res, err := eng.Query(args[0], opts)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(newQueryResult(args[0], res))
		},
	}

	q.register(cmd)
	return cmd
}
