package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/queryir"
)

// RelatedOneResult is the output of related --one.
type RelatedOneResult struct {
	Type   string     `json:"type"`
	ID     string     `json:"id"`
	Target string     `json:"target"`
	Record ir.IRValue `json:"record"`
}

// RenderText prints the record, or null.
func (r RelatedOneResult) RenderText(w io.Writer) error {
	b, err := ir.MarshalIRValue(r.Record)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}

// NewRelatedCommand creates the related command.
func NewRelatedCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		q   queryFlags
		key string
		one bool
	)

	cmd := &cobra.Command{
		Use:   "related <type> <id> <navigation>",
		Short: "Follow a navigation from one record",
		Long: `Resolve a navigation from a source record. For a collection the query
options apply to the related records. With --one a single record is returned:
the one matching --key name=value, or the first when no key is given.

Example:
  recordgraph related Policy 2000 Claims --orderby ClaimId
  recordgraph related Policy 2000 Claims --one --key claimreason=Accident`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			typeName, id, target := args[0], args[1], args[2]

			var pred *queryir.KeyPredicate
			if key != "" {
				name, value, ok := strings.Cut(key, "=")
				if !ok || name == "" {
					return rootOpts.commandError(f, ErrCodeBadInput,
						fmt.Errorf("--key: expected name=value, got %q", key))
				}
				pred = &queryir.KeyPredicate{Name: name, Value: value}
			}
			if pred != nil && !one {
				return rootOpts.commandError(f, ErrCodeBadInput, fmt.Errorf("--key requires --one"))
			}

			opts, err := q.options(cmd)
			if err != nil {
				return f.Fail(err)
			}
			eng, err := rootOpts.openEngine(f)
			if err != nil {
				return err
			}

			if one {
				v, err := eng.RelatedOne(typeName, id, target, pred)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(RelatedOneResult{Type: typeName, ID: id, Target: target, Record: v})
			}

			res, err := eng.QueryRelated(typeName, id, target, opts)
			if err != nil {
				return f.Fail(err)
			}
			targetType := target
			dir := eng.Directory()
			if k, ok := dir.Kind(typeName); ok {
				if rule, ok := dir.Navigation(k, target); ok {
					targetType = dir.Table(rule.Target).Name()
				}
			}
			return f.Success(newQueryResult(targetType, res))
		},
	}

	q.register(cmd)
	cmd.Flags().StringVar(&key, "key", "", "key predicate name=value selecting one related record")
	cmd.Flags().BoolVar(&one, "one", false, "return a single related record")
	return cmd
}
