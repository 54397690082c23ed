package query

import (
	"fmt"
	"slices"

	"github.com/roach88/recordgraph/internal/coerce"
	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/filter"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/queryir"
)

// Row is one result: the stored record and its translated external shape.
type Row struct {
	Record *directory.Record
	Object ir.IRObject
}

// Result is the output of a query.
type Result struct {
	Rows []Row

	// Count is the post-filter cardinality, set only when requested.
	Count *int
}

// Objects returns the external shapes in result order.
func (r *Result) Objects() []ir.IRObject {
	out := make([]ir.IRObject, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Object
	}
	return out
}

// IDs returns the record identifiers in result order.
func (r *Result) IDs() []string {
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Record.ID
	}
	return out
}

// Run queries every record of typeName.
func Run(d *directory.Directory, typeName string, opts queryir.Options) (*Result, error) {
	t, err := d.MustTable(typeName)
	if err != nil {
		return nil, err
	}
	return RunOn(d, t.Kind, t.Records(), opts)
}

// RunOn runs the pipeline over a given sequence of records of one kind, such
// as a related collection.
func RunOn(d *directory.Directory, kind directory.Kind, recs []*directory.Record, opts queryir.Options) (*Result, error) {
	if err := queryir.Validate(opts.Filter).Err(); err != nil {
		return nil, err
	}
	spec := d.Table(kind).Spec

	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		obj, err := d.Translate(kind, rec)
		if err != nil {
			return nil, err
		}
		ok, err := filter.Matches(opts.Filter, obj)
		if err != nil {
			return nil, fmt.Errorf("filter %s %s: %w", spec.Name, rec.ID, err)
		}
		if ok {
			rows = append(rows, Row{Record: rec, Object: obj})
		}
	}

	res := &Result{}
	if opts.Count {
		n := len(rows)
		res.Count = &n
	}

	if len(opts.OrderBy) > 0 {
		if err := checkProperties(spec, orderNames(opts.OrderBy)); err != nil {
			return nil, err
		}
		Sort(rows, opts.OrderBy)
	}

	rows, err := Page(rows, opts.Skip, opts.Top)
	if err != nil {
		return nil, err
	}

	if len(opts.Expand) > 0 {
		if err := expand(d, kind, rows, opts.Expand); err != nil {
			return nil, err
		}
	}
	if len(opts.Select) > 0 {
		if err := checkProperties(spec, opts.Select); err != nil {
			return nil, err
		}
		project(spec, rows, opts.Select, opts.Expand)
	}

	res.Rows = rows
	return res, nil
}

// Sort orders rows by the keys in sequence. The sort is stable.
func Sort(rows []Row, keys []queryir.OrderKey) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		for _, k := range keys {
			av, _ := a.Object.Get(k.Property)
			bv, _ := b.Object.Get(k.Property)
			c := coerce.Compare(av, bv)
			if k.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// Page applies skip then top. Either may be nil.
func Page[T any](rows []T, skip, top *int) ([]T, error) {
	if skip != nil {
		if *skip < 0 {
			return nil, ir.NewInvalidArgument("skip must be non-negative, got %d", *skip)
		}
		if *skip >= len(rows) {
			rows = rows[:0]
		} else {
			rows = rows[*skip:]
		}
	}
	if top != nil {
		if *top < 0 {
			return nil, ir.NewInvalidArgument("top must be non-negative, got %d", *top)
		}
		if *top < len(rows) {
			rows = rows[:*top]
		}
	}
	return rows, nil
}

func orderNames(keys []queryir.OrderKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Property
	}
	return out
}

func checkProperties(spec ir.TypeSpec, names []string) error {
	for _, name := range names {
		if _, ok := spec.Field(name); !ok {
			return ir.NewInvalidArgument("%s has no property %s", spec.Name, name)
		}
	}
	return nil
}
