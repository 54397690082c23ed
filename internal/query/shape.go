package query

import (
	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/ir"
)

// expand attaches related records under each navigation name: a collection
// as an array, a single record as an object or null.
func expand(d *directory.Directory, kind directory.Kind, rows []Row, navs []string) error {
	rules := make([]directory.Rule, len(navs))
	for i, nav := range navs {
		r, ok := d.Navigation(kind, nav)
		if !ok {
			return ir.NewNotFound(d.Table(kind).Name(), "", "no navigation property %s", nav)
		}
		rules[i] = r
	}

	for _, row := range rows {
		for _, r := range rules {
			related := d.Follow(r, row.Record)
			if !r.Many {
				if len(related) == 0 {
					row.Object[r.Nav] = ir.IRNull{}
					continue
				}
				obj, err := d.Translate(r.Target, related[0])
				if err != nil {
					return err
				}
				row.Object[r.Nav] = obj
				continue
			}

			arr := make(ir.IRArray, 0, len(related))
			for _, rec := range related {
				obj, err := d.Translate(r.Target, rec)
				if err != nil {
					return err
				}
				arr = append(arr, obj)
			}
			row.Object[r.Nav] = arr
		}
	}
	return nil
}

// project keeps the key, the selected properties and any expanded
// navigations.
func project(spec ir.TypeSpec, rows []Row, sel, expanded []string) {
	keep := make(map[string]bool, len(sel)+len(expanded)+1)
	if key, ok := spec.KeyField(); ok {
		keep[key.Name] = true
	}
	for _, name := range sel {
		keep[name] = true
	}
	for _, name := range expanded {
		keep[name] = true
	}

	for i := range rows {
		out := make(ir.IRObject, len(keep))
		for name, v := range rows[i].Object {
			if keep[name] {
				out[name] = v
			}
		}
		rows[i].Object = out
	}
}
