// Package relation resolves related records across a declared association.
//
// Targets may be named by record type or by navigation property. Both
// directions are supported: a parent yields its children in link order and
// a child yields at most its parent.
package relation

import (
	"golang.org/x/text/cases"

	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/query"
	"github.com/roach88/recordgraph/internal/queryir"
)

// Resolve finds the rule from a source kind to target, which is either a
// navigation property name or a record type name. Navigation names win.
func Resolve(d *directory.Directory, source directory.Kind, target string) (directory.Rule, error) {
	if r, ok := d.Navigation(source, target); ok {
		return r, nil
	}
	if k, ok := d.Kind(target); ok {
		if r, ok := d.Rule(source, k); ok {
			return r, nil
		}
	}
	return directory.Rule{}, ir.NewNotFound(d.Table(source).Name(), "",
		"no association between %s and %s", d.Table(source).Name(), target)
}

// Collection returns the records related to rec, each translated to the
// target's external shape. A child with no parent yields an empty sequence.
func Collection(d *directory.Directory, source directory.Kind, rec *directory.Record, target string) ([]query.Row, error) {
	r, err := Resolve(d, source, target)
	if err != nil {
		return nil, err
	}
	return translate(d, r.Target, d.Follow(r, rec))
}

// Records is Collection without translation, for callers that run the
// query pipeline over the related records.
func Records(d *directory.Directory, source directory.Kind, rec *directory.Record, target string) (directory.Rule, []*directory.Record, error) {
	r, err := Resolve(d, source, target)
	if err != nil {
		return directory.Rule{}, nil, err
	}
	return r, d.Follow(r, rec), nil
}

// One returns a single related record or nil when there is none.
//
// On the many side a nil key selects the first child. A key selects the
// first child whose named property (the identifier when Name is empty)
// renders equal to Value; no match resolves to nil. On the one side the key
// is ignored and the parent is returned.
func One(d *directory.Directory, source directory.Kind, rec *directory.Record, target string, key *queryir.KeyPredicate) (*query.Row, error) {
	r, err := Resolve(d, source, target)
	if err != nil {
		return nil, err
	}

	related := d.Follow(r, rec)
	if len(related) == 0 {
		return nil, nil
	}
	if !r.Many || key == nil {
		return row(d, r.Target, related[0])
	}

	spec := d.Table(r.Target).Spec
	name, err := keyProperty(spec, key.Name)
	if err != nil {
		return nil, err
	}
	field, _ := spec.Field(name)
	for _, c := range related {
		v := c.Get(name)
		if field.Computed {
			obj, err := d.Translate(r.Target, c)
			if err != nil {
				return nil, err
			}
			v, _ = obj.Get(name)
		}
		if ir.Text(v) == key.Value {
			return row(d, r.Target, c)
		}
	}
	return nil, nil
}

// keyProperty matches a predicate name against the declared fields ignoring
// case. An empty name is the identifier.
func keyProperty(spec ir.TypeSpec, name string) (string, error) {
	if name == "" {
		key, _ := spec.KeyField()
		return key.Name, nil
	}
	fold := cases.Fold()
	want := fold.String(name)
	for _, f := range spec.Fields {
		if fold.String(f.Name) == want {
			return f.Name, nil
		}
	}
	return "", ir.NewInvalidArgument("%s has no property %s", spec.Name, name)
}

func row(d *directory.Directory, k directory.Kind, rec *directory.Record) (*query.Row, error) {
	obj, err := d.Translate(k, rec)
	if err != nil {
		return nil, err
	}
	return &query.Row{Record: rec, Object: obj}, nil
}

func translate(d *directory.Directory, k directory.Kind, recs []*directory.Record) ([]query.Row, error) {
	out := make([]query.Row, 0, len(recs))
	for _, rec := range recs {
		r, err := row(d, k, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}
