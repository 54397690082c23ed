package merge

import (
	"fmt"
	"strconv"

	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/ir"
)

// fieldPlan is one row of a type's reconciliation table.
type fieldPlan struct {
	spec ir.FieldSpec
	// rel is set when the field is the foreign key of a relation.
	rel *directory.Relation
}

type navPlan struct {
	rel       *directory.Relation
	parentKey string
}

type typePlan struct {
	kind   directory.Kind
	key    ir.FieldSpec
	fields []fieldPlan
	byName map[string]int
	// navs maps a child-side navigation name to its relation.
	navs     map[string]navPlan
	computed map[string]bool
}

// Merger applies creates, updates and deletes to a directory.
type Merger struct {
	dir   *directory.Directory
	plans []*typePlan
}

// New builds the reconciliation tables for every type in d.
func New(d *directory.Directory) *Merger {
	m := &Merger{dir: d}
	for _, t := range d.Tables() {
		p := &typePlan{
			kind:     t.Kind,
			key:      t.Key(),
			byName:   make(map[string]int),
			navs:     make(map[string]navPlan),
			computed: make(map[string]bool),
		}
		fks := make(map[string]*directory.Relation)
		for _, rel := range d.ChildRelations(t.Kind) {
			fks[rel.Spec.ForeignKey] = rel
			p.navs[rel.Spec.ChildNav] = navPlan{rel: rel, parentKey: d.Table(rel.Parent).Key().Name}
		}
		for _, f := range t.Spec.Fields {
			if f.Computed {
				p.computed[f.Name] = true
				continue
			}
			p.byName[f.Name] = len(p.fields)
			p.fields = append(p.fields, fieldPlan{spec: f, rel: fks[f.Name]})
		}
		m.plans = append(m.plans, p)
	}
	return m
}

// Directory returns the directory the merger writes to.
func (m *Merger) Directory() *directory.Directory { return m.dir }

func (m *Merger) plan(typeName string) (*typePlan, *directory.Table, error) {
	t, err := m.dir.MustTable(typeName)
	if err != nil {
		return nil, nil, err
	}
	return m.plans[t.Kind], t, nil
}

// Create inserts a new record. A supplied identifier must not exist yet;
// without one the next integer identifier is assigned.
func (m *Merger) Create(typeName string, partial ir.IRObject) (*directory.Record, error) {
	p, t, err := m.plan(typeName)
	if err != nil {
		return nil, err
	}
	in, err := p.normalize(typeName, partial)
	if err != nil {
		return nil, err
	}

	id, ok, err := p.identifier(in)
	if err != nil {
		return nil, err
	}
	if !ok {
		id = NextID(t)
	} else if _, exists := t.Get(id); exists {
		return nil, ir.NewAlreadyExists(typeName, id)
	}

	fields := make(ir.IRObject, len(p.fields))
	for _, f := range p.fields {
		fields[f.spec.Name] = f.spec.Zero()
	}
	for _, f := range p.fields {
		if v, supplied := in[f.spec.Name]; supplied && f.spec.Name != p.key.Name {
			if !ir.IsNull(v) || f.spec.Nullable {
				fields[f.spec.Name] = v
			}
		}
	}
	fields[p.key.Name] = ir.IRString(id)

	rec := directory.NewRecord(id, fields)
	if err := m.dir.Insert(p.kind, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update merges partial into the record its identifier names.
func (m *Merger) Update(typeName string, partial ir.IRObject, forceNulls bool) (*directory.Record, error) {
	p, t, err := m.plan(typeName)
	if err != nil {
		return nil, err
	}
	in, err := p.normalize(typeName, partial)
	if err != nil {
		return nil, err
	}

	id, ok, err := p.identifier(in)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ir.NewInvalidArgument("update %s: identifier %s is required", typeName, p.key.Name)
	}
	rec, exists := t.Get(id)
	if !exists {
		return nil, ir.NewNotFound(typeName, id, "record not found")
	}

	m.apply(p, rec, in, forceNulls)
	return rec, nil
}

// Upsert updates the record the identifier names when it exists and
// creates one otherwise.
func (m *Merger) Upsert(typeName string, partial ir.IRObject, forceNulls bool) (*directory.Record, bool, error) {
	p, t, err := m.plan(typeName)
	if err != nil {
		return nil, false, err
	}
	in, err := p.normalize(typeName, partial)
	if err != nil {
		return nil, false, err
	}
	id, ok, err := p.identifier(in)
	if err != nil {
		return nil, false, err
	}
	if ok {
		if rec, exists := t.Get(id); exists {
			m.apply(p, rec, in, forceNulls)
			return rec, false, nil
		}
	}

	rec, err := m.Create(typeName, partial)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Delete removes a record and clears every reference to it.
func (m *Merger) Delete(typeName, id string) (*directory.Record, error) {
	t, err := m.dir.MustTable(typeName)
	if err != nil {
		return nil, err
	}
	return m.dir.Remove(t.Kind, id)
}

func (m *Merger) apply(p *typePlan, rec *directory.Record, in ir.IRObject, forceNulls bool) {
	for _, f := range p.fields {
		if f.spec.Key {
			continue
		}
		v, supplied := in[f.spec.Name]
		switch {
		case supplied && !ir.IsNull(v):
		case !forceNulls:
			continue
		case !f.spec.Nullable:
			continue
		default:
			v = ir.IRNull{}
		}

		if f.rel != nil {
			m.dir.SetForeignKey(f.rel, rec, v)
			continue
		}
		rec.Fields[f.spec.Name] = v
	}
	m.dir.Touch(rec)
}

// normalize converts a raw partial into stored field names and types.
// Computed fields are dropped; navigation references become foreign keys.
func (p *typePlan) normalize(typeName string, partial ir.IRObject) (ir.IRObject, error) {
	out := make(ir.IRObject, len(partial))
	for _, name := range partial.SortedKeys() {
		raw, _ := partial.Get(name)

		if i, ok := p.byName[name]; ok {
			v, err := p.fields[i].spec.Convert(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", typeName, err)
			}
			out[name] = v
			continue
		}
		if p.computed[name] {
			continue
		}
		if nav, ok := p.navs[name]; ok {
			v, err := nav.reference(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", typeName, err)
			}
			if _, direct := partial[nav.rel.Spec.ForeignKey]; !direct {
				out[nav.rel.Spec.ForeignKey] = v
			}
			continue
		}
		return nil, ir.NewInvalidArgument("%s has no property %s", typeName, name)
	}
	return out, nil
}

func (p *typePlan) identifier(in ir.IRObject) (string, bool, error) {
	v, ok := in[p.key.Name]
	if !ok || ir.IsNull(v) {
		return "", false, nil
	}
	s, ok := v.(ir.IRString)
	if !ok || s == "" {
		return "", false, ir.NewInvalidArgument("identifier %s must be a non-empty string", p.key.Name)
	}
	return string(s), true, nil
}

// reference extracts a parent identifier from a navigation value: a
// string, a number, an object holding the parent's key, or null.
func (n navPlan) reference(v ir.IRValue) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return ir.IRNull{}, nil
	case ir.IRString:
		return val, nil
	case ir.IRNumber:
		return ir.IRString(val.String()), nil
	case ir.IRObject:
		key, _ := val.Get(n.parentKey)
		return n.reference(key)
	}
	return nil, ir.NewTypeMismatch("navigation %s: cannot use %s as a reference", n.rel.Spec.ChildNav, ir.Text(v))
}

// NextID returns one more than the largest integer identifier in t, or "1"
// for a table with none. Identifiers that are not integers are skipped.
func NextID(t *directory.Table) string {
	var highest int64
	for _, id := range t.IDs() {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return strconv.FormatInt(highest+1, 10)
}
