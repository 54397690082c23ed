package directory

import (
	"fmt"
	"slices"

	"github.com/roach88/recordgraph/internal/ir"
)

// Translator maps a stored record to the external shape seen by filters,
// ordering and callers. It receives the directory so computed fields can
// follow relationships.
type Translator func(d *Directory, rec *Record) (ir.IRObject, error)

// Identity is the default translator: a copy of the stored fields.
func Identity(_ *Directory, rec *Record) (ir.IRObject, error) {
	return rec.Fields.Clone(), nil
}

// Relation is a declared one-to-many association resolved to kinds.
type Relation struct {
	Index  int
	Spec   ir.RelationSpec
	Parent Kind
	Child  Kind
}

// Rule is one navigation step from a source kind to a target kind.
// Many is true when the source is the parent side.
type Rule struct {
	Relation *Relation
	Source   Kind
	Target   Kind
	Nav      string
	Many     bool
}

// Option configures a Directory.
type Option func(*Directory) error

// WithTranslator installs the translator for a record type.
func WithTranslator(typeName string, fn Translator) Option {
	return func(d *Directory) error {
		t, ok := d.TableByName(typeName)
		if !ok {
			return ir.NewNotFound(typeName, "", "translator for undeclared record type")
		}
		t.translator = fn
		return nil
	}
}

// WithClock sets the revision clock. Useful for deterministic tests that
// start from a known sequence.
func WithClock(c *Clock) Option {
	return func(d *Directory) error {
		d.clock = c
		return nil
	}
}

// Directory maps record types to their tables, translators and
// relationship rules.
type Directory struct {
	schema    *ir.Schema
	tables    []*Table
	byName    map[string]Kind
	relations []*Relation

	// rules[source][target] is the first declared rule between two kinds.
	rules map[Kind]map[Kind]Rule
	// navs[source][nav] resolves a navigation property name.
	navs map[Kind]map[string]Rule

	clock *Clock
}

// New builds a directory for a compiled schema. The schema must already
// have passed compiler validation; New only reports what it cannot resolve.
func New(schema *ir.Schema, opts ...Option) (*Directory, error) {
	d := &Directory{
		schema: schema,
		byName: make(map[string]Kind, len(schema.Types)),
		rules:  make(map[Kind]map[Kind]Rule),
		navs:   make(map[Kind]map[string]Rule),
		clock:  NewClock(),
	}

	for i, spec := range schema.Types {
		key, ok := spec.KeyField()
		if !ok {
			return nil, ir.NewInvalidArgument("record type %s has no key field", spec.Name)
		}
		if _, dup := d.byName[spec.Name]; dup {
			return nil, ir.NewInvalidArgument("record type %s declared twice", spec.Name)
		}
		kind := Kind(i)
		d.byName[spec.Name] = kind
		d.tables = append(d.tables, newTable(kind, spec, key))
	}

	for i, spec := range schema.Relations {
		parent, ok := d.byName[spec.Parent]
		if !ok {
			return nil, ir.NewNotFound(spec.Parent, "", "relation %s: unknown parent type", spec.Name)
		}
		child, ok := d.byName[spec.Child]
		if !ok {
			return nil, ir.NewNotFound(spec.Child, "", "relation %s: unknown child type", spec.Name)
		}
		if _, ok := d.tables[child].Spec.Field(spec.ForeignKey); !ok {
			return nil, ir.NewNotFound(spec.Child, "", "relation %s: unknown foreign key %s", spec.Name, spec.ForeignKey)
		}

		rel := &Relation{Index: i, Spec: spec, Parent: parent, Child: child}
		d.relations = append(d.relations, rel)

		d.addRule(Rule{Relation: rel, Source: parent, Target: child, Nav: spec.ParentNav, Many: true})
		d.addRule(Rule{Relation: rel, Source: child, Target: parent, Nav: spec.ChildNav})
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Directory) addRule(r Rule) {
	if d.rules[r.Source] == nil {
		d.rules[r.Source] = make(map[Kind]Rule)
	}
	if _, exists := d.rules[r.Source][r.Target]; !exists {
		d.rules[r.Source][r.Target] = r
	}
	if d.navs[r.Source] == nil {
		d.navs[r.Source] = make(map[string]Rule)
	}
	d.navs[r.Source][r.Nav] = r
}

// Schema returns the schema the directory was built from.
func (d *Directory) Schema() *ir.Schema { return d.schema }

// Clock returns the revision clock.
func (d *Directory) Clock() *Clock { return d.clock }

// Kind resolves a record type name.
func (d *Directory) Kind(typeName string) (Kind, bool) {
	k, ok := d.byName[typeName]
	return k, ok
}

// Table returns the table for a kind. It panics on a kind not issued by
// this directory.
func (d *Directory) Table(k Kind) *Table {
	return d.tables[k]
}

// TableByName returns the table for a record type name.
func (d *Directory) TableByName(typeName string) (*Table, bool) {
	k, ok := d.byName[typeName]
	if !ok {
		return nil, false
	}
	return d.tables[k], true
}

// MustTable returns the table for a record type name or a NOT_FOUND error.
func (d *Directory) MustTable(typeName string) (*Table, error) {
	t, ok := d.TableByName(typeName)
	if !ok {
		return nil, ir.NewNotFound(typeName, "", "unknown record type")
	}
	return t, nil
}

// Tables returns every table in declaration order.
func (d *Directory) Tables() []*Table {
	return slices.Clone(d.tables)
}

// Relations returns the declared relations in declaration order.
func (d *Directory) Relations() []*Relation {
	return slices.Clone(d.relations)
}

// Rule returns the navigation rule from source to target kind.
func (d *Directory) Rule(source, target Kind) (Rule, bool) {
	r, ok := d.rules[source][target]
	return r, ok
}

// Navigation resolves a navigation property of a source kind by name.
func (d *Directory) Navigation(source Kind, nav string) (Rule, bool) {
	r, ok := d.navs[source][nav]
	return r, ok
}

// Navigations returns the rules leaving a kind, sorted by navigation name.
func (d *Directory) Navigations(source Kind) []Rule {
	out := make([]Rule, 0, len(d.navs[source]))
	for _, r := range d.navs[source] {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Rule) int {
		switch {
		case a.Nav < b.Nav:
			return -1
		case a.Nav > b.Nav:
			return 1
		}
		return 0
	})
	return out
}

// ChildRelations returns the relations in which k is the child.
func (d *Directory) ChildRelations(k Kind) []*Relation {
	var out []*Relation
	for _, rel := range d.relations {
		if rel.Child == k {
			out = append(out, rel)
		}
	}
	return out
}

// ParentRelations returns the relations in which k is the parent.
func (d *Directory) ParentRelations(k Kind) []*Relation {
	var out []*Relation
	for _, rel := range d.relations {
		if rel.Parent == k {
			out = append(out, rel)
		}
	}
	return out
}

// Translate maps a record of kind k to its external shape.
func (d *Directory) Translate(k Kind, rec *Record) (ir.IRObject, error) {
	obj, err := d.tables[k].translator(d, rec)
	if err != nil {
		return nil, fmt.Errorf("translate %s %s: %w", d.tables[k].Name(), rec.ID, err)
	}
	return obj, nil
}

// Follow applies a rule to a source record. A one-side rule yields at most
// one record.
func (d *Directory) Follow(r Rule, rec *Record) []*Record {
	if r.Many {
		return d.Children(r.Relation, rec)
	}
	if p, ok := d.Parent(r.Relation, rec); ok {
		return []*Record{p}
	}
	return nil
}

// FollowNav is Follow by navigation name.
func (d *Directory) FollowNav(source Kind, rec *Record, nav string) ([]*Record, error) {
	r, ok := d.Navigation(source, nav)
	if !ok {
		return nil, ir.NewNotFound(d.tables[source].Name(), rec.ID, "no navigation property %s", nav)
	}
	return d.Follow(r, rec), nil
}

// Children returns the parent's children under rel in link order.
func (d *Directory) Children(rel *Relation, parent *Record) []*Record {
	ids := parent.children[rel.Index]
	t := d.tables[rel.Child]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if c, ok := t.rows[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Parent returns the child's parent under rel.
func (d *Directory) Parent(rel *Relation, child *Record) (*Record, bool) {
	v := child.Get(rel.Spec.ForeignKey)
	id, ok := v.(ir.IRString)
	if !ok {
		return nil, false
	}
	return d.tables[rel.Parent].Get(string(id))
}

// Insert adds a record to the table of kind k, stamps its revision and
// links it to every parent its foreign keys name. A foreign key naming a
// missing parent is cleared.
func (d *Directory) Insert(k Kind, rec *Record) error {
	if rec.Fields == nil {
		rec.Fields = ir.IRObject{}
	}
	rec.Fields[d.tables[k].key.Name] = ir.IRString(rec.ID)
	if err := d.tables[k].insert(rec); err != nil {
		return err
	}
	rec.Rev = d.clock.Next()
	for _, rel := range d.ChildRelations(k) {
		d.SetForeignKey(rel, rec, rec.Get(rel.Spec.ForeignKey))
	}
	return nil
}

// Touch stamps a record with the next revision after an in-place update.
func (d *Directory) Touch(rec *Record) {
	rec.Rev = d.clock.Next()
}

// Remove deletes a record. It is unlinked from its parents and every child
// that referenced it has its foreign key cleared.
func (d *Directory) Remove(k Kind, id string) (*Record, error) {
	t := d.tables[k]
	rec, ok := t.Get(id)
	if !ok {
		return nil, ir.NewNotFound(t.Name(), id, "record not found")
	}

	for _, rel := range d.ChildRelations(k) {
		d.Unlink(rel, rec)
	}
	for _, rel := range d.ParentRelations(k) {
		for _, child := range d.Children(rel, rec) {
			child.Fields[rel.Spec.ForeignKey] = ir.IRNull{}
			d.Touch(child)
		}
		delete(rec.children, rel.Index)
	}

	t.remove(id)
	return rec, nil
}

// SetForeignKey points child at the parent named by v under rel. Null, a
// non-string or an identifier with no record clears the reference.
func (d *Directory) SetForeignKey(rel *Relation, child *Record, v ir.IRValue) {
	id, ok := v.(ir.IRString)
	if !ok {
		d.Unlink(rel, child)
		return
	}
	parent, ok := d.tables[rel.Parent].Get(string(id))
	if !ok {
		d.Unlink(rel, child)
		return
	}
	d.Link(rel, parent, child)
}

// Link makes parent the parent of child under rel. A previous parent loses
// the child; the child appears in the new parent's list exactly once.
func (d *Directory) Link(rel *Relation, parent, child *Record) {
	if old, ok := d.Parent(rel, child); ok && old != parent {
		old.dropChild(rel.Index, child.ID)
	}
	child.Fields[rel.Spec.ForeignKey] = ir.IRString(parent.ID)
	if parent.children == nil {
		parent.children = make(map[int][]string)
	}
	if !slices.Contains(parent.children[rel.Index], child.ID) {
		parent.children[rel.Index] = append(parent.children[rel.Index], child.ID)
	}
}

// Unlink detaches child from its parent under rel and clears the foreign key.
func (d *Directory) Unlink(rel *Relation, child *Record) {
	if parent, ok := d.Parent(rel, child); ok {
		parent.dropChild(rel.Index, child.ID)
	}
	child.Fields[rel.Spec.ForeignKey] = ir.IRNull{}
}

func (r *Record) dropChild(rel int, id string) {
	ids := r.children[rel]
	if i := slices.Index(ids, id); i >= 0 {
		r.children[rel] = slices.Delete(ids, i, i+1)
	}
}
