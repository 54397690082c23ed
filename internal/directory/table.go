package directory

import (
	"slices"

	"github.com/roach88/recordgraph/internal/ir"
)

// Kind identifies a record type inside one Directory.
type Kind int

// Record is one stored record. Fields holds every stored (non-computed)
// property, including the key and foreign keys.
type Record struct {
	ID     string
	Fields ir.IRObject

	// Rev is the directory clock value of the last insert or update.
	Rev int64

	// children holds, per relation index where this record is the parent,
	// the ordered child identifiers.
	children map[int][]string
}

// Get returns a stored property, IRNull when absent.
func (r *Record) Get(name string) ir.IRValue {
	v, _ := r.Fields.Get(name)
	return v
}

// Table is the collection of one record type.
type Table struct {
	Kind Kind
	Spec ir.TypeSpec

	key        ir.FieldSpec
	ids        []string
	rows       map[string]*Record
	translator Translator
}

func newTable(kind Kind, spec ir.TypeSpec, key ir.FieldSpec) *Table {
	return &Table{
		Kind:       kind,
		Spec:       spec,
		key:        key,
		rows:       make(map[string]*Record),
		translator: Identity,
	}
}

// Name returns the record type name.
func (t *Table) Name() string { return t.Spec.Name }

// Key returns the identifier field.
func (t *Table) Key() ir.FieldSpec { return t.key }

// Len returns the number of records.
func (t *Table) Len() int { return len(t.ids) }

// Get looks a record up by identifier.
func (t *Table) Get(id string) (*Record, bool) {
	rec, ok := t.rows[id]
	return rec, ok
}

// IDs returns the identifiers in insertion order.
func (t *Table) IDs() []string {
	return slices.Clone(t.ids)
}

// Records returns the records in insertion order.
func (t *Table) Records() []*Record {
	out := make([]*Record, len(t.ids))
	for i, id := range t.ids {
		out[i] = t.rows[id]
	}
	return out
}

func (t *Table) insert(rec *Record) error {
	if _, exists := t.rows[rec.ID]; exists {
		return ir.NewAlreadyExists(t.Name(), rec.ID)
	}
	t.rows[rec.ID] = rec
	t.ids = append(t.ids, rec.ID)
	return nil
}

func (t *Table) remove(id string) (*Record, bool) {
	rec, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	delete(t.rows, id)
	if i := slices.Index(t.ids, id); i >= 0 {
		t.ids = slices.Delete(t.ids, i, i+1)
	}
	return rec, true
}

// NewRecord creates a detached record. Insert attaches it to a table.
func NewRecord(id string, fields ir.IRObject) *Record {
	return &Record{ID: id, Fields: fields}
}
