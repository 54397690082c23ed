package ir

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldType is the declared primitive kind of a record property.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldDecimal FieldType = "decimal"
	FieldInt     FieldType = "int"
	FieldBool    FieldType = "bool"
	FieldDate    FieldType = "date"
)

// ValidFieldTypes defines allowed field types.
var ValidFieldTypes = map[FieldType]bool{
	FieldString:  true,
	FieldDecimal: true,
	FieldInt:     true,
	FieldBool:    true,
	FieldDate:    true,
}

// FieldSpec describes one declared property of a record type.
type FieldSpec struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Nullable bool      `json:"nullable"`
	Key      bool      `json:"key,omitempty"`
	Computed bool      `json:"computed,omitempty"` // produced by translators, never stored
}

// TypeSpec represents a compiled record type definition.
type TypeSpec struct {
	Name      string      `json:"name"`
	EntitySet string      `json:"entity_set,omitempty"`
	Fields    []FieldSpec `json:"fields"`
}

// RelationSpec declares a one-to-many association. Each Child record holds
// the Parent identifier in ForeignKey; ParentNav is the navigation name on the
// parent (a collection) and ChildNav the one on the child (a single record).
type RelationSpec struct {
	Name       string `json:"name"`
	Parent     string `json:"parent"`
	Child      string `json:"child"`
	ForeignKey string `json:"foreign_key"`
	ParentNav  string `json:"parent_nav"`
	ChildNav   string `json:"child_nav"`
}

// KeyField returns the identifier field of the type.
func (t TypeSpec) KeyField() (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Field looks a declared field up by exact name.
func (t TypeSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldFold looks a declared field up ignoring case.
func (t TypeSpec) FieldFold(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// StoredFields returns the non-computed fields in declaration order.
func (t TypeSpec) StoredFields() []FieldSpec {
	out := make([]FieldSpec, 0, len(t.Fields))
	for _, f := range t.Fields {
		if !f.Computed {
			out = append(out, f)
		}
	}
	return out
}

// Zero returns the value a freshly created record holds for an unsupplied
// field: false or 0 for non-nullable bool/int fields, null otherwise.
func (f FieldSpec) Zero() IRValue {
	if f.Nullable {
		return IRNull{}
	}
	switch f.Type {
	case FieldBool:
		return IRBool(false)
	case FieldInt, FieldDecimal:
		return NewIRInt(0)
	case FieldString:
		return IRString("")
	default:
		return IRNull{}
	}
}

// Convert brings a payload value to the field's declared type. Payloads come
// from JSON or YAML, so dates arrive as strings and numbers may arrive as
// strings; anything that cannot be represented fails with TYPE_MISMATCH.
// Null passes through; nullability is the caller's decision.
func (f FieldSpec) Convert(v IRValue) (IRValue, error) {
	if IsNull(v) {
		return IRNull{}, nil
	}

	switch f.Type {
	case FieldString:
		switch val := v.(type) {
		case IRString:
			return val, nil
		case IRNumber:
			return IRString(val.String()), nil
		}
	case FieldDecimal:
		switch val := v.(type) {
		case IRNumber:
			return val, nil
		case IRString:
			if n, err := ParseIRNumber(strings.TrimSpace(string(val))); err == nil {
				return n, nil
			}
		}
	case FieldInt:
		switch val := v.(type) {
		case IRNumber:
			if val.Equal(val.Truncate(0)) {
				return NewIRNumber(val.Truncate(0)), nil
			}
		case IRString:
			if d, err := decimal.NewFromString(strings.TrimSpace(string(val))); err == nil && d.Equal(d.Truncate(0)) {
				return NewIRNumber(d.Truncate(0)), nil
			}
		}
	case FieldBool:
		switch val := v.(type) {
		case IRBool:
			return val, nil
		case IRString:
			switch strings.ToLower(strings.TrimSpace(string(val))) {
			case "true":
				return IRBool(true), nil
			case "false":
				return IRBool(false), nil
			}
		}
	case FieldDate:
		switch val := v.(type) {
		case IRDate:
			return val, nil
		case IRString:
			if d, err := ParseIRDate(string(val)); err == nil {
				return d, nil
			}
		}
	}

	return nil, NewTypeMismatch("field %s: cannot use %s as %s", f.Name, Text(v), f.Type)
}

// String implements fmt.Stringer for diagnostics.
func (f FieldSpec) String() string {
	s := fmt.Sprintf("%s %s", f.Name, f.Type)
	if f.Key {
		s += " key"
	}
	if f.Nullable {
		s += " nullable"
	}
	if f.Computed {
		s += " computed"
	}
	return s
}

// Schema is a compiled set of record types and the relations between them.
type Schema struct {
	Types     []TypeSpec     `json:"types"`
	Relations []RelationSpec `json:"relations"`
}

// Type looks a record type up by name.
func (s *Schema) Type(name string) (TypeSpec, bool) {
	for _, t := range s.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeSpec{}, false
}
