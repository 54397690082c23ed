package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/recordgraph/internal/ir"
)

// CompileSchema parses the top-level `type` and `relation` structs of a CUE
// value into an ir.Schema. Declaration order is preserved.
//
//	type: Policy: {
//	    entitySet: "Policies"
//	    fields: {
//	        Id:              {type: "string", key: true}
//	        NumberOfUnits:   "int"
//	        PolicyEndDate:   "date"
//	        TotalCostAmount: {type: "decimal", computed: true}
//	    }
//	}
//	relation: PolicyClaims: {
//	    parent: "Policy", child: "Claim", foreignKey: "PolicyId"
//	    parentNav: "Claims", childNav: "Policy"
//	}
func CompileSchema(v cue.Value) (*ir.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := &ir.Schema{}

	typesVal := v.LookupPath(cue.ParsePath("type"))
	if !typesVal.Exists() {
		return nil, &CompileError{
			Field:   "type",
			Message: "at least one record type is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		spec, err := CompileType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		schema.Types = append(schema.Types, *spec)
	}

	relVal := v.LookupPath(cue.ParsePath("relation"))
	if relVal.Exists() {
		relIter, err := relVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for relIter.Next() {
			rel, err := CompileRelation(relIter.Label(), relIter.Value())
			if err != nil {
				return nil, err
			}
			schema.Relations = append(schema.Relations, *rel)
		}
	}

	return schema, nil
}

// CompileType parses one record type declaration.
func CompileType(name string, v cue.Value) (*ir.TypeSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.TypeSpec{Name: name}

	entitySet, err := optionalString(v, "entitySet")
	if err != nil {
		return nil, err
	}
	spec.EntitySet = entitySet

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("type.%s.fields", name),
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		field, err := compileField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Fields = append(spec.Fields, field)
	}

	return spec, nil
}

// compileField accepts either a bare type string or a struct with type,
// key, nullable and computed attributes.
func compileField(name string, v cue.Value) (ir.FieldSpec, error) {
	field := ir.FieldSpec{Name: name}

	if typeName, err := v.String(); err == nil {
		field.Type = ir.FieldType(typeName)
		field.Nullable = defaultNullable(field.Type)
		return field, nil
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return field, &CompileError{
			Field:   name,
			Message: "must be a type name or a struct with a type field",
			Pos:     v.Pos(),
		}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return field, formatCUEError(err)
	}
	field.Type = ir.FieldType(typeName)

	if field.Key, err = optionalBool(v, "key", false); err != nil {
		return field, err
	}
	if field.Computed, err = optionalBool(v, "computed", false); err != nil {
		return field, err
	}
	// Keys are never nullable.
	if field.Nullable, err = optionalBool(v, "nullable", defaultNullable(field.Type) && !field.Key); err != nil {
		return field, err
	}

	return field, nil
}

// defaultNullable reports whether a field of type t holds null unless told
// otherwise. Plain int and bool fields cannot.
func defaultNullable(t ir.FieldType) bool {
	return t != ir.FieldInt && t != ir.FieldBool
}

// CompileRelation parses one relation declaration.
func CompileRelation(name string, v cue.Value) (*ir.RelationSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rel := &ir.RelationSpec{Name: name}
	required := []struct {
		path string
		dst  *string
	}{
		{"parent", &rel.Parent},
		{"child", &rel.Child},
		{"foreignKey", &rel.ForeignKey},
	}
	for _, r := range required {
		val := v.LookupPath(cue.ParsePath(r.path))
		if !val.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("relation.%s.%s", name, r.path),
				Message: r.path + " is required",
				Pos:     v.Pos(),
			}
		}
		s, err := val.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		*r.dst = s
	}

	var err error
	if rel.ParentNav, err = optionalString(v, "parentNav"); err != nil {
		return nil, err
	}
	if rel.ChildNav, err = optionalString(v, "childNav"); err != nil {
		return nil, err
	}
	// Navigation names default to the target type names.
	if rel.ParentNav == "" {
		rel.ParentNav = rel.Child
	}
	if rel.ChildNav == "" {
		rel.ChildNav = rel.Parent
	}

	return rel, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string, def bool) (bool, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return def, nil
	}
	b, err := val.Bool()
	if err != nil {
		return def, formatCUEError(err)
	}
	return b, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
