package compiler

import (
	"fmt"

	"github.com/roach88/recordgraph/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// TypeSpec errors (E101-E109)
	ErrTypeNoKey          = "E101" // exactly one key field required
	ErrTypeMultipleKeys   = "E102" // more than one key field
	ErrKeyNotString       = "E103" // key field must be a string
	ErrInvalidFieldType   = "E104" // invalid type string
	ErrDuplicateName      = "E105" // duplicate type, field or relation name
	ErrFloatTypeForbidden = "E106" // float types not allowed
	ErrComputedKey        = "E107" // key field cannot be computed

	// RelationSpec errors (E110-E119)
	ErrUnknownRelationType = "E110" // parent or child type not declared
	ErrInvalidForeignKey   = "E111" // foreign key missing on child or not a string
	ErrNavigationConflict  = "E112" // navigation name collides with a field or another navigation
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled schema against the declaration rules.
// Returns all errors found (does not fail-fast).
func Validate(schema *ir.Schema) []ValidationError {
	var errs []ValidationError

	typeNames := make(map[string]bool)
	// type name -> names used by fields and navigations
	members := make(map[string]map[string]bool)

	for i, spec := range schema.Types {
		path := fmt.Sprintf("types[%d]", i)

		if typeNames[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate type name: %q", spec.Name),
				Code:    ErrDuplicateName,
			})
		}
		typeNames[spec.Name] = true
		members[spec.Name] = make(map[string]bool)

		errs = append(errs, validateType(path, spec, members[spec.Name])...)
	}

	relNames := make(map[string]bool)
	for i, rel := range schema.Relations {
		path := fmt.Sprintf("relations[%d]", i)

		if relNames[rel.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate relation name: %q", rel.Name),
				Code:    ErrDuplicateName,
			})
		}
		relNames[rel.Name] = true

		errs = append(errs, validateRelation(path, rel, schema, members)...)
	}

	return errs
}

func validateType(path string, spec ir.TypeSpec, names map[string]bool) []ValidationError {
	var errs []ValidationError
	keys := 0

	for j, f := range spec.Fields {
		fieldPath := fmt.Sprintf("%s.fields[%d]", path, j)

		if names[f.Name] {
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("duplicate field name %q in type %q", f.Name, spec.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[f.Name] = true

		errs = append(errs, validateFieldType(f, fieldPath)...)

		if !f.Key {
			continue
		}
		keys++
		if f.Type != ir.FieldString {
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("key field %q must be a string, got %q", f.Name, f.Type),
				Code:    ErrKeyNotString,
			})
		}
		if f.Computed {
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("key field %q cannot be computed", f.Name),
				Code:    ErrComputedKey,
			})
		}
	}

	switch {
	case keys == 0:
		errs = append(errs, ValidationError{
			Field:   path + ".fields",
			Message: fmt.Sprintf("type %q must declare a key field", spec.Name),
			Code:    ErrTypeNoKey,
		})
	case keys > 1:
		errs = append(errs, ValidationError{
			Field:   path + ".fields",
			Message: fmt.Sprintf("type %q declares %d key fields, want 1", spec.Name, keys),
			Code:    ErrTypeMultipleKeys,
		})
	}

	return errs
}

// validateFieldType returns errors for invalid types and floats.
func validateFieldType(f ir.FieldSpec, fieldPath string) []ValidationError {
	if isFloatType(string(f.Type)) {
		return []ValidationError{{
			Field:   fieldPath,
			Message: fmt.Sprintf("float type forbidden for field %q, use decimal instead", f.Name),
			Code:    ErrFloatTypeForbidden,
		}}
	}
	if !ir.ValidFieldTypes[f.Type] {
		return []ValidationError{{
			Field:   fieldPath,
			Message: fmt.Sprintf("invalid type %q for field %q", f.Type, f.Name),
			Code:    ErrInvalidFieldType,
		}}
	}
	return nil
}

func validateRelation(path string, rel ir.RelationSpec, schema *ir.Schema, members map[string]map[string]bool) []ValidationError {
	var errs []ValidationError

	parent, parentOK := schema.Type(rel.Parent)
	child, childOK := schema.Type(rel.Child)
	if !parentOK {
		errs = append(errs, ValidationError{
			Field:   path + ".parent",
			Message: fmt.Sprintf("relation %q references undeclared type %q", rel.Name, rel.Parent),
			Code:    ErrUnknownRelationType,
		})
	}
	if !childOK {
		errs = append(errs, ValidationError{
			Field:   path + ".child",
			Message: fmt.Sprintf("relation %q references undeclared type %q", rel.Name, rel.Child),
			Code:    ErrUnknownRelationType,
		})
	}
	if !parentOK || !childOK {
		return errs
	}

	fk, ok := child.Field(rel.ForeignKey)
	switch {
	case !ok:
		errs = append(errs, ValidationError{
			Field:   path + ".foreignKey",
			Message: fmt.Sprintf("type %q has no field %q", child.Name, rel.ForeignKey),
			Code:    ErrInvalidForeignKey,
		})
	case fk.Type != ir.FieldString || fk.Key || fk.Computed || !fk.Nullable:
		errs = append(errs, ValidationError{
			Field:   path + ".foreignKey",
			Message: fmt.Sprintf("foreign key %s.%s must be a stored, nullable, non-key string", child.Name, fk.Name),
			Code:    ErrInvalidForeignKey,
		})
	}

	navs := []struct {
		owner, name, field string
	}{
		{parent.Name, rel.ParentNav, path + ".parentNav"},
		{child.Name, rel.ChildNav, path + ".childNav"},
	}
	for _, nav := range navs {
		if members[nav.owner][nav.name] {
			errs = append(errs, ValidationError{
				Field:   nav.field,
				Message: fmt.Sprintf("navigation %q already names a field or navigation of %q", nav.name, nav.owner),
				Code:    ErrNavigationConflict,
			})
		}
		members[nav.owner][nav.name] = true
	}

	return errs
}

// isFloatType checks if a type string represents a float type.
func isFloatType(t string) bool {
	floatTypes := map[string]bool{
		"float":   true,
		"float32": true,
		"float64": true,
		"number":  true,
		"double":  true,
	}
	return floatTypes[t]
}
