// Package merge reconciles incoming partial records against stored ones.
//
// Each record type gets a field table, built once by New, listing every
// stored field with its nullability and, for foreign keys, the relation it
// drives. Merges walk that table; nothing is looked up by reflection or by
// comparing type names at merge time.
//
// Two policies govern omitted fields. PATCH (forceNulls false) leaves a
// field untouched when the partial omits it or supplies null. PUT
// (forceNulls true) resets every omitted field to null, except the
// identifier and fields that cannot hold null, which keep their value. An
// explicit null under PUT behaves the same way.
//
// Foreign keys may be supplied by field name or through the child's
// navigation property, as an identifier or as an object carrying the
// parent's key. A reference to a missing parent resolves to null.
package merge
