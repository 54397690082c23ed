// Package directory holds every record collection in process memory and the
// relationship rules between record types.
//
// Record types are assigned a Kind (a small integer) in declaration order
// when the directory is built, and the relation table is resolved once at
// the same time. Lookups on the hot path never compare type-name strings.
//
// Storage is arena style: each Kind owns one Table that keeps records in
// insertion order and indexes them by identifier. Relationships are
// identifier references resolved through the tables. A child stores its
// parent's identifier in the relation's foreign-key field; the parent stores
// an ordered, duplicate-free list of child identifiers. Link and Unlink keep
// both sides in step.
//
// The directory performs no locking. A host that shares one directory
// between goroutines must serialize every mutating call (Insert, Remove,
// Link, Unlink, Update) against reads.
package directory
