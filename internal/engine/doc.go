// Package engine is the entry point a protocol front end calls: queries,
// relationship navigation and writes over an in-memory record directory.
//
// ARCHITECTURE:
//
// The engine composes four parts built once at startup from a compiled
// schema: the record directory (tables, translators, relationship rules),
// the query pipeline, the relationship resolver and the merger. Every call
// runs to completion on the calling goroutine with no I/O.
//
// Single Writer:
// Engine methods perform no locking. A host with one goroutine may call
// them directly. A concurrent host either guards the engine with its own
// mutex or starts Run in one goroutine and routes every call through Do,
// which executes operations one at a time in submission order.
//
// Logging:
// Mutations log at Debug with type, id and force_nulls. Failures log at Warn
// with the error code. The default logger discards everything.
package engine
