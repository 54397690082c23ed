// Package query runs the collection pipeline over one record type.
//
// The steps run in a fixed order: filter, count, order, skip, top, then
// expand and select. Filters are checked for unsupported constructs before
// any record is scanned, so a bad filter fails even on an empty collection.
//
// Ordering applies every key in sequence with a stable sort: the first key
// dominates and later keys break ties. Records with equal keys keep the
// directory's native (insertion) order.
package query
