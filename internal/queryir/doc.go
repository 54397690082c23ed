// Package queryir provides the filter-expression tree and query options
// consumed by the query pipeline.
//
// A protocol front end parses requests into these types; recordgraph never
// sees request text except through ParseFilter and ParseOrderBy, which exist
// for the CLI and the conformance harness.
//
// SEALED INTERFACES:
//
// Expr is a sealed interface using the marker method pattern. Only types in
// this package implement it, so evaluators can switch exhaustively:
//
//	switch e := expr.(type) {
//	case Binary:
//	    // arithmetic, comparison, boolean
//	case Unary:
//	    // not, negate
//	case Member, Literal, Call:
//	    // leaves and built-in functions
//	default:
//	    // TypeLiteral, LambdaRef, Alias, Enum: parsed but not evaluable
//	}
//
// Literals are typed once, when the tree is built (NewLiteral). Numeric
// literals must be integers; there is no floating literal support.
package queryir
