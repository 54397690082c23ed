// Package ir provides the canonical in-memory representation shared by every
// layer of recordgraph: typed property values, record type declarations and
// the engine error taxonomy.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO binary floats for numbers - IRNumber wraps a decimal
//   - Dates carry no time of day and are normalised to UTC midnight
//   - Records are plain IRObjects keyed by property name
//   - Every engine failure is an *Error carrying one ErrorCode
package ir
