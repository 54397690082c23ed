package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/queryir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Label(), event.ID, event.Outcome)
		}
	}

	return buf.String()
}

// matchesOp reports whether op names the event, either by op alone or by
// its "op Type" label.
func matchesOp(event TraceEvent, op string) bool {
	return event.Op == op || event.Label() == op
}

// assertTraceContains checks that a step with the given op ran, optionally
// against a specific record type and id.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if !matchesOp(event, a.Op) {
			continue
		}
		if a.RecordType != "" && event.Type != a.RecordType {
			continue
		}
		if a.ID != "" && event.ID != a.ID {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("step %s (type %q, id %q)", a.Op, a.RecordType, a.ID),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that steps appear in the specified order.
// Steps don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		for _, op := range a.Ops {
			if matchesOp(event, op) && positions[op] == 0 {
				positions[op] = i + 1 // 1-indexed for readability
			}
		}
	}

	for _, op := range a.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all steps present: %v", a.Ops),
				Actual:   fmt.Sprintf("missing step: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("steps in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that a step appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if matchesOp(event, a.Op) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState reads one record and checks the expected values using
// subset semantics.
func assertFinalState(actx *AssertionContext, a Assertion) error {
	var obj ir.IRObject
	err := actx.Engine.Do(actx.Ctx, func(e *engine.Engine) error {
		var err error
		obj, err = e.Get(a.RecordType, a.ID)
		return err
	})
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record %s %s", a.RecordType, a.ID),
			Actual:   err.Error(),
		}
	}

	if mismatches := matchRecord(obj, a.Expect); len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record %s %s to match %v", a.RecordType, a.ID, a.Expect),
			Actual:   strings.Join(mismatches, "; "),
		}
	}
	return nil
}

// assertRecordCount checks how many records a type holds.
func assertRecordCount(actx *AssertionContext, a Assertion) error {
	var n int
	err := actx.Engine.Do(actx.Ctx, func(e *engine.Engine) error {
		res, err := e.Query(a.RecordType, queryir.Options{Count: true, Top: queryir.IntPtr(0)})
		if err != nil {
			return err
		}
		n = *res.Count
		return nil
	})
	if err != nil {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d records of %s", a.Count, a.RecordType),
			Actual:   err.Error(),
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d records of %s", a.Count, a.RecordType),
			Actual:   fmt.Sprintf("%d records", n),
		}
	}
	return nil
}

// matchRecord compares the expected fields against a record. Extra fields
// in the record are ignored. Keys are checked in sorted order so messages
// are deterministic.
func matchRecord(actual ir.IRObject, expected map[string]any) []string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, key := range keys {
		want, err := ir.FromGo(expected[key])
		if err != nil {
			errs = append(errs, fmt.Sprintf("field %q: %v", key, err))
			continue
		}
		got, ok := actual.Get(key)
		if !ok {
			errs = append(errs, fmt.Sprintf("field %q not present", key))
			continue
		}
		if !valuesEqual(got, want) {
			errs = append(errs, fmt.Sprintf("field %q = %s, want %s", key, ir.Text(got), ir.Text(want)))
		}
	}
	return errs
}

// valuesEqual compares a record value with an expected one decoded from
// YAML. Numbers compare by value so 100 matches 100.00; everything else
// compares by its text form, so a quoted date matches an IRDate.
func valuesEqual(actual, expected ir.IRValue) bool {
	if ir.IsNull(actual) || ir.IsNull(expected) {
		return ir.IsNull(actual) && ir.IsNull(expected)
	}
	if a, ok := actual.(ir.IRNumber); ok {
		if e, ok := expected.(ir.IRNumber); ok {
			return a.Equal(e.Decimal)
		}
	}
	return ir.Text(actual) == ir.Text(expected)
}

// AssertionContext gives assertions access to the engine under test.
type AssertionContext struct {
	Engine *engine.Engine
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// actx may be nil when only trace assertions are used.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertRecordCount:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: %s requires an engine", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(actx, assertion)
			} else {
				err = assertRecordCount(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
