package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/queryir"
)

func claimRecord() ir.IRObject {
	return ir.IRObject{
		"Id":          ir.IRString("3001"),
		"PolicyId":    ir.IRString("2000"),
		"Approved":    ir.IRBool(false),
		"ClaimAmount": ir.MustIRNumber("25000.50"),
		"ClaimDate":   ir.MustIRDate("2009-03-04"),
		"ClaimReason": ir.IRString("Accident"),
		"Flag":        ir.IRString(" TRUE "),
		"Units":       ir.NewIRInt(7),
		"Missing":     ir.IRNull{},
	}
}

func mustParse(t *testing.T, src string) queryir.Expr {
	t.Helper()
	e, err := queryir.ParseFilter(src)
	require.NoError(t, err)
	return e
}

func TestEvaluateValues(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"arithmetic", "(3 add 4) mul 2", "14"},
		{"decimal precision kept", "ClaimAmount add 1", "25001.5"},
		{"subtraction", "Units sub 10", "-3"},
		{"division half even", "7 div 2", "4"},
		{"division of decimal field", "ClaimAmount div 2", "12500"},
		{"modulo truncates", "ClaimAmount mod 7", "3"},
		{"negate", "-Units", "-7"},
		{"member", "ClaimReason", "Accident"},
		{"absent member is null", "Nope", "null"},
		{"date literal", "2016-07-28", "2016-07-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Evaluate(mustParse(t, tt.expr), claimRecord())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ir.Text(v))
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"bool field", "Approved eq false", true},
		{"number compare", "ClaimAmount gt 25000", true},
		{"number equal across scale", "Units eq 7", true},
		{"date compare", "ClaimDate lt 2010-01-01", true},
		{"string compare", "ClaimReason ge 'Accident'", true},
		{"string ne", "ClaimReason ne 'Injury'", true},
		{"null eq null", "Missing eq null", true},
		{"null eq value", "null eq 'x'", false},
		{"null sorts first", "null lt 'x'", true},
		{"absent member compares as null", "Nope eq null", true},
		{"and", "Approved eq false and Units gt 5", true},
		{"or", "Approved or Units gt 100", false},
		{"string boolean projection", "Flag and true", true},
		{"number boolean projection", "Units and true", true},
		{"not", "not Approved", true},
		{"contains", "contains(ClaimReason, 'cci')", true},
		{"contains miss", "contains(ClaimReason, 'Injury')", false},
		{"arithmetic in comparison", "Units mul 2 eq 14", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(mustParse(t, tt.expr), claimRecord())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesNilExpression(t *testing.T) {
	ok, err := Matches(nil, claimRecord())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name  string
		expr  queryir.Expr
		check func(error) bool
		msg   string
	}{
		{"add on strings", queryir.Binary{Op: queryir.OpAdd, Left: queryir.Prop("ClaimReason"), Right: queryir.Int(1)},
			ir.IsTypeMismatch, "numeric operands"},
		{"add on null", queryir.Binary{Op: queryir.OpAdd, Left: queryir.Prop("Missing"), Right: queryir.Int(1)},
			ir.IsTypeMismatch, "numeric operands"},
		{"and on string", queryir.Binary{Op: queryir.OpAnd, Left: queryir.Prop("ClaimReason"), Right: queryir.Bool(true)},
			ir.IsTypeMismatch, "boolean operands"},
		{"not on string flag", queryir.Unary{Op: queryir.OpNot, Operand: queryir.Prop("Flag")},
			ir.IsTypeMismatch, "boolean operand"},
		{"negate string", queryir.Unary{Op: queryir.OpMinus, Operand: queryir.Str("x")},
			ir.IsTypeMismatch, "numeric operand"},
		{"contains on number", queryir.Call{Name: "contains", Args: []queryir.Expr{queryir.Prop("Units"), queryir.Str("7")}},
			ir.IsTypeMismatch, "string arguments"},
		{"division by zero", queryir.Binary{Op: queryir.OpDiv, Left: queryir.Int(1), Right: queryir.Int(0)},
			ir.IsInvalidArgument, "division by zero"},
		{"modulo by zero", queryir.Binary{Op: queryir.OpMod, Left: queryir.Int(1), Right: queryir.Int(0)},
			ir.IsInvalidArgument, "modulo by zero"},
		{"navigation", queryir.Member{Path: []string{"Policy", "Id"}},
			ir.IsNotImplemented, "single-segment"},
		{"unknown function", queryir.Call{Name: "startswith", Args: []queryir.Expr{queryir.Prop("ClaimReason"), queryir.Str("A")}},
			ir.IsNotImplemented, "startswith"},
		{"contains arity", queryir.Call{Name: "contains", Args: []queryir.Expr{queryir.Prop("ClaimReason")}},
			ir.IsNotImplemented, "2 arguments"},
		{"has", queryir.Binary{Op: queryir.OpHas, Left: queryir.Prop("A"), Right: queryir.Enum{Type: "NS.E", Value: "x"}},
			ir.IsNotImplemented, "enum literal"},
		{"type literal", queryir.TypeLiteral{Name: "NS.Claim"}, ir.IsNotImplemented, "type literal"},
		{"lambda", queryir.LambdaRef{Name: "c"}, ir.IsNotImplemented, "lambda"},
		{"alias", queryir.Alias{Name: "p"}, ir.IsNotImplemented, "alias"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, claimRecord())
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMatchesRequiresBoolean(t *testing.T) {
	for _, src := range []string{"Units add 1", "ClaimReason", "Missing", "Flag"} {
		t.Run(src, func(t *testing.T) {
			_, err := Matches(mustParse(t, src), claimRecord())
			require.Error(t, err)
			assert.True(t, ir.IsTypeMismatch(err))
			assert.Contains(t, err.Error(), "must evaluate to boolean")
		})
	}
}

// An error in one operand surfaces even when the other would decide the result.
func TestEvaluatePropagatesOperandErrors(t *testing.T) {
	_, err := Matches(mustParse(t, "false and (ClaimReason add 1 eq 2)"), claimRecord())
	assert.True(t, ir.IsTypeMismatch(err))
}
