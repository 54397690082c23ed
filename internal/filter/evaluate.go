// Package filter evaluates filter-expression trees against a single record.
//
// Evaluation is pure: it reads the record and the tree and returns a value.
// Operators decide legality from the coerced kinds of their operands (see
// package coerce); everything else the evaluator cannot run is reported as
// NOT_IMPLEMENTED.
package filter

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/recordgraph/internal/coerce"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/queryir"
)

// Matches evaluates e against rec and requires a boolean result.
// A nil expression matches every record.
func Matches(e queryir.Expr, rec ir.IRObject) (bool, error) {
	if e == nil {
		return true, nil
	}

	v, err := Evaluate(e, rec)
	if err != nil {
		return false, err
	}
	b, ok := v.(ir.IRBool)
	if !ok {
		return false, ir.NewTypeMismatch("a filter expression must evaluate to boolean, got %s", ir.Text(v))
	}
	return bool(b), nil
}

// Evaluate computes the value of e for rec.
func Evaluate(e queryir.Expr, rec ir.IRObject) (ir.IRValue, error) {
	switch node := e.(type) {
	case queryir.Binary:
		return evalBinary(node, rec)
	case queryir.Unary:
		return evalUnary(node, rec)
	case queryir.Member:
		if len(node.Path) != 1 {
			return nil, ir.NewNotImplemented("member path %q: only single-segment properties are supported",
				strings.Join(node.Path, "/"))
		}
		v, _ := rec.Get(node.Path[0])
		return v, nil
	case queryir.Literal:
		if node.Value == nil {
			return ir.IRNull{}, nil
		}
		return node.Value, nil
	case queryir.Call:
		return evalCall(node, rec)
	case queryir.TypeLiteral:
		return nil, ir.NewNotImplemented("type literal %q", node.Name)
	case queryir.LambdaRef:
		return nil, ir.NewNotImplemented("lambda variable %q", node.Name)
	case queryir.Alias:
		return nil, ir.NewNotImplemented("parameter alias %q", node.Name)
	case queryir.Enum:
		return nil, ir.NewNotImplemented("enum literal %s'%s'", node.Type, node.Value)
	case nil:
		return nil, ir.NewInvalidArgument("missing expression")
	default:
		return nil, ir.NewNotImplemented("expression type %T", e)
	}
}

func evalBinary(node queryir.Binary, rec ir.IRObject) (ir.IRValue, error) {
	left, err := Evaluate(node.Left, rec)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(node.Right, rec)
	if err != nil {
		return nil, err
	}

	pair := coerce.Coerce(left, right)

	switch {
	case node.Op.IsArithmetic():
		if !pair.BothNumeric() {
			return nil, ir.NewTypeMismatch("%s requires numeric operands, got %s and %s",
				node.Op, ir.Text(left), ir.Text(right))
		}
		return arithmetic(node.Op, pair.Left.Num, pair.Right.Num)

	case node.Op.IsComparison():
		return ir.IRBool(compare(node.Op, pair.Compare())), nil

	case node.Op.IsLogical():
		if !pair.BothBoolean() {
			return nil, ir.NewTypeMismatch("%s requires boolean operands, got %s and %s",
				node.Op, ir.Text(left), ir.Text(right))
		}
		if node.Op == queryir.OpAnd {
			return ir.IRBool(pair.Left.Bool && pair.Right.Bool), nil
		}
		return ir.IRBool(pair.Left.Bool || pair.Right.Bool), nil
	}

	return nil, ir.NewNotImplemented("binary operator %q", node.Op)
}

func arithmetic(op queryir.BinaryOp, a, b decimal.Decimal) (ir.IRValue, error) {
	switch op {
	case queryir.OpAdd:
		return ir.NewIRNumber(a.Add(b)), nil
	case queryir.OpSub:
		return ir.NewIRNumber(a.Sub(b)), nil
	case queryir.OpMul:
		return ir.NewIRNumber(a.Mul(b)), nil
	case queryir.OpDiv:
		q, err := coerce.Divide(a, b)
		if err != nil {
			return nil, err
		}
		return ir.NewIRNumber(q), nil
	default: // OpMod
		r, err := coerce.Modulo(a, b)
		if err != nil {
			return nil, err
		}
		return ir.NewIRNumber(r), nil
	}
}

func compare(op queryir.BinaryOp, c int) bool {
	switch op {
	case queryir.OpEq:
		return c == 0
	case queryir.OpNe:
		return c != 0
	case queryir.OpGe:
		return c >= 0
	case queryir.OpGt:
		return c > 0
	case queryir.OpLe:
		return c <= 0
	default: // OpLt
		return c < 0
	}
}

func evalUnary(node queryir.Unary, rec ir.IRObject) (ir.IRValue, error) {
	v, err := Evaluate(node.Operand, rec)
	if err != nil {
		return nil, err
	}

	switch node.Op {
	case queryir.OpNot:
		b, ok := v.(ir.IRBool)
		if !ok {
			return nil, ir.NewTypeMismatch("not requires a boolean operand, got %s", ir.Text(v))
		}
		return !b, nil
	case queryir.OpMinus:
		n, ok := v.(ir.IRNumber)
		if !ok {
			return nil, ir.NewTypeMismatch("negation requires a numeric operand, got %s", ir.Text(v))
		}
		return ir.NewIRNumber(n.Neg()), nil
	}

	return nil, ir.NewNotImplemented("unary operator %q", node.Op)
}

func evalCall(node queryir.Call, rec ir.IRObject) (ir.IRValue, error) {
	if node.Name != "contains" {
		return nil, ir.NewNotImplemented("function %q is not supported", node.Name)
	}
	if len(node.Args) != 2 {
		return nil, ir.NewNotImplemented("contains takes 2 arguments, got %d", len(node.Args))
	}

	haystack, err := Evaluate(node.Args[0], rec)
	if err != nil {
		return nil, err
	}
	needle, err := Evaluate(node.Args[1], rec)
	if err != nil {
		return nil, err
	}

	h, hok := haystack.(ir.IRString)
	n, nok := needle.(ir.IRString)
	if !hok || !nok {
		return nil, ir.NewTypeMismatch("contains requires string arguments, got %s and %s",
			ir.Text(haystack), ir.Text(needle))
	}
	return ir.IRBool(strings.Contains(string(h), string(n))), nil
}
