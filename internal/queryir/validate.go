package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/recordgraph/internal/ir"
)

// ValidationResult lists the constructs in a tree the evaluator cannot run.
type ValidationResult struct {
	// Evaluable is true when the tree contains only supported constructs.
	Evaluable bool

	// Problems describes each unsupported construct in tree order.
	Problems []string
}

// Err returns a NOT_IMPLEMENTED error naming the first problem, or nil.
func (r ValidationResult) Err() error {
	if r.Evaluable {
		return nil
	}
	return ir.NewNotImplemented("%s", r.Problems[0])
}

// Validate walks a filter tree and reports constructs the evaluator does not
// support, such as multi-segment members, functions other than contains/2,
// the has operator and type/lambda/alias/enum nodes. A nil tree is evaluable.
//
// Type errors are not detected here; they depend on record values.
//
// Validate is a pure function with no side effects.
func Validate(e Expr) ValidationResult {
	v := &validator{
		problems: []string{},
	}
	if e != nil {
		v.validateExpr(e)
	}

	return ValidationResult{
		Evaluable: len(v.problems) == 0,
		Problems:  v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateExpr(e Expr) {
	switch node := e.(type) {
	case nil:
		v.addProblem("missing operand")
	case Binary:
		if !node.Op.IsArithmetic() && !node.Op.IsComparison() && !node.Op.IsLogical() {
			v.addProblem("operator %q is not supported", node.Op)
		}
		v.validateExpr(node.Left)
		v.validateExpr(node.Right)
	case Unary:
		if node.Op != OpNot && node.Op != OpMinus {
			v.addProblem("unary operator %q is not supported", node.Op)
		}
		v.validateExpr(node.Operand)
	case Member:
		if len(node.Path) != 1 {
			v.addProblem("member path %q: only single-segment properties are supported", strings.Join(node.Path, "/"))
		}
	case Literal:
		// typed at construction
	case Call:
		if node.Name != "contains" {
			v.addProblem("function %q is not supported", node.Name)
		} else if len(node.Args) != 2 {
			v.addProblem("contains takes 2 arguments, got %d", len(node.Args))
		}
		for _, arg := range node.Args {
			v.validateExpr(arg)
		}
	case TypeLiteral:
		v.addProblem("type literal %q is not supported", node.Name)
	case LambdaRef:
		v.addProblem("lambda variable %q is not supported", node.Name)
	case Alias:
		v.addProblem("parameter alias %q is not supported", node.Name)
	case Enum:
		v.addProblem("enum literal %s'%s' is not supported", node.Type, node.Value)
	default:
		v.addProblem("unknown expression type: %T", e)
	}
}
