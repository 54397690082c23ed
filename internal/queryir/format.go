package queryir

import (
	"fmt"
	"strings"
)

// Format renders an expression back to filter text, fully parenthesised.
// It is used for logging and traces. For trees without lambdas,
// ParseFilter(Format(e)) rebuilds e.
func Format(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr) {
	switch node := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case Binary:
		b.WriteByte('(')
		writeExpr(b, node.Left)
		fmt.Fprintf(b, " %s ", node.Op)
		writeExpr(b, node.Right)
		b.WriteByte(')')
	case Unary:
		if node.Op == OpNot {
			b.WriteString("not ")
		} else {
			b.WriteByte('-')
		}
		writeExpr(b, node.Operand)
	case Member:
		b.WriteString(strings.Join(node.Path, "/"))
	case Literal:
		switch node.Kind {
		case KindString:
			b.WriteString("'" + strings.ReplaceAll(node.Text, "'", "''") + "'")
		default:
			b.WriteString(node.Text)
		}
	case Call:
		b.WriteString(node.Name)
		b.WriteByte('(')
		for i, arg := range node.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, arg)
		}
		b.WriteByte(')')
	case TypeLiteral:
		b.WriteString(node.Name)
	case LambdaRef:
		b.WriteString(node.Name)
	case Alias:
		b.WriteString("@" + node.Name)
	case Enum:
		fmt.Fprintf(b, "%s'%s'", node.Type, node.Value)
	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}
