package queryir

import (
	"strconv"
	"strings"

	"github.com/roach88/recordgraph/internal/ir"
)

// LiteralKind is the primitive kind a literal was declared with.
type LiteralKind string

const (
	KindString  LiteralKind = "string"
	KindNumber  LiteralKind = "number"
	KindBoolean LiteralKind = "boolean"
	KindDate    LiteralKind = "date"
	KindNull    LiteralKind = "null"
)

// Literal is a constant typed at construction. Build it with NewLiteral.
type Literal struct {
	Kind  LiteralKind
	Text  string
	Value ir.IRValue
}

func (Literal) exprNode() {}

// NewLiteral types literal text according to kind.
//
//   - string: surrounding single quotes are removed and '' becomes '; Text
//     holds the unquoted value
//   - number: must parse as an integer, otherwise NOT_IMPLEMENTED
//   - boolean: true or false
//   - date: YYYY-MM-DD
//   - null: text is ignored
func NewLiteral(kind LiteralKind, text string) (Literal, error) {
	lit := Literal{Kind: kind, Text: text}

	switch kind {
	case KindString:
		s := text
		if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
			s = s[1 : len(s)-1]
		}
		s = strings.ReplaceAll(s, "''", "'")
		lit.Text, lit.Value = s, ir.IRString(s)
	case KindNumber:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Literal{}, ir.NewNotImplemented("numeric literal %q is not an integer", text)
		}
		lit.Value = ir.NewIRInt(n)
	case KindBoolean:
		switch text {
		case "true":
			lit.Value = ir.IRBool(true)
		case "false":
			lit.Value = ir.IRBool(false)
		default:
			return Literal{}, ir.NewInvalidArgument("boolean literal %q", text)
		}
	case KindDate:
		d, err := ir.ParseIRDate(text)
		if err != nil || len(text) != len(ir.DateLayout) {
			return Literal{}, ir.NewInvalidArgument("date literal %q: expected %s", text, ir.DateLayout)
		}
		lit.Value = d
	case KindNull:
		lit.Value = ir.IRNull{}
	default:
		return Literal{}, ir.NewNotImplemented("literal kind %q", kind)
	}

	return lit, nil
}

// MustLiteral is like NewLiteral but panics on error.
// Use only in tests or with constant input.
func MustLiteral(kind LiteralKind, text string) Literal {
	lit, err := NewLiteral(kind, text)
	if err != nil {
		panic(err)
	}
	return lit
}

// Str, Int, Bool and Date build literals for tests and programmatic trees.
func Str(s string) Literal { return Literal{Kind: KindString, Text: s, Value: ir.IRString(s)} }

func Int(n int64) Literal {
	return Literal{Kind: KindNumber, Text: strconv.FormatInt(n, 10), Value: ir.NewIRInt(n)}
}

func Bool(b bool) Literal {
	return Literal{Kind: KindBoolean, Text: strconv.FormatBool(b), Value: ir.IRBool(b)}
}

func Date(s string) Literal { return MustLiteral(KindDate, s) }

func Null() Literal { return Literal{Kind: KindNull, Text: "null", Value: ir.IRNull{}} }
