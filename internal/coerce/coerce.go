// Package coerce projects pairs of record values onto canonical string,
// number, boolean and date forms so operators can decide which of their
// operand families apply.
//
// There is no string to number and no string to date coercion. The only
// cross-kind projection is onto boolean: numbers (nonzero is true) and the
// strings "true"/"false" after trimming and lower-casing.
package coerce

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/recordgraph/internal/ir"
)

// Projection holds the canonical forms one operand supports. A Has* flag is
// false when the operand has no projection of that kind.
type Projection struct {
	Value ir.IRValue

	Str    string
	HasStr bool

	Num    decimal.Decimal
	HasNum bool

	Bool    bool
	HasBool bool

	Date    time.Time
	HasDate bool
}

// IsNull reports whether the projected value is absent.
func (p Projection) IsNull() bool {
	return ir.IsNull(p.Value)
}

// Project computes every projection of v.
func Project(v ir.IRValue) Projection {
	if ir.IsNull(v) {
		return Projection{Value: ir.IRNull{}}
	}

	p := Projection{Value: v, Str: ir.Text(v), HasStr: true}

	switch val := v.(type) {
	case ir.IRNumber:
		p.Num, p.HasNum = val.Decimal, true
		p.Bool, p.HasBool = !val.IsZero(), true
	case ir.IRBool:
		p.Bool, p.HasBool = bool(val), true
	case ir.IRString:
		switch strings.ToLower(strings.TrimSpace(string(val))) {
		case "true":
			p.Bool, p.HasBool = true, true
		case "false":
			p.Bool, p.HasBool = false, true
		}
	case ir.IRDate:
		p.Date, p.HasDate = val.Time, true
	}

	return p
}

// Pair is the result of coercing two operands together.
type Pair struct {
	Left  Projection
	Right Projection
}

// Coerce projects both operands.
func Coerce(left, right ir.IRValue) Pair {
	return Pair{Left: Project(left), Right: Project(right)}
}

// BothNumeric reports whether both operands are numbers.
func (p Pair) BothNumeric() bool { return p.Left.HasNum && p.Right.HasNum }

// BothBoolean reports whether both operands project onto boolean.
func (p Pair) BothBoolean() bool { return p.Left.HasBool && p.Right.HasBool }

// BothDate reports whether both operands are dates.
func (p Pair) BothDate() bool { return p.Left.HasDate && p.Right.HasDate }

// BothString reports whether both operands are non-null.
func (p Pair) BothString() bool { return p.Left.HasStr && p.Right.HasStr }

// Compare orders two values. Null equals null and sorts before everything
// else; otherwise the first of numeric, boolean, date that both operands
// support decides, with the string projections as the fallback.
// The result is -1, 0 or 1.
func Compare(left, right ir.IRValue) int {
	return Coerce(left, right).Compare()
}

// Compare orders the pair. See the package-level Compare.
func (p Pair) Compare() int {
	switch ln, rn := p.Left.IsNull(), p.Right.IsNull(); {
	case ln && rn:
		return 0
	case ln:
		return -1
	case rn:
		return 1
	}

	switch {
	case p.BothNumeric():
		return p.Left.Num.Cmp(p.Right.Num)
	case p.BothBoolean():
		return compareBool(p.Left.Bool, p.Right.Bool)
	case p.BothDate():
		return p.Left.Date.Compare(p.Right.Date)
	default:
		return strings.Compare(p.Left.Str, p.Right.Str)
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
