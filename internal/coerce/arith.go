package coerce

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/recordgraph/internal/ir"
)

var two = decimal.NewFromInt(2)

// Scale returns the number of digits after the decimal point, never negative.
func Scale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// Divide returns a/b rounded half-to-even at the divisor's scale.
// Division by zero is an INVALID_ARGUMENT error.
func Divide(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Decimal{}, ir.NewInvalidArgument("division by zero")
	}

	scale := Scale(b)
	q, r := a.QuoRem(b, scale)
	if r.IsZero() {
		return q, nil
	}

	// One unit in the last place of q, expressed in the divisor's terms.
	unit := b.Abs().Shift(-scale)
	switch r.Abs().Mul(two).Cmp(unit) {
	case -1:
		return q, nil
	case 0:
		if q.Shift(scale).Mod(two).IsZero() {
			return q, nil
		}
	}

	step := decimal.New(1, -scale)
	if a.Sign()*b.Sign() < 0 {
		return q.Sub(step), nil
	}
	return q.Add(step), nil
}

// Modulo truncates both operands to integers and returns the truncated
// remainder, which takes the sign of the dividend.
func Modulo(a, b decimal.Decimal) (decimal.Decimal, error) {
	ai, bi := a.IntPart(), b.IntPart()
	if bi == 0 {
		return decimal.Decimal{}, ir.NewInvalidArgument("modulo by zero")
	}
	return decimal.NewFromInt(ai % bi), nil
}
