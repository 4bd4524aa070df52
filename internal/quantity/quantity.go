// Package quantity provides a fixed-precision decimal value carrying a unit
// label, the building block every stream and parameter value in the
// simulation engine flows through.
//
// Arithmetic never round-trips through float64: values are parsed and kept
// as github.com/shopspring/decimal.Decimal, which stores its coefficient as
// an arbitrary-precision big.Int, so precision is bounded only by the
// explicit rounding points this package introduces (DivisionPrecision).
package quantity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of decimal places kept after a division,
// giving at least 34 significant digits of working precision.
const DivisionPrecision = 34

func init() {
	decimal.DivisionPrecision = DivisionPrecision
}

// ErrFractionalExponent is returned by Pow when the exponent is not an
// integer. The reference implementation's behavior for fractional exponents
// is undefined; this engine rejects them outright rather than guess.
var ErrFractionalExponent = errors.New("quantity: fractional exponents are unsupported")

// Quantity is an arbitrary-precision decimal value paired with a unit
// label. Original, when non-empty, is the literal string the value was
// parsed from (e.g. "100 mt"), preserved so the engine can echo back the
// original text when nothing has changed the value.
type Quantity struct {
	Value    decimal.Decimal
	Units    string
	Original string
}

// New constructs a Quantity with no original-string annotation.
func New(value decimal.Decimal, units string) Quantity {
	return Quantity{Value: value, Units: units}
}

// NewInt is a convenience constructor for integer-valued quantities.
func NewInt(value int64, units string) Quantity {
	return Quantity{Value: decimal.NewFromInt(value), Units: units}
}

// Parse builds a Quantity from a decimal literal string, preserving the
// literal as Original for idempotent echo.
func Parse(literal string, units string) (Quantity, error) {
	v, err := decimal.NewFromString(literal)
	if err != nil {
		return Quantity{}, fmt.Errorf("quantity: parse %q: %w", literal, err)
	}
	return Quantity{Value: v, Units: units, Original: literal}, nil
}

// Zero returns a zero-valued Quantity in the given units.
func Zero(units string) Quantity {
	return Quantity{Value: decimal.Zero, Units: units}
}

// WithValue returns a copy of q with Value replaced and Original cleared,
// since the quantity no longer reflects its original literal.
func (q Quantity) WithValue(v decimal.Decimal) Quantity {
	return Quantity{Value: v, Units: q.Units}
}

// IsZero reports whether the value is exactly zero.
func (q Quantity) IsZero() bool {
	return q.Value.IsZero()
}

// Sign returns -1, 0, or 1 per decimal.Decimal.Sign.
func (q Quantity) Sign() int {
	return q.Value.Sign()
}

// SameUnits reports whether two quantities carry the same unit label.
func (q Quantity) SameUnits(o Quantity) bool {
	return q.Units == o.Units
}

// ErrUnitMismatch is returned by same-unit arithmetic (Add, Sub, Cmp) when
// the operands' unit labels differ. Callers that need cross-unit arithmetic
// must convert through the units package first.
var ErrUnitMismatch = errors.New("quantity: unit mismatch")

// Add returns q+o. Both operands must share units.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	if !q.SameUnits(o) {
		return Quantity{}, fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, q.Units, o.Units)
	}
	return q.WithValue(q.Value.Add(o.Value)), nil
}

// Sub returns q-o. Both operands must share units.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if !q.SameUnits(o) {
		return Quantity{}, fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, q.Units, o.Units)
	}
	return q.WithValue(q.Value.Sub(o.Value)), nil
}

// MulScalar multiplies the value by a unitless decimal factor, keeping units.
func (q Quantity) MulScalar(factor decimal.Decimal) Quantity {
	return q.WithValue(q.Value.Mul(factor))
}

// DivScalar divides the value by a unitless decimal divisor, keeping units.
func (q Quantity) DivScalar(divisor decimal.Decimal) Quantity {
	return q.WithValue(q.Value.DivRound(divisor, DivisionPrecision))
}

// Neg returns -q.
func (q Quantity) Neg() Quantity {
	return q.WithValue(q.Value.Neg())
}

// Cmp compares q and o, which must share units.
func (q Quantity) Cmp(o Quantity) (int, error) {
	if !q.SameUnits(o) {
		return 0, fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, q.Units, o.Units)
	}
	return q.Value.Cmp(o.Value), nil
}

// ClampNonNegative returns q with a zero floor, and reports whether
// clamping changed the value. The stream store applies it to every
// equipment write, since a population cannot go negative.
func (q Quantity) ClampNonNegative() (Quantity, bool) {
	if q.Value.Sign() < 0 {
		return q.WithValue(decimal.Zero), true
	}
	return q, false
}

// Pow raises q's value to an integer power. Fractional exponents are
// rejected; see ErrFractionalExponent.
func (q Quantity) Pow(exp decimal.Decimal) (Quantity, error) {
	if !exp.Equal(exp.Truncate(0)) {
		return Quantity{}, ErrFractionalExponent
	}
	return q.WithValue(q.Value.Pow(exp)), nil
}

// String renders the original literal when present, else a plain
// "value units" form.
func (q Quantity) String() string {
	if q.Original != "" {
		return q.Original
	}
	return fmt.Sprintf("%s %s", q.Value.String(), q.Units)
}
