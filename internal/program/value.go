package program

import "github.com/shopspring/decimal"

// ValueKind names one of the value expression's variants.
type ValueKind string

const (
	// ValueLiteral is a fixed decimal in an explicit unit.
	ValueLiteral ValueKind = "literal"
	// ValueVariable references a name bound by a `define` command or a
	// program-level variable.
	ValueVariable ValueKind = "variable"
	// ValueSampleNormal draws once per evaluation from a normal
	// distribution.
	ValueSampleNormal ValueKind = "sample_normal"
	// ValueSampleUniform draws once per evaluation from a uniform
	// distribution.
	ValueSampleUniform ValueKind = "sample_uniform"
)

// Value is a command's value expression: a literal, a variable reference,
// or a Monte Carlo sampling node. Sampling nodes draw once per evaluation,
// not once per program parse, so the same Command produces different
// values across trials.
type Value struct {
	Kind ValueKind `json:"kind"`

	// Literal holds ValueLiteral's fixed value and unit.
	Literal decimal.Decimal `json:"literal,omitempty"`
	Units   string          `json:"units,omitempty"`

	// Variable holds ValueVariable's referenced name.
	Variable string `json:"variable,omitempty"`

	// Mean/StdDev parameterize ValueSampleNormal.
	Mean   decimal.Decimal `json:"mean,omitempty"`
	StdDev decimal.Decimal `json:"stdDev,omitempty"`

	// Low/High parameterize ValueSampleUniform.
	Low  decimal.Decimal `json:"low,omitempty"`
	High decimal.Decimal `json:"high,omitempty"`
}

// Literal constructs a fixed-value expression.
func Literal(v decimal.Decimal, units string) Value {
	return Value{Kind: ValueLiteral, Literal: v, Units: units}
}

// VariableRef constructs a variable-reference expression.
func VariableRef(name string) Value {
	return Value{Kind: ValueVariable, Variable: name}
}

// SampleNormal constructs a normal-distribution sampling expression.
func SampleNormal(mean, stdDev decimal.Decimal, units string) Value {
	return Value{Kind: ValueSampleNormal, Mean: mean, StdDev: stdDev, Units: units}
}

// SampleUniform constructs a uniform-distribution sampling expression.
func SampleUniform(low, high decimal.Decimal, units string) Value {
	return Value{Kind: ValueSampleUniform, Low: low, High: high, Units: units}
}

// IsZero reports whether v is the zero Value (no expression set).
func (v Value) IsZero() bool {
	return v.Kind == ""
}
