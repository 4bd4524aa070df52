// Package units implements a context-aware unit conversion table covering
// kg/mt/units/tCO2e/kgCO2e/kwh/%/year and their ratios, resolved through a
// pluggable, stackable context provider.
package units

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/simerr"
)

// UnitError is raised when a conversion is unsupported, either because no
// rule connects the two units or because the context channel the rule
// needs was never populated.
type UnitError struct {
	From, To      string
	ContextMissing string
}

func (e *UnitError) Error() string {
	if e.ContextMissing != "" {
		return fmt.Sprintf("units: cannot convert %q to %q: missing context %q", e.From, e.To, e.ContextMissing)
	}
	return fmt.Sprintf("units: cannot convert %q to %q: unsupported conversion", e.From, e.To)
}

// Kind implements simerr.Kinded.
func (e *UnitError) Kind() simerr.Kind { return simerr.KindUnit }

// ErrUnbalancedPop is an InternalError: Pop was called more times than Push.
var ErrUnbalancedPop = errors.New("units: unbalanced context frame pop")

// Converter resolves conversions for a single use-key against a base
// ContextProvider, with a stack of temporary overrides pushed by callers
// that need to compute under a hypothetical context (e.g. the displacement
// target's own population while a cap command is mid-flight).
type Converter struct {
	base   ContextProvider
	frames []Override
}

// NewConverter builds a Converter reading from base when no frame overrides
// are active.
func NewConverter(base ContextProvider) *Converter {
	return &Converter{base: base}
}

// Push adds an override frame on top of the stack. Every Push must be
// balanced by a Pop; prefer WithOverride, which guarantees this.
func (c *Converter) Push(o Override) {
	c.frames = append(c.frames, o)
}

// Pop removes the most recently pushed frame. Popping an empty stack is an
// internal invariant violation.
func (c *Converter) Pop() error {
	if len(c.frames) == 0 {
		return ErrUnbalancedPop
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

// WithOverride pushes o, runs fn, and pops unconditionally, so frames stay
// balanced even if fn returns an error or panics.
func (c *Converter) WithOverride(o Override, fn func() error) error {
	c.Push(o)
	defer c.Pop() //nolint:errcheck // balanced by construction: Push always precedes this Pop
	return fn()
}

func (c *Converter) effectiveContext() (Context, error) {
	ctx, err := c.base.Context()
	if err != nil {
		return Context{}, err
	}
	for _, f := range c.frames {
		ctx = applyOverride(ctx, f)
	}
	if ctx.YearsElapsed.IsZero() && !ctx.Has("YearsElapsed") {
		ctx.YearsElapsed = decimal.NewFromInt(1)
	}
	return ctx, nil
}

// ratio splits a unit label like "kg / unit" into numerator and
// denominator ("" if the label carries no denominator).
func ratio(u string) (num, den string) {
	for i := 0; i+1 < len(u); i++ {
		if u[i] == '/' {
			return trimSpace(u[:i]), trimSpace(u[i+1:])
		}
	}
	return trimSpace(u), ""
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

func normalizeBase(u string) string {
	switch u {
	case "units":
		return "unit"
	case "yr":
		return "year"
	default:
		return u
	}
}

// Convert converts q to targetUnits using ctx, falling back to
// ratio-inversion rules when no direct table entry applies.
func (c *Converter) Convert(q quantity.Quantity, targetUnits string) (quantity.Quantity, error) {
	ctx, err := c.effectiveContext()
	if err != nil {
		return quantity.Quantity{}, err
	}
	return convert(q, targetUnits, ctx)
}

func convert(q quantity.Quantity, targetUnits string, ctx Context) (quantity.Quantity, error) {
	fromUnits := q.Units
	if fromUnits == targetUnits {
		return q, nil
	}

	fn, fd := ratio(fromUnits)
	tn, td := ratio(targetUnits)
	fn, tn = normalizeBase(fn), normalizeBase(tn)
	fd, td = normalizeBase(fd), normalizeBase(td)

	// Same ratio denominator on both sides (e.g. "kg / unit" -> "tCO2e /
	// unit"): convert the numerator alone and keep the denominator.
	if fd != "" && fd == td {
		mid, err := convertMid(q.Value, fn, tn, ctx)
		if err != nil {
			return quantity.Quantity{}, err
		}
		return quantity.New(mid, targetUnits), nil
	}

	switch {
	case fd == "" && td == "":
		mid, err := convertMid(q.Value, fn, tn, ctx)
		if err != nil {
			return quantity.Quantity{}, err
		}
		return quantity.New(mid, targetUnits), nil

	case fd == "year" && td == "":
		// X / year -> X: multiply by years_elapsed.
		if !ctx.Has("YearsElapsed") && ctx.YearsElapsed.IsZero() {
			return quantity.Quantity{}, &UnitError{From: fromUnits, To: targetUnits, ContextMissing: "years_elapsed"}
		}
		value := q.Value.Mul(ctx.YearsElapsed)
		mid, err := convertMid(value, fn, tn, ctx)
		if err != nil {
			return quantity.Quantity{}, err
		}
		return quantity.New(mid, targetUnits), nil

	case fd == "" && td == "year":
		// Ratio inversion: X -> X / year by dividing by years_elapsed.
		mid, err := convertMid(q.Value, fn, tn, ctx)
		if err != nil {
			return quantity.Quantity{}, err
		}
		if ctx.YearsElapsed.IsZero() {
			return quantity.Quantity{}, &UnitError{From: fromUnits, To: targetUnits, ContextMissing: "years_elapsed"}
		}
		return quantity.New(mid.DivRound(ctx.YearsElapsed, quantity.DivisionPrecision), targetUnits), nil

	case fd == "unit" && td == "":
		// X / unit -> X: multiply by population.
		if !ctx.Has("Population") {
			return quantity.Quantity{}, &UnitError{From: fromUnits, To: targetUnits, ContextMissing: "population"}
		}
		value := q.Value.Mul(ctx.Population)
		mid, err := convertMid(value, fn, tn, ctx)
		if err != nil {
			return quantity.Quantity{}, err
		}
		return quantity.New(mid, targetUnits), nil

	case fd == "" && td == "unit":
		// Ratio inversion: X -> X / unit by dividing by population.
		mid, err := convertMid(q.Value, fn, tn, ctx)
		if err != nil {
			return quantity.Quantity{}, err
		}
		if !ctx.Has("Population") || ctx.Population.IsZero() {
			return quantity.Quantity{}, &UnitError{From: fromUnits, To: targetUnits, ContextMissing: "population"}
		}
		return quantity.New(mid.DivRound(ctx.Population, quantity.DivisionPrecision), targetUnits), nil

	default:
		return quantity.Quantity{}, &UnitError{From: fromUnits, To: targetUnits}
	}
}

// convertMid converts a plain (denominator-less) value between the base
// units {kg, mt, unit, tCO2e, kgCO2e, kwh, %, year}.
func convertMid(value decimal.Decimal, from, to string, ctx Context) (decimal.Decimal, error) {
	// Absorb mt <-> kg and kgCO2e <-> tCO2e as trivial entry/exit scalings
	// so the context-dependent rules below only ever see {kg, unit,
	// tCO2e, kwh, %, year}.
	scaledValue := value
	canonicalFrom := from
	switch from {
	case "mt":
		scaledValue = scaledValue.Mul(decimal.NewFromInt(1000))
		canonicalFrom = "kg"
	case "kgCO2e":
		scaledValue = scaledValue.DivRound(decimal.NewFromInt(1000), quantity.DivisionPrecision)
		canonicalFrom = "tCO2e"
	}

	canonicalTo := to
	var outMul, outDiv decimal.Decimal
	switch to {
	case "mt":
		canonicalTo = "kg"
		outDiv = decimal.NewFromInt(1000)
	case "kgCO2e":
		canonicalTo = "tCO2e"
		outMul = decimal.NewFromInt(1000)
	}

	mid, err := convertCanonical(scaledValue, canonicalFrom, canonicalTo, ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !outDiv.IsZero() {
		mid = mid.DivRound(outDiv, quantity.DivisionPrecision)
	}
	if !outMul.IsZero() {
		mid = mid.Mul(outMul)
	}
	return mid, nil
}

func convertCanonical(value decimal.Decimal, from, to string, ctx Context) (decimal.Decimal, error) {
	if from == to {
		return value, nil
	}

	missing := func(channel string) error {
		return &UnitError{From: from, To: to, ContextMissing: channel}
	}

	switch {
	case from == "kg" && to == "unit":
		if !ctx.Has("AmortizedUnitVolume") || ctx.AmortizedUnitVolume.IsZero() {
			return decimal.Decimal{}, missing("amortized_unit_volume")
		}
		return value.DivRound(ctx.AmortizedUnitVolume, quantity.DivisionPrecision), nil
	case from == "unit" && to == "kg":
		if !ctx.Has("AmortizedUnitVolume") {
			return decimal.Decimal{}, missing("amortized_unit_volume")
		}
		return value.Mul(ctx.AmortizedUnitVolume), nil

	case from == "kg" && to == "tCO2e":
		if !ctx.Has("SubstanceConsumption") {
			return decimal.Decimal{}, missing("substance_consumption")
		}
		return value.Mul(ctx.SubstanceConsumption), nil
	case from == "tCO2e" && to == "kg":
		if !ctx.Has("SubstanceConsumption") || ctx.SubstanceConsumption.IsZero() {
			return decimal.Decimal{}, missing("substance_consumption")
		}
		return value.DivRound(ctx.SubstanceConsumption, quantity.DivisionPrecision), nil

	case from == "kg" && to == "kwh":
		return energyFromKg(value, ctx, missing)
	case from == "kwh" && to == "kg":
		return kgFromEnergy(value, ctx, missing)

	case from == "unit" && to == "kwh":
		if ctx.EnergyIntensityDenominator == PerUnit && ctx.Has("EnergyIntensity") {
			return value.Mul(ctx.EnergyIntensity), nil
		}
		kg, err := convertCanonical(value, "unit", "kg", ctx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return energyFromKg(kg, ctx, missing)
	case from == "kwh" && to == "unit":
		if ctx.EnergyIntensityDenominator == PerUnit && ctx.Has("EnergyIntensity") && !ctx.EnergyIntensity.IsZero() {
			return value.DivRound(ctx.EnergyIntensity, quantity.DivisionPrecision), nil
		}
		kg, err := kgFromEnergy(value, ctx, missing)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return convertCanonical(kg, "kg", "unit", ctx)

	case from == "unit" && to == "tCO2e":
		kg, err := convertCanonical(value, "unit", "kg", ctx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return convertCanonical(kg, "kg", "tCO2e", ctx)
	case from == "tCO2e" && to == "unit":
		kg, err := convertCanonical(value, "tCO2e", "kg", ctx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return convertCanonical(kg, "kg", "unit", ctx)

	case from == "%" && to == "unit":
		if !ctx.Has("Population") {
			return decimal.Decimal{}, missing("population")
		}
		return value.DivRound(decimal.NewFromInt(100), quantity.DivisionPrecision).Mul(ctx.Population), nil
	case from == "unit" && to == "%":
		if !ctx.Has("Population") || ctx.Population.IsZero() {
			return decimal.Decimal{}, missing("population")
		}
		return value.DivRound(ctx.Population, quantity.DivisionPrecision).Mul(decimal.NewFromInt(100)), nil

	case from == "%" && to == "kg":
		if !ctx.Has("Volume") {
			return decimal.Decimal{}, missing("volume")
		}
		return value.DivRound(decimal.NewFromInt(100), quantity.DivisionPrecision).Mul(ctx.Volume), nil
	case from == "kg" && to == "%":
		if !ctx.Has("Volume") || ctx.Volume.IsZero() {
			return decimal.Decimal{}, missing("volume")
		}
		return value.DivRound(ctx.Volume, quantity.DivisionPrecision).Mul(decimal.NewFromInt(100)), nil

	case from == "%" && to == "tCO2e":
		if !ctx.Has("GhgConsumption") {
			return decimal.Decimal{}, missing("ghg_consumption")
		}
		return value.DivRound(decimal.NewFromInt(100), quantity.DivisionPrecision).Mul(ctx.GhgConsumption), nil
	case from == "tCO2e" && to == "%":
		if !ctx.Has("GhgConsumption") || ctx.GhgConsumption.IsZero() {
			return decimal.Decimal{}, missing("ghg_consumption")
		}
		return value.DivRound(ctx.GhgConsumption, quantity.DivisionPrecision).Mul(decimal.NewFromInt(100)), nil

	case from == "%" && to == "kwh":
		if !ctx.Has("EnergyConsumption") {
			return decimal.Decimal{}, missing("energy_consumption")
		}
		return value.DivRound(decimal.NewFromInt(100), quantity.DivisionPrecision).Mul(ctx.EnergyConsumption), nil
	case from == "kwh" && to == "%":
		if !ctx.Has("EnergyConsumption") || ctx.EnergyConsumption.IsZero() {
			return decimal.Decimal{}, missing("energy_consumption")
		}
		return value.DivRound(ctx.EnergyConsumption, quantity.DivisionPrecision).Mul(decimal.NewFromInt(100)), nil

	default:
		return decimal.Decimal{}, &UnitError{From: from, To: to}
	}
}

func energyFromKg(value decimal.Decimal, ctx Context, missing func(string) error) (decimal.Decimal, error) {
	if ctx.EnergyIntensityDenominator == PerUnit {
		unitVal, err := convertCanonical(value, "kg", "unit", ctx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		if !ctx.Has("EnergyIntensity") {
			return decimal.Decimal{}, missing("energy_intensity")
		}
		return unitVal.Mul(ctx.EnergyIntensity), nil
	}
	if !ctx.Has("EnergyIntensity") {
		return decimal.Decimal{}, missing("energy_intensity")
	}
	return value.Mul(ctx.EnergyIntensity), nil
}

func kgFromEnergy(value decimal.Decimal, ctx Context, missing func(string) error) (decimal.Decimal, error) {
	if ctx.EnergyIntensityDenominator == PerUnit {
		if !ctx.Has("EnergyIntensity") || ctx.EnergyIntensity.IsZero() {
			return decimal.Decimal{}, missing("energy_intensity")
		}
		unitVal := value.DivRound(ctx.EnergyIntensity, quantity.DivisionPrecision)
		return convertCanonical(unitVal, "unit", "kg", ctx)
	}
	if !ctx.Has("EnergyIntensity") || ctx.EnergyIntensity.IsZero() {
		return decimal.Decimal{}, missing("energy_intensity")
	}
	return value.DivRound(ctx.EnergyIntensity, quantity.DivisionPrecision), nil
}
