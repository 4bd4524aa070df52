package units

import "github.com/shopspring/decimal"

// IntensityDenominator identifies which denominator an energy-intensity
// value is expressed against: kg of substance, or units of equipment.
type IntensityDenominator string

const (
	PerKg   IntensityDenominator = "kg"
	PerUnit IntensityDenominator = "unit"
)

// Context bundles every channel the conversion table can draw on.
// Zero-value fields are legal; a conversion that needs a missing channel
// fails with UnitError{ContextMissing: true}.
type Context struct {
	// Population is the current equipment population (units).
	Population decimal.Decimal
	// PopulationChange is new-minus-prior population (units), used by
	// conversions referencing deployment deltas.
	PopulationChange decimal.Decimal
	// Volume is the current total substance volume (kg).
	Volume decimal.Decimal
	// GhgConsumption is the current total GHG consumption (tCO2e).
	GhgConsumption decimal.Decimal
	// EnergyConsumption is the current total energy consumption (kwh).
	EnergyConsumption decimal.Decimal
	// SubstanceConsumption is the GHG intensity, tCO2e per kg.
	SubstanceConsumption decimal.Decimal
	// EnergyIntensity is kwh per EnergyIntensityDenominator.
	EnergyIntensity decimal.Decimal
	// EnergyIntensityDenominator says whether EnergyIntensity is per-kg or
	// per-unit. Defaults to PerKg when unset.
	EnergyIntensityDenominator IntensityDenominator
	// AmortizedUnitVolume is kg per unit (the initial charge), used for the
	// kg<->unit bridge.
	AmortizedUnitVolume decimal.Decimal
	// YearsElapsed is the number of years a "/year" rate spans. Always 1
	// within a single simulation step.
	YearsElapsed decimal.Decimal

	// set tracks which fields were explicitly populated, so zero-value
	// decimals (a legitimate "the value is zero" reading) aren't confused
	// with "this channel has no data".
	set map[string]bool
}

// Mark marks the named channel as populated, for use by ContextProvider
// implementations building a Context by hand. Valid names mirror the
// Context field names.
func (c *Context) Mark(fields ...string) {
	if c.set == nil {
		c.set = make(map[string]bool, len(fields))
	}
	for _, f := range fields {
		c.set[f] = true
	}
}

// Has reports whether the named channel was marked populated.
func (c Context) Has(field string) bool {
	return c.set != nil && c.set[field]
}

// ContextProvider supplies the context a conversion needs. Implementations
// typically read current-year stream totals; a "prior" provider reads the
// previous year's snapshot for "get X as Y during prior year" semantics.
type ContextProvider interface {
	Context() (Context, error)
}

// ContextFunc adapts a plain function to ContextProvider.
type ContextFunc func() (Context, error)

// Context implements ContextProvider.
func (f ContextFunc) Context() (Context, error) { return f() }

// Override holds pointers to the subset of Context fields a scoped frame
// wants to replace. Nil fields fall through to the frame below.
type Override struct {
	Population                 *decimal.Decimal
	PopulationChange            *decimal.Decimal
	Volume                      *decimal.Decimal
	GhgConsumption              *decimal.Decimal
	EnergyConsumption           *decimal.Decimal
	SubstanceConsumption        *decimal.Decimal
	EnergyIntensity             *decimal.Decimal
	EnergyIntensityDenominator  *IntensityDenominator
	AmortizedUnitVolume         *decimal.Decimal
	YearsElapsed                *decimal.Decimal
}

func applyOverride(base Context, o Override) Context {
	if o.Population != nil {
		base.Population = *o.Population
		base.Mark("Population")
	}
	if o.PopulationChange != nil {
		base.PopulationChange = *o.PopulationChange
		base.Mark("PopulationChange")
	}
	if o.Volume != nil {
		base.Volume = *o.Volume
		base.Mark("Volume")
	}
	if o.GhgConsumption != nil {
		base.GhgConsumption = *o.GhgConsumption
		base.Mark("GhgConsumption")
	}
	if o.EnergyConsumption != nil {
		base.EnergyConsumption = *o.EnergyConsumption
		base.Mark("EnergyConsumption")
	}
	if o.SubstanceConsumption != nil {
		base.SubstanceConsumption = *o.SubstanceConsumption
		base.Mark("SubstanceConsumption")
	}
	if o.EnergyIntensity != nil {
		base.EnergyIntensity = *o.EnergyIntensity
		base.Mark("EnergyIntensity")
	}
	if o.EnergyIntensityDenominator != nil {
		base.EnergyIntensityDenominator = *o.EnergyIntensityDenominator
	}
	if o.AmortizedUnitVolume != nil {
		base.AmortizedUnitVolume = *o.AmortizedUnitVolume
		base.Mark("AmortizedUnitVolume")
	}
	if o.YearsElapsed != nil {
		base.YearsElapsed = *o.YearsElapsed
		base.Mark("YearsElapsed")
	}
	return base
}
