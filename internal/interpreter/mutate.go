package interpreter

import (
	"context"
	"fmt"

	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/propagation"
	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/simerr"
	"github.com/example/refsim/internal/stream"
	"github.com/example/refsim/internal/units"
)

func (ip *Interpreter) execEnable(key stream.UseKey, cmd program.Command) error {
	sub, ok := toSubstream(cmd.Stream)
	if !ok {
		return &simerr.ConfigError{Application: key.Application, Substance: key.Substance, Reason: fmt.Sprintf("enable target %q is not a sales substream", cmd.Stream)}
	}
	ip.Store.Enable(key, sub)
	return nil
}

func (ip *Interpreter) execInitialCharge(key stream.UseKey, cmd program.Command, year int) error {
	sub, ok := toSubstream(cmd.Stream)
	if !ok {
		return &simerr.ConfigError{Application: key.Application, Substance: key.Substance, Reason: fmt.Sprintf("initial charge target %q is not a sales substream", cmd.Stream)}
	}
	val, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}
	conv, err := ip.converterFor(key)
	if err != nil {
		return err
	}
	converted, err := conv.Convert(val, "kg / unit")
	if err != nil {
		return err
	}
	params, err := ip.Store.Params(key)
	if err != nil {
		return err
	}
	params.InitialCharge[sub] = converted
	ip.Store.LastSpecified(key, stream.Name(sub), stream.SpecRecord{Value: converted.Value, Units: converted.Units, Year: year})
	return nil
}

// execSetChange handles both `set` and `change`: set assigns the evaluated
// value outright, change applies it as a delta against the stream's current
// value. Domestic/import/export route through WriteSubstream's enablement
// and initial-charge handling; every other stream writes directly.
func (ip *Interpreter) execSetChange(ctx context.Context, key stream.UseKey, cmd program.Command, year int, isDelta bool) error {
	val, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}
	conv, err := ip.converterFor(key)
	if err != nil {
		return err
	}

	if sub, ok := toSubstream(cmd.Stream); ok {
		if err := ip.applySubstreamWrite(key, sub, val, isDelta, conv); err != nil {
			return err
		}
		unitBased := isUnitUnits(val.Units)
		ip.Store.LastSpecified(key, stream.Name(sub), stream.SpecRecord{Value: val.Value, Units: val.Units, UnitBased: unitBased, Year: year})
		return ip.Coordinator.Propagate(ctx, propagation.MutationSubstreamWrite, recalcTarget(key, unitBased))
	}

	name := stream.Name(cmd.Stream)
	cur, err := ip.Store.Get(key, name)
	if err != nil {
		return err
	}

	var next quantity.Quantity
	if isDelta {
		next, err = applyDelta(cur, val, conv)
	} else {
		next, err = conv.Convert(val, cur.Units)
	}
	if err != nil {
		return err
	}
	if err := ip.Store.Set(key, name, next); err != nil {
		return err
	}
	ip.Store.LastSpecified(key, name, stream.SpecRecord{Value: next.Value, Units: next.Units, Year: year})

	switch name {
	case stream.Equipment:
		return ip.Coordinator.Propagate(ctx, propagation.MutationEquipmentWrite, recalcTarget(key, ip.unitBasedContext(key)))
	case stream.PriorEquipment:
		return ip.Coordinator.Propagate(ctx, propagation.MutationPriorEquipmentWrite, recalcTarget(key, ip.unitBasedContext(key)))
	default:
		return nil
	}
}

// applySubstreamWrite writes val to sub: a unit-based direct set routes
// through WriteSubstream's own charge lookup and ConfigError, so the zero-
// charge failure mode stays consistent with every other unit-based write;
// everything else converts through conv into kg first.
func (ip *Interpreter) applySubstreamWrite(key stream.UseKey, sub stream.Substream, val quantity.Quantity, isDelta bool, conv *units.Converter) error {
	name := stream.Name(sub)
	if isDelta {
		cur, err := ip.Store.Get(key, name)
		if err != nil {
			return err
		}
		next, err := applyDelta(cur, val, conv)
		if err != nil {
			return err
		}
		return ip.Store.WriteSubstream(key, sub, next, stream.WriteOptions{})
	}
	if isUnitUnits(val.Units) {
		if err := ip.Store.WriteSubstream(key, sub, val, stream.WriteOptions{UnitBased: true}); err != nil {
			return err
		}
		return ip.addImplicitRecharge(key, sub, conv)
	}
	converted, err := conv.Convert(val, "kg")
	if err != nil {
		return err
	}
	return ip.Store.WriteSubstream(key, sub, converted, stream.WriteOptions{})
}

// addImplicitRecharge folds the servicing demand the current recharge
// parameterization implies on top of a unit-based substream set: the set
// itself only writes units x initial_charge kg, so this adds the recharge
// volume that write would otherwise leave uncovered and records the
// addition in implicitRecharge, so the next sales recalc's own recharge
// computation subtracts it instead of demanding it twice.
func (ip *Interpreter) addImplicitRecharge(key stream.UseKey, sub stream.Substream, conv *units.Converter) error {
	params, err := ip.Store.Params(key)
	if err != nil {
		return err
	}
	priorEquip, err := ip.Store.Get(key, stream.PriorEquipment)
	if err != nil {
		return err
	}

	rechargePopUnits, err := convertWithPopulationOverride(conv, params.RechargePopulation, "unit", priorEquip.Value)
	if err != nil {
		return err
	}
	rechargeKg := rechargePopUnits.Mul(params.RechargeIntensity.Value)
	if rechargeKg.Sign() == 0 {
		return nil
	}

	name := stream.Name(sub)
	cur, err := ip.Store.Get(key, name)
	if err != nil {
		return err
	}
	if err := ip.Store.WriteSubstream(key, sub, quantity.New(cur.Value.Add(rechargeKg), "kg"), stream.WriteOptions{}); err != nil {
		return err
	}
	return ip.Store.AccumulateImplicitRecharge(key, quantity.New(rechargeKg, "kg"))
}

func (ip *Interpreter) execEquals(ctx context.Context, key stream.UseKey, cmd program.Command, year int) error {
	params, err := ip.Store.Params(key)
	if err != nil {
		return err
	}

	ghg, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}
	conv, err := ip.converterFor(key)
	if err != nil {
		return err
	}
	convertedGhg, err := conv.Convert(ghg, "tCO2e / kg")
	if err != nil {
		return err
	}
	params.GhgIntensity = convertedGhg
	ip.Store.LastSpecified(key, stream.Consumption, stream.SpecRecord{Value: convertedGhg.Value, Units: convertedGhg.Units, Year: year})

	if !cmd.SecondValue.IsZero() {
		energy, err := ip.evaluate(cmd.SecondValue)
		if err != nil {
			return err
		}
		params.EnergyIntensity = energy
		params.EnergyIntensityPerUnit = isPerUnitEnergy(energy.Units)
		ip.Store.LastSpecified(key, stream.EnergyConsumption, stream.SpecRecord{Value: energy.Value, Units: energy.Units, Year: year})
	}

	return ip.Coordinator.Propagate(ctx, propagation.MutationIntensityChange, recalcTarget(key, ip.unitBasedContext(key)))
}

func isPerUnitEnergy(u string) bool {
	for i := 0; i+4 <= len(u); i++ {
		if u[i:i+4] == "unit" {
			return true
		}
	}
	return false
}
