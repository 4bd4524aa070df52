package recalc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/distribution"
	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/simerr"
	"github.com/example/refsim/internal/stream"
	"github.com/example/refsim/internal/units"
)

// SalesRecalc runs the inner loop: given the current recharge demand, new
// equipment growth, and recycling supply, it computes the virgin material
// required and distributes it across the enabled domestic/import
// substreams. It is invoked whenever a mutation may change the required
// virgin material.
type SalesRecalc struct{}

func (SalesRecalc) Execute(ctx context.Context, target Target, kit Kit) error {
	key := target.Key
	store := kit.Store

	params, err := store.Params(key)
	if err != nil {
		return err
	}
	cum, err := store.Cumulative(key)
	if err != nil {
		return err
	}

	if target.UnitBased {
		if c, ok := params.InitialCharge[stream.SubDomestic]; !ok || c.Value.IsZero() {
			if c, ok := params.InitialCharge[stream.SubImport]; !ok || c.Value.IsZero() {
				return &simerr.ConfigError{Application: key.Application, Substance: key.Substance, Reason: "unit-based sales set requires a non-zero initial charge"}
			}
		}
	}

	priorEquip, err := store.Get(key, stream.PriorEquipment)
	if err != nil {
		return err
	}
	cum.CaptureRechargeBase(priorEquip.Value)

	baseCtx, err := store.ContextFor(key)
	if err != nil {
		return err
	}
	conv := units.NewConverter(baseCtx)

	effectiveCtx, err := baseCtx.Context()
	if err != nil {
		return err
	}
	charge := effectiveCtx.AmortizedUnitVolume

	rechargeBase := cum.RechargeBasePopulation
	rechargePopUnits, err := convertWithPopulationOverride(conv, params.RechargePopulation, "unit", rechargeBase)
	if err != nil {
		return err
	}
	rechargeVolumeKg := rechargePopUnits.Mul(params.RechargeIntensity.Value)

	retired, err := store.Get(key, stream.Retired)
	if err != nil {
		return err
	}
	eolAvailableKg := retired.Value.Mul(charge)
	eolRecycledKg := eolAvailableKg.Mul(recoveryRate(params, stream.StageEol)).Mul(yieldRate(params, stream.StageEol))

	rechargeRecycledKg := rechargeVolumeKg.Mul(recoveryRate(params, stream.StageRecharge)).Mul(yieldRate(params, stream.StageRecharge))

	populationChange := effectiveCtx.PopulationChange
	if populationChange.Sign() < 0 {
		populationChange = decimal.Zero
	}
	newEquipmentKg := populationChange.Mul(charge)

	implicitRecharge, err := store.Get(key, stream.ImplicitRecharge)
	if err != nil {
		return err
	}

	totalDemand := rechargeVolumeKg.Add(newEquipmentKg).Sub(implicitRecharge.Value)

	indEol := params.EffectiveInductionRate(stream.StageEol, target.UnitBased)
	indRecharge := params.EffectiveInductionRate(stream.StageRecharge, target.UnitBased)

	var virgin decimal.Decimal
	if target.UnitBased {
		virgin = totalDemand.Add(eolRecycledKg.Mul(indEol)).Add(rechargeRecycledKg.Mul(indRecharge))
	} else {
		virgin = totalDemand.Sub(eolRecycledKg.Add(rechargeRecycledKg)).
			Add(eolRecycledKg.Mul(indEol)).Add(rechargeRecycledKg.Mul(indRecharge))
		if virgin.Sign() < 0 {
			kit.logger().Warn("sales recalc: negative virgin material clamped to zero", "application", key.Application, "substance", key.Substance)
			virgin = decimal.Zero
		}
	}

	shares := distribution.Distribute(kit.distributionSource(key))
	domesticKg := shares.Domestic.Mul(virgin)
	importKg := shares.Import.Mul(virgin)

	// recycleEol/recycleRecharge are written with the exact stage volumes
	// computed above, not through WriteRecycle's proportional split: that
	// helper exists for a caller that only knows an aggregate recycle
	// total, which sales recalc never does.
	if err := store.Set(key, stream.RecycleEol, quantity.New(eolRecycledKg, "kg")); err != nil {
		return err
	}
	if err := store.Set(key, stream.RecycleRecharge, quantity.New(rechargeRecycledKg, "kg")); err != nil {
		return err
	}
	if err := writeUnitPreserving(store, key, stream.SubDomestic, domesticKg, params, target.UnitBased); err != nil {
		return err
	}
	if err := writeUnitPreserving(store, key, stream.SubImport, importKg, params, target.UnitBased); err != nil {
		return err
	}
	return nil
}

// writeUnitPreserving commits volumeKg to sub. When the triggering command
// was unit-based and sub carries its own non-zero initial charge, it
// converts back to units before writing, preserving the unit intent the
// original unit-based set established; a substream with no configured
// charge (the untouched side of a single-sided unit-based set) always
// commits in kg.
func writeUnitPreserving(store *stream.Store, key stream.UseKey, sub stream.Substream, volumeKg decimal.Decimal, params *stream.Parameters, unitBased bool) error {
	if unitBased {
		if charge, ok := params.InitialCharge[sub]; ok && !charge.Value.IsZero() {
			unitCount := volumeKg.DivRound(charge.Value, quantity.DivisionPrecision)
			return store.WriteSubstream(key, sub, quantity.New(unitCount, "unit"), stream.WriteOptions{UnitBased: true})
		}
	}
	return store.WriteSubstream(key, sub, quantity.New(volumeKg, "kg"), stream.WriteOptions{})
}

// convertWithPopulationOverride converts a percentage quantity to the
// target units using a population override of basePopulation, rather than
// the use-key's current live population (the recharge base may differ from
// current equipment once retirements have run this step).
func convertWithPopulationOverride(conv *units.Converter, pct quantity.Quantity, targetUnits string, basePopulation decimal.Decimal) (decimal.Decimal, error) {
	var result quantity.Quantity
	err := conv.WithOverride(units.Override{Population: &basePopulation}, func() error {
		converted, convErr := conv.Convert(pct, targetUnits)
		if convErr != nil {
			return convErr
		}
		result = converted
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return result.Value, nil
}

func recoveryRate(p *stream.Parameters, stage stream.Stage) decimal.Decimal {
	r, ok := p.RecoveryRate[stage]
	if !ok {
		return decimal.Zero
	}
	return r.Value.Div(decimal.NewFromInt(100))
}

func yieldRate(p *stream.Parameters, stage stream.Stage) decimal.Decimal {
	r, ok := p.YieldRate[stage]
	if !ok {
		return decimal.Zero
	}
	return r.Value.Div(decimal.NewFromInt(100))
}
