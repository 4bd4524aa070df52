package recalc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/stream"
)

// PopulationRecalc derives newEquipment and retired from the current sales
// and recharge figures, then rolls them into equipment: equipment =
// priorEquipment + newEquipment - retired, clamped non-negative, with age
// updated as the population-weighted mean of (prior age + 1) and (new
// units at age 1).
type PopulationRecalc struct{}

func (PopulationRecalc) Execute(ctx context.Context, target Target, kit Kit) error {
	key := target.Key
	store := kit.Store

	cum, err := store.Cumulative(key)
	if err != nil {
		return err
	}

	sales, err := store.Sales(key)
	if err != nil {
		return err
	}
	recharge, err := store.Get(key, stream.RecycleRecharge)
	if err != nil {
		return err
	}
	induction, err := store.Induction(key)
	if err != nil {
		return err
	}

	virginPlusInduction := sales.Value.Add(induction.Value)
	netForGrowth := virginPlusInduction.Sub(recharge.Value)

	baseCtx, err := store.ContextFor(key)
	if err != nil {
		return err
	}
	effectiveCtx, err := baseCtx.Context()
	if err != nil {
		return err
	}
	charge := effectiveCtx.AmortizedUnitVolume
	var newEquipment decimal.Decimal
	if !charge.IsZero() {
		newEquipment = netForGrowth.DivRound(charge, quantity.DivisionPrecision)
	}
	if newEquipment.Sign() < 0 {
		newEquipment = decimal.Zero
	}

	priorEquip, err := store.Get(key, stream.PriorEquipment)
	if err != nil {
		return err
	}
	cum.CaptureRetirementBase(priorEquip.Value)

	// retired is whatever retire commands have accumulated into the
	// cumulative base this step (possibly zero); population recalc reads
	// it rather than deriving it, so repeated runs stay idempotent.
	retired := cum.AppliedRetirementAmount
	newEquipment = newEquipment.Add(cum.ReplacementUnits)

	equipment := priorEquip.Value.Add(newEquipment).Sub(retired)
	if equipment.Sign() < 0 {
		kit.logger().Warn("population recalc: negative equipment clamped to zero", "application", key.Application, "substance", key.Substance)
		equipment = decimal.Zero
	}

	priorAge, err := store.Get(key, stream.Age)
	if err != nil {
		return err
	}
	agedPopulation := priorEquip.Value.Sub(retired)
	if agedPopulation.Sign() < 0 {
		agedPopulation = decimal.Zero
	}
	weightedExisting := agedPopulation.Mul(priorAge.Value.Add(decimal.NewFromInt(1)))
	weightedNew := newEquipment.Mul(decimal.NewFromInt(1))
	var age decimal.Decimal
	totalWeight := agedPopulation.Add(newEquipment)
	if !totalWeight.IsZero() {
		age = weightedExisting.Add(weightedNew).DivRound(totalWeight, quantity.DivisionPrecision)
	}

	if err := store.Set(key, stream.NewEquipment, quantity.New(newEquipment, "unit")); err != nil {
		return err
	}
	if err := store.Set(key, stream.Retired, quantity.New(retired, "unit")); err != nil {
		return err
	}
	if err := store.Set(key, stream.Equipment, quantity.New(equipment, "unit")); err != nil {
		return err
	}
	return store.Set(key, stream.Age, quantity.New(age, "year"))
}
