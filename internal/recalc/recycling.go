package recalc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/stream"
)

// EolRecyclingRecalc refreshes the end-of-life recycling, induction, and
// emissions streams from the current retired population and initial
// charge, independent of whether a full sales recalculation runs this step.
type EolRecyclingRecalc struct{}

func (EolRecyclingRecalc) Execute(ctx context.Context, target Target, kit Kit) error {
	return recalcStage(target, kit, stream.StageEol)
}

// RechargeRecyclingRecalc refreshes the recharge-stage recycling,
// induction, and emissions streams from the current recharge demand.
type RechargeRecyclingRecalc struct{}

func (RechargeRecyclingRecalc) Execute(ctx context.Context, target Target, kit Kit) error {
	return recalcStage(target, kit, stream.StageRecharge)
}

func recalcStage(target Target, kit Kit, stage stream.Stage) error {
	key := target.Key
	store := kit.Store

	params, err := store.Params(key)
	if err != nil {
		return err
	}

	baseCtx, err := store.ContextFor(key)
	if err != nil {
		return err
	}
	effectiveCtx, err := baseCtx.Context()
	if err != nil {
		return err
	}
	charge := effectiveCtx.AmortizedUnitVolume

	var availableKg decimal.Decimal
	var recycleName, inductionName stream.Name
	switch stage {
	case stream.StageEol:
		retired, err := store.Get(key, stream.Retired)
		if err != nil {
			return err
		}
		availableKg = retired.Value.Mul(charge)
		recycleName, inductionName = stream.RecycleEol, stream.InductionEol
	case stream.StageRecharge:
		cum, err := store.Cumulative(key)
		if err != nil {
			return err
		}
		priorEquip, err := store.Get(key, stream.PriorEquipment)
		if err != nil {
			return err
		}
		cum.CaptureRechargeBase(priorEquip.Value)
		rechargePopPct := params.RechargePopulation.Value.DivRound(decimal.NewFromInt(100), quantity.DivisionPrecision)
		rechargePopUnits := cum.RechargeBasePopulation.Mul(rechargePopPct)
		availableKg = rechargePopUnits.Mul(params.RechargeIntensity.Value)
		recycleName, inductionName = stream.RecycleRecharge, stream.InductionRecharge
	}

	recycledKg := availableKg.Mul(recoveryRate(params, stage)).Mul(yieldRate(params, stage))
	inductionRate := params.EffectiveInductionRate(stage, target.UnitBased)
	inductionKg := recycledKg.Mul(inductionRate)

	if err := store.Set(key, recycleName, quantity.New(recycledKg, "kg")); err != nil {
		return err
	}
	if err := store.Set(key, inductionName, quantity.New(inductionKg, "kg")); err != nil {
		return err
	}

	// Material available this stage that recycling did not recover leaks to
	// atmosphere; that share of the stage's volume, at the use-key's ghg
	// intensity, is the stage's emissions figure.
	emittedKg := availableKg.Sub(recycledKg)
	if emittedKg.Sign() < 0 {
		emittedKg = decimal.Zero
	}
	emissionsTCO2e := emittedKg.Mul(params.GhgIntensity.Value)

	var emissionsName stream.Name
	switch stage {
	case stream.StageEol:
		emissionsName = stream.EolEmissions
	case stream.StageRecharge:
		emissionsName = stream.RechargeEmissions
	}
	return store.Set(key, emissionsName, quantity.New(emissionsTCO2e, "tCO2e"))
}
