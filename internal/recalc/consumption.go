package recalc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/stream"
)

// ConsumptionRecalc derives GHG and energy consumption from the current
// substream volumes: consumption = (domestic + import - export) ×
// ghg_intensity, reduced by the induction-modulated recycled GHG offset
// symmetric to the sales recalc; energyConsumption scales off either
// equipment or volume depending on the energy intensity's denominator.
type ConsumptionRecalc struct{}

func (ConsumptionRecalc) Execute(ctx context.Context, target Target, kit Kit) error {
	key := target.Key
	store := kit.Store

	params, err := store.Params(key)
	if err != nil {
		return err
	}

	domestic, err := store.Get(key, stream.Domestic)
	if err != nil {
		return err
	}
	imported, err := store.Get(key, stream.Import)
	if err != nil {
		return err
	}
	exported, err := store.Get(key, stream.Export)
	if err != nil {
		return err
	}
	recycleEol, err := store.Get(key, stream.RecycleEol)
	if err != nil {
		return err
	}
	recycleRecharge, err := store.Get(key, stream.RecycleRecharge)
	if err != nil {
		return err
	}

	net := domestic.Value.Add(imported.Value).Sub(exported.Value)
	grossConsumptionKg := net

	indEol := params.EffectiveInductionRate(stream.StageEol, target.UnitBased)
	indRecharge := params.EffectiveInductionRate(stream.StageRecharge, target.UnitBased)
	offsetKg := recycleEol.Value.Mul(decimal.NewFromInt(1).Sub(indEol)).
		Add(recycleRecharge.Value.Mul(decimal.NewFromInt(1).Sub(indRecharge)))

	netConsumptionKg := grossConsumptionKg.Sub(offsetKg)
	consumptionTco2e := netConsumptionKg.Mul(params.GhgIntensity.Value)

	baseCtx, err := store.ContextFor(key)
	if err != nil {
		return err
	}
	effectiveCtx, err := baseCtx.Context()
	if err != nil {
		return err
	}

	var energyKwh decimal.Decimal
	if params.EnergyIntensityPerUnit {
		energyKwh = effectiveCtx.Population.Mul(params.EnergyIntensity.Value)
	} else {
		energyKwh = effectiveCtx.Volume.Mul(params.EnergyIntensity.Value)
	}

	if err := store.Set(key, stream.Consumption, quantity.New(consumptionTco2e, "tCO2e")); err != nil {
		return err
	}
	return store.Set(key, stream.EnergyConsumption, quantity.New(energyKwh, "kwh"))
}
