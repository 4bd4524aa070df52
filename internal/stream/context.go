package stream

import (
	"github.com/example/refsim/internal/units"
)

// ContextFor builds a live units.ContextProvider reading the current
// year's totals and parameterization for a use-key. It is the context a
// recalc strategy's units.Converter is seeded with before executing.
func (s *Store) ContextFor(key UseKey) (units.ContextProvider, error) {
	return s.contextProviderFor(key, false)
}

// PriorContextFor builds a units.ContextProvider reading the prior year's
// stream totals, for "get X as Y during prior year" conversions. Intensity
// and amortized-volume parameters are not year-indexed state, so they carry
// over from the current parameterization even in a prior-year read.
func (s *Store) PriorContextFor(key UseKey) (units.ContextProvider, error) {
	return s.contextProviderFor(key, true)
}

func (s *Store) contextProviderFor(key UseKey, prior bool) (units.ContextProvider, error) {
	s.mu.RLock()
	_, err := s.lookup(key, "context")
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return units.ContextFunc(func() (units.Context, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		st, err := s.lookup(key, "context")
		if err != nil {
			return units.Context{}, err
		}

		values := st.values
		if prior {
			values = st.priorYear
		}

		var ctx units.Context
		ctx.Population = valueOrZero(values, Equipment)
		ctx.PopulationChange = valueOrZero(values, Equipment).Sub(valueOrZero(values, PriorEquipment))
		ctx.Volume = valueOrZero(values, Domestic).Add(valueOrZero(values, Import)).Add(
			valueOrZero(values, RecycleRecharge)).Add(valueOrZero(values, RecycleEol))
		ctx.GhgConsumption = valueOrZero(values, Consumption)
		ctx.EnergyConsumption = valueOrZero(values, EnergyConsumption)
		ctx.SubstanceConsumption = st.params.GhgIntensity.Value
		ctx.EnergyIntensity = st.params.EnergyIntensity.Value
		if st.params.EnergyIntensityPerUnit {
			ctx.EnergyIntensityDenominator = units.PerUnit
		} else {
			ctx.EnergyIntensityDenominator = units.PerKg
		}
		ctx.AmortizedUnitVolume = s.effectiveInitialChargeLocked(st)
		ctx.YearsElapsed = oneYear

		ctx.Mark("Population", "PopulationChange", "Volume", "GhgConsumption", "EnergyConsumption",
			"SubstanceConsumption", "EnergyIntensity", "AmortizedUnitVolume", "YearsElapsed")
		return ctx, nil
	}), nil
}
