// Package result defines the immutable per-(scenario, trial, year,
// application, substance) output row the scenario runner emits, and the
// derivation that builds one from a stream store's current state.
package result

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/stream"
)

// Record is one fully-derived output row. Every decimal field keeps the
// engine's working precision all the way to serialization; resultio
// formats them for CSV at the edge.
type Record struct {
	ID uuid.UUID

	Scenario    string
	Trial       int
	Year        int
	Application string
	Substance   string

	DomesticKg decimal.Decimal
	ImportKg   decimal.Decimal
	ExportKg   decimal.Decimal
	RecycleKg  decimal.Decimal

	DomesticConsumptionTCO2e decimal.Decimal
	ImportConsumptionTCO2e   decimal.Decimal
	ExportConsumptionTCO2e   decimal.Decimal
	RecycleConsumptionTCO2e  decimal.Decimal

	PopulationUnits    decimal.Decimal
	PopulationNewUnits decimal.Decimal

	RechargeEmissionsTCO2e      decimal.Decimal
	EolEmissionsTCO2e           decimal.Decimal
	InitialChargeEmissionsTCO2e decimal.Decimal
	EnergyConsumptionKwh        decimal.Decimal

	ImportInitialChargeValueKg          decimal.Decimal
	ImportInitialChargeConsumptionTCO2e decimal.Decimal
	ImportPopulationUnits               decimal.Decimal

	ExportInitialChargeValueKg          decimal.Decimal
	ExportInitialChargeConsumptionTCO2e decimal.Decimal

	BankKg       decimal.Decimal
	BankTCO2e    decimal.Decimal
	BankChangeKg decimal.Decimal
	BankChangeTCO2e decimal.Decimal
}

// Columns lists every column in emission order, the same order Build
// populates Record fields and resultio writes them.
var Columns = []string{
	"scenario", "trial", "year", "application", "substance",
	"domestic", "import", "export", "recycle",
	"domesticConsumption", "importConsumption", "exportConsumption", "recycleConsumption",
	"population", "populationNew",
	"rechargeEmissions", "eolEmissions", "initialChargeEmissions", "energyConsumption",
	"importInitialChargeValue", "importInitialChargeConsumption", "importPopulation",
	"exportInitialChargeValue", "exportInitialChargeConsumption",
	"bankKg", "bankTCO2e", "bankChangeKg", "bankChangeTCO2e",
}

// Build reads key's current stream state and derives a complete Record.
// Per-substream consumption and initial-charge figures are each stream's
// own volume times the use-key's ghg intensity - a direct reading of the
// same volume x intensity relationship ConsumptionRecalc applies to the
// net aggregate, not a proportional split of the aggregate itself, so the
// three figures plus recycleConsumption need not sum exactly to the
// aggregate consumption column recorded upstream.
func Build(store *stream.Store, scenarioName string, trial, year int, key stream.UseKey) (Record, error) {
	params, err := store.Params(key)
	if err != nil {
		return Record{}, err
	}
	ghg := params.GhgIntensity.Value

	domestic, err := store.Get(key, stream.Domestic)
	if err != nil {
		return Record{}, err
	}
	imported, err := store.Get(key, stream.Import)
	if err != nil {
		return Record{}, err
	}
	exported, err := store.Get(key, stream.Export)
	if err != nil {
		return Record{}, err
	}
	recycle, err := store.Recycle(key)
	if err != nil {
		return Record{}, err
	}
	equipment, err := store.Get(key, stream.Equipment)
	if err != nil {
		return Record{}, err
	}
	newEquipment, err := store.Get(key, stream.NewEquipment)
	if err != nil {
		return Record{}, err
	}
	rechargeEmissions, err := store.Get(key, stream.RechargeEmissions)
	if err != nil {
		return Record{}, err
	}
	eolEmissions, err := store.Get(key, stream.EolEmissions)
	if err != nil {
		return Record{}, err
	}
	energy, err := store.Get(key, stream.EnergyConsumption)
	if err != nil {
		return Record{}, err
	}
	bank, err := store.Bank(key)
	if err != nil {
		return Record{}, err
	}
	priorEquipment, err := store.Get(key, stream.PriorEquipment)
	if err != nil {
		return Record{}, err
	}
	charge, err := store.EffectiveInitialCharge(key)
	if err != nil {
		return Record{}, err
	}

	priorBankKg := priorEquipment.Value.Mul(charge.Value)
	bankChangeKg := bank.Value.Sub(priorBankKg)

	var importPopulationUnits decimal.Decimal
	if !charge.Value.IsZero() {
		importPopulationUnits = imported.Value.DivRound(charge.Value, 34)
	}

	return Record{
		ID:          uuid.New(),
		Scenario:    scenarioName,
		Trial:       trial,
		Year:        year,
		Application: key.Application,
		Substance:   key.Substance,

		DomesticKg: domestic.Value,
		ImportKg:   imported.Value,
		ExportKg:   exported.Value,
		RecycleKg:  recycle.Value,

		DomesticConsumptionTCO2e: domestic.Value.Mul(ghg),
		ImportConsumptionTCO2e:   imported.Value.Mul(ghg),
		ExportConsumptionTCO2e:   exported.Value.Mul(ghg),
		RecycleConsumptionTCO2e:  recycle.Value.Mul(ghg),

		PopulationUnits:    equipment.Value,
		PopulationNewUnits: newEquipment.Value,

		RechargeEmissionsTCO2e:      rechargeEmissions.Value,
		EolEmissionsTCO2e:           eolEmissions.Value,
		InitialChargeEmissionsTCO2e: newEquipment.Value.Mul(charge.Value).Mul(ghg),
		EnergyConsumptionKwh:        energy.Value,

		ImportInitialChargeValueKg:          imported.Value,
		ImportInitialChargeConsumptionTCO2e: imported.Value.Mul(ghg),
		ImportPopulationUnits:               importPopulationUnits,

		ExportInitialChargeValueKg:          exported.Value,
		ExportInitialChargeConsumptionTCO2e: exported.Value.Mul(ghg),

		BankKg:          bank.Value,
		BankTCO2e:       bank.Value.Mul(ghg),
		BankChangeKg:    bankChangeKg,
		BankChangeTCO2e: bankChangeKg.Mul(ghg),
	}, nil
}
