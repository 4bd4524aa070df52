// Package stream owns per-(application,substance) stream values and
// parameterizations, enforcing enablement, NaN guards, prior-year
// snapshots, and the cumulative-base bookkeeping that keeps additive
// mid-step commands order-independent regardless of the order they were
// issued in.
package stream

import "github.com/shopspring/decimal"

// UseKey identifies a substance within an application - the key under which
// streams and parameterizations are stored.
type UseKey struct {
	Application string
	Substance   string
}

// Name identifies a stored stream. Derived quantities (sales, recycle,
// induction, bank) are computed on read and have no Name of their own.
type Name string

const (
	Domestic          Name = "domestic"
	Import            Name = "import"
	Export            Name = "export"
	RecycleRecharge   Name = "recycleRecharge"
	RecycleEol        Name = "recycleEol"
	InductionRecharge Name = "inductionRecharge"
	InductionEol      Name = "inductionEol"
	Consumption       Name = "consumption"
	Equipment         Name = "equipment"
	PriorEquipment    Name = "priorEquipment"
	NewEquipment      Name = "newEquipment"
	Retired           Name = "retired"
	PriorRetired      Name = "priorRetired"
	RechargeEmissions Name = "rechargeEmissions"
	EolEmissions      Name = "eolEmissions"
	ImplicitRecharge  Name = "implicitRecharge"
	Age               Name = "age"
	EnergyConsumption Name = "energyConsumption"
)

// CanonicalUnits maps every stored stream to its canonical unit. Writes are
// converted to this unit before storage, so every stream's stored value is
// always comparable without an ad hoc conversion at the read site.
var CanonicalUnits = map[Name]string{
	Domestic:          "kg",
	Import:             "kg",
	Export:             "kg",
	RecycleRecharge:    "kg",
	RecycleEol:         "kg",
	InductionRecharge:  "kg",
	InductionEol:       "kg",
	Consumption:        "tCO2e",
	Equipment:          "unit",
	PriorEquipment:     "unit",
	NewEquipment:       "unit",
	Retired:            "unit",
	PriorRetired:       "unit",
	RechargeEmissions:  "tCO2e",
	EolEmissions:       "tCO2e",
	ImplicitRecharge:   "kg",
	Age:                "year",
	EnergyConsumption:  "kwh",
}

// Stage identifies a recycling lifecycle stage.
type Stage string

const (
	StageEol      Stage = "eol"
	StageRecharge Stage = "recharge"
)

// Stages enumerates both recycling stages, in a stable order.
var Stages = []Stage{StageEol, StageRecharge}

// Substream identifies one of the three sales-family streams that carry
// enablement and initial-charge parameters.
type Substream string

const (
	SubDomestic Substream = Substream(Domestic)
	SubImport   Substream = Substream(Import)
	SubExport   Substream = Substream(Export)
)

// SalesSubstreams lists the substreams that participate in the sales
// identity (export is tracked but is not part of sales; see glossary).
var SalesSubstreams = []Substream{SubDomestic, SubImport}

// AllSubstreams lists every substream the distribution helper can allocate
// across.
var AllSubstreams = []Substream{SubDomestic, SubImport, SubExport}

// CarryOverMode is the cross-year "assume" policy for a stream.
type CarryOverMode string

const (
	CarryOverContinued     CarryOverMode = "continued"
	CarryOverNo            CarryOverMode = "no"
	CarryOverOnlyRecharge  CarryOverMode = "only_recharge"
)

// SpecRecord remembers the last explicit "set" for a stream, including
// whether it was specified by units (triggering implicit-recharge
// semantics on later recalculation).
type SpecRecord struct {
	Value     decimal.Decimal
	Units     string
	UnitBased bool
	Year      int
}
