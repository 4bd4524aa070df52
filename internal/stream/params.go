package stream

import (
	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/quantity"
)

// Parameters holds the one-per-use-key parameterization: GHG/energy
// intensities, initial charges per substream, recharge/retirement rates,
// and per-stage recovery/yield/induction rates.
type Parameters struct {
	GhgIntensity    quantity.Quantity // canonical "tCO2e / kg"
	EnergyIntensity quantity.Quantity // canonical "kwh / kg" or "kwh / unit"
	EnergyIntensityPerUnit bool

	InitialCharge map[Substream]quantity.Quantity // canonical "kg / unit"

	RechargePopulation quantity.Quantity // canonical "%"
	RechargeIntensity  quantity.Quantity // canonical "kg / unit"
	RetirementRate     quantity.Quantity // canonical "%"

	RecoveryRate map[Stage]quantity.Quantity // canonical "%"
	YieldRate    map[Stage]quantity.Quantity // canonical "%"

	InductionRate         map[Stage]quantity.Quantity // canonical "%"
	InductionRateExplicit map[Stage]bool

	// yieldCount tracks how many yield-rate commands have been applied this
	// step, for the equal-weighted running average.
	yieldCount map[Stage]int

	LastSpecified map[Name]*SpecRecord
	StreamEnabled map[Substream]bool

	CarryOver map[Name]CarryOverMode
}

func newParameters() Parameters {
	return Parameters{
		RechargePopulation:    quantity.Zero("%"),
		RechargeIntensity:     quantity.Zero("kg / unit"),
		RetirementRate:        quantity.Zero("%"),
		InitialCharge:         make(map[Substream]quantity.Quantity),
		RecoveryRate:          make(map[Stage]quantity.Quantity),
		YieldRate:             make(map[Stage]quantity.Quantity),
		InductionRate:         make(map[Stage]quantity.Quantity),
		InductionRateExplicit: make(map[Stage]bool),
		yieldCount:            make(map[Stage]int),
		LastSpecified:         make(map[Name]*SpecRecord),
		StreamEnabled:         make(map[Substream]bool),
		CarryOver:             make(map[Name]CarryOverMode),
	}
}

// defaultInductionRate returns the stage default: 0 for a unit-based
// command (induction defaults off, since virgin material already accounts
// for the full unit-intent demand), 1 otherwise (mass-based commands
// induct all recycled material by default).
func defaultInductionRate(unitBased bool) decimal.Decimal {
	if unitBased {
		return decimal.Zero
	}
	return decimal.NewFromInt(1)
}

// EffectiveInductionRate resolves the induction rate for a stage: the last
// explicit setting wins; absent an explicit value, the stage takes the
// unit-basis default.
func (p Parameters) EffectiveInductionRate(stage Stage, unitBased bool) decimal.Decimal {
	if p.InductionRateExplicit[stage] {
		if r, ok := p.InductionRate[stage]; ok {
			return r.Value.Div(decimal.NewFromInt(100))
		}
	}
	return defaultInductionRate(unitBased)
}

// AddRecoveryRate accumulates a recovery-rate command additively.
func (p *Parameters) AddRecoveryRate(stage Stage, pct quantity.Quantity) {
	cur, ok := p.RecoveryRate[stage]
	if !ok {
		p.RecoveryRate[stage] = pct
		return
	}
	p.RecoveryRate[stage] = cur.WithValue(cur.Value.Add(pct.Value))
}

// AddYieldRate folds a yield-rate command into the equal-weighted running
// average.
func (p *Parameters) AddYieldRate(stage Stage, pct quantity.Quantity) {
	n := p.yieldCount[stage]
	cur, ok := p.YieldRate[stage]
	if !ok {
		p.YieldRate[stage] = pct
		p.yieldCount[stage] = 1
		return
	}
	total := cur.Value.Mul(decimal.NewFromInt(int64(n))).Add(pct.Value)
	p.yieldCount[stage] = n + 1
	p.YieldRate[stage] = cur.WithValue(total.DivRound(decimal.NewFromInt(int64(p.yieldCount[stage])), quantity.DivisionPrecision))
}

// AddRechargeRate folds a recharge command into the parameterization:
// population accumulates additively, intensity becomes the rate-weighted
// average across every recharge command applied so far this step.
func (p *Parameters) AddRechargeRate(pct, intensity quantity.Quantity) {
	curPct := p.RechargePopulation.Value
	newPct := curPct.Add(pct.Value)

	var newIntensity decimal.Decimal
	switch {
	case newPct.IsZero():
		newIntensity = decimal.Zero
	case curPct.IsZero():
		newIntensity = intensity.Value
	default:
		weighted := curPct.Mul(p.RechargeIntensity.Value).Add(pct.Value.Mul(intensity.Value))
		newIntensity = weighted.DivRound(newPct, quantity.DivisionPrecision)
	}

	p.RechargePopulation = pct.WithValue(newPct)
	p.RechargeIntensity = intensity.WithValue(newIntensity)
}

// SetInductionRate records an explicit induction-rate setting; the last
// explicit setting wins.
func (p *Parameters) SetInductionRate(stage Stage, pct quantity.Quantity) {
	p.InductionRate[stage] = pct
	p.InductionRateExplicit[stage] = true
}

// resetStep clears the per-step yield-averaging counters. Rate values
// themselves persist (they are cumulative parameterization, not per-step
// state); only the step-scoped bookkeeping in CumulativeBase resets at
// year roll-over.
func (p *Parameters) resetStep() {
	for stage := range p.yieldCount {
		p.yieldCount[stage] = 0
	}
}
