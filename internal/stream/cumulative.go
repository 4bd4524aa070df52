package stream

import "github.com/shopspring/decimal"

// rescaleTolerance is the 1e-4 units tolerance below which a manual
// priorEquipment edit is treated as a no-op for cumulative-base rescaling.
var rescaleTolerance = decimal.RequireFromString("0.0001")

// CumulativeBase tracks, per use-key per simulation step, the snapshot
// against which additive retire/recharge/recover commands compute their
// effect.
type CumulativeBase struct {
	RetirementBasePopulation decimal.Decimal
	RetirementBaseCaptured   bool
	AppliedRetirementAmount  decimal.Decimal

	RechargeBasePopulation decimal.Decimal
	RechargeBaseCaptured  bool
	AppliedRechargeAmount decimal.Decimal

	// ReplacementUnits accumulates units retired `with replacement` this
	// step: population recalc feeds this back into newEquipment demand so
	// replaced units don't shrink the population.
	ReplacementUnits decimal.Decimal

	RetireCalculatedThisStep    bool
	RecyclingCalculatedThisStep bool
}

func (c *CumulativeBase) reset() {
	*c = CumulativeBase{}
}

// CaptureRetirementBase snapshots priorEquipment as the retirement base on
// the first retire command of the step; subsequent calls are no-ops.
func (c *CumulativeBase) CaptureRetirementBase(priorEquipment decimal.Decimal) {
	if c.RetirementBaseCaptured {
		return
	}
	c.RetirementBasePopulation = priorEquipment
	c.AppliedRetirementAmount = decimal.Zero
	c.RetirementBaseCaptured = true
}

// CaptureRechargeBase snapshots priorEquipment as the recharge base on the
// first recharge-affecting command of the step; subsequent calls are
// no-ops.
func (c *CumulativeBase) CaptureRechargeBase(priorEquipment decimal.Decimal) {
	if c.RechargeBaseCaptured {
		return
	}
	c.RechargeBasePopulation = priorEquipment
	c.AppliedRechargeAmount = decimal.Zero
	c.RechargeBaseCaptured = true
}

// AddAppliedRetirement accumulates additional retired units against the
// captured base, so N commands summing to T% retire exactly as much as one
// T% command.
func (c *CumulativeBase) AddAppliedRetirement(amount decimal.Decimal) {
	c.AppliedRetirementAmount = c.AppliedRetirementAmount.Add(amount)
}

// AddReplacementUnits accumulates units retired `with replacement` this
// step.
func (c *CumulativeBase) AddReplacementUnits(amount decimal.Decimal) {
	c.ReplacementUnits = c.ReplacementUnits.Add(amount)
}

// AddAppliedRecharge accumulates additional recharge kg against the
// captured base.
func (c *CumulativeBase) AddAppliedRecharge(amount decimal.Decimal) {
	c.AppliedRechargeAmount = c.AppliedRechargeAmount.Add(amount)
}

// RescaleOnManualPriorEquipment handles a manual priorEquipment edit
// mid-step: it proportionally rescales both bases using new_prior/old_base
// (recharge) and preserves the applied/base ratio (retirement). A
// tolerance of 1e-4 units skips no-op rescales.
func (c *CumulativeBase) RescaleOnManualPriorEquipment(newPrior decimal.Decimal) {
	if c.RechargeBaseCaptured && !c.RechargeBasePopulation.IsZero() {
		delta := newPrior.Sub(c.RechargeBasePopulation).Abs()
		if delta.GreaterThan(rescaleTolerance) {
			ratio := newPrior.DivRound(c.RechargeBasePopulation, 34)
			c.AppliedRechargeAmount = c.AppliedRechargeAmount.Mul(ratio)
			c.RechargeBasePopulation = newPrior
		}
	}
	if c.RetirementBaseCaptured && !c.RetirementBasePopulation.IsZero() {
		delta := newPrior.Sub(c.RetirementBasePopulation).Abs()
		if delta.GreaterThan(rescaleTolerance) {
			ratio := newPrior.DivRound(c.RetirementBasePopulation, 34)
			c.AppliedRetirementAmount = c.AppliedRetirementAmount.Mul(ratio)
			c.RetirementBasePopulation = newPrior
		}
	}
}
