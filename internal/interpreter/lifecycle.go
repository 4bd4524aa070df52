package interpreter

import (
	"context"

	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/propagation"
	"github.com/example/refsim/internal/simerr"
	"github.com/example/refsim/internal/stream"
)

// execRetire folds a retire command's amount into the cumulative
// retirement base: the base population is captured once per step, on the
// first retire/population recalc that touches it, so N partial retire
// commands summing to T% remove exactly as much as one T% command.
func (ip *Interpreter) execRetire(ctx context.Context, key stream.UseKey, cmd program.Command) error {
	priorEquip, err := ip.Store.Get(key, stream.PriorEquipment)
	if err != nil {
		return err
	}
	cum, err := ip.Store.Cumulative(key)
	if err != nil {
		return err
	}
	cum.CaptureRetirementBase(priorEquip.Value)

	val, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}
	conv, err := ip.converterFor(key)
	if err != nil {
		return err
	}

	amount := val.Value
	switch {
	case val.Units == "%":
		amount, err = convertWithPopulationOverride(conv, val, "unit", cum.RetirementBasePopulation)
	case isUnitUnits(val.Units):
		// already a unit count
	default:
		converted, cErr := conv.Convert(val, "unit")
		err = cErr
		if cErr == nil {
			amount = converted.Value
		}
	}
	if err != nil {
		return err
	}

	cum.AddAppliedRetirement(amount)
	if cmd.WithReplacement {
		cum.AddReplacementUnits(amount)
	}

	return ip.Coordinator.Propagate(ctx, propagation.MutationRetireRechargeRecover, recalcTarget(key, ip.unitBasedContext(key)))
}

// execRecharge folds a recharge command into the parameterization: the
// recharge population rate accumulates additively across commands applied
// this step, its intensity becomes the rate-weighted running average.
func (ip *Interpreter) execRecharge(ctx context.Context, key stream.UseKey, cmd program.Command) error {
	pct, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}
	intensity, err := ip.evaluate(cmd.SecondValue)
	if err != nil {
		return err
	}
	conv, err := ip.converterFor(key)
	if err != nil {
		return err
	}
	convertedIntensity, err := conv.Convert(intensity, "kg / unit")
	if err != nil {
		return err
	}

	params, err := ip.Store.Params(key)
	if err != nil {
		return err
	}
	params.AddRechargeRate(pct, convertedIntensity)

	return ip.Coordinator.Propagate(ctx, propagation.MutationRetireRechargeRecover, recalcTarget(key, ip.unitBasedContext(key)))
}

// execRecover folds a recover command into the per-stage recovery/yield/
// induction parameterization. Substance-target displacement inside a
// recover command is explicitly unsupported.
func (ip *Interpreter) execRecover(ctx context.Context, key stream.UseKey, cmd program.Command) error {
	if cmd.Displacing != "" {
		return &simerr.UnsupportedError{Feature: "recycling displacement", Detail: "recover does not support a substance-target displacement"}
	}

	stage := stream.Stage(cmd.WithStage)
	params, err := ip.Store.Params(key)
	if err != nil {
		return err
	}

	recovery, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}
	params.AddRecoveryRate(stage, recovery)

	if !cmd.SecondValue.IsZero() {
		yield, err := ip.evaluate(cmd.SecondValue)
		if err != nil {
			return err
		}
		params.AddYieldRate(stage, yield)
	}

	if cmd.HasInduction {
		induction, err := ip.evaluate(cmd.WithInduction)
		if err != nil {
			return err
		}
		params.SetInductionRate(stage, induction)
	}

	return ip.Coordinator.Propagate(ctx, propagation.MutationRetireRechargeRecover, recalcTarget(key, ip.unitBasedContext(key)))
}
