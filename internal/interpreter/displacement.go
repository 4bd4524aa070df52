package interpreter

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/propagation"
	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/simerr"
	"github.com/example/refsim/internal/stream"
)

// mutationKindFor maps a directly-written stream name to the propagation
// chain it triggers. Streams outside the primary mutation surface (derived
// or diagnostic streams) have no registered chain; Propagate no-ops on an
// unrecognized kind rather than guess one.
func (ip *Interpreter) mutationKindFor(name stream.Name) propagation.MutationKind {
	switch name {
	case stream.Domestic, stream.Import, stream.Export:
		return propagation.MutationSubstreamWrite
	case stream.Equipment:
		return propagation.MutationEquipmentWrite
	case stream.PriorEquipment:
		return propagation.MutationPriorEquipmentWrite
	default:
		return ""
	}
}

// execCapFloor clamps a stream to a limit and, when the command names a
// displacing substance, feeds the clamped delta into that substance's same
// stream: a cap's excess flows out to the displacing substance, a floor's
// shortfall is drawn from it. Displacement is only supported for sales
// substreams, since only those carry the initial-charge parameterization
// the unit-preserving conversion needs.
func (ip *Interpreter) execCapFloor(ctx context.Context, key stream.UseKey, cmd program.Command, isCap bool) error {
	conv, err := ip.converterFor(key)
	if err != nil {
		return err
	}
	limit, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}

	name := stream.Name(cmd.Stream)
	cur, err := ip.Store.Get(key, name)
	if err != nil {
		return err
	}
	limitConverted, err := conv.Convert(limit, cur.Units)
	if err != nil {
		return err
	}

	var violated bool
	if isCap {
		violated = cur.Value.GreaterThan(limitConverted.Value)
	} else {
		violated = cur.Value.LessThan(limitConverted.Value)
	}
	if !violated {
		return nil
	}

	delta := cur.Value.Sub(limitConverted.Value)
	sub, isSub := toSubstream(cmd.Stream)
	if isSub {
		if err := ip.Store.WriteSubstream(key, sub, limitConverted, stream.WriteOptions{}); err != nil {
			return err
		}
	} else if err := ip.Store.Set(key, name, limitConverted); err != nil {
		return err
	}

	if kind := ip.mutationKindFor(name); kind != "" {
		if err := ip.Coordinator.Propagate(ctx, kind, recalcTarget(key, ip.unitBasedContext(key))); err != nil {
			return err
		}
	}

	if cmd.Displacing == "" {
		return nil
	}
	if !isSub {
		return &simerr.UnsupportedError{Feature: "cap/floor displacement", Detail: fmt.Sprintf("displacement is only supported for sales substreams, not %q", cmd.Stream)}
	}

	targetKey := stream.UseKey{Application: key.Application, Substance: cmd.Displacing}
	targetConv, err := ip.converterFor(targetKey)
	if err != nil {
		return err
	}
	deltaKg, err := targetConv.Convert(quantity.New(delta, cur.Units), "kg")
	if err != nil {
		return err
	}
	targetCur, err := ip.Store.Get(targetKey, name)
	if err != nil {
		return err
	}
	if err := ip.Store.WriteSubstream(targetKey, sub, targetCur.WithValue(targetCur.Value.Add(deltaKg.Value)), stream.WriteOptions{}); err != nil {
		return err
	}
	return ip.Coordinator.Propagate(ctx, propagation.MutationSubstreamWrite, recalcTarget(targetKey, ip.unitBasedContext(targetKey)))
}

// execReplace moves amount of a sales substream from key's substance into
// cmd.TargetSubstance. A unit-denominated amount is unit-preserving: the
// same unit count is removed from the source and added to the target, each
// converted through its own initial charge. A mass-denominated amount moves
// the same kg figure on both sides.
func (ip *Interpreter) execReplace(ctx context.Context, key stream.UseKey, cmd program.Command) error {
	if cmd.TargetSubstance == "" {
		return &simerr.ConfigError{Application: key.Application, Substance: key.Substance, Reason: "replace requires a target substance"}
	}
	sub, ok := toSubstream(cmd.Stream)
	if !ok {
		return &simerr.ConfigError{Application: key.Application, Substance: key.Substance, Reason: fmt.Sprintf("replace target %q is not a sales substream", cmd.Stream)}
	}

	amount, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}
	sourceConv, err := ip.converterFor(key)
	if err != nil {
		return err
	}
	targetKey := stream.UseKey{Application: key.Application, Substance: cmd.TargetSubstance}
	targetConv, err := ip.converterFor(targetKey)
	if err != nil {
		return err
	}

	var removedKg, addedKg decimal.Decimal
	if isUnitUnits(amount.Units) {
		srcKg, err := sourceConv.Convert(amount, "kg")
		if err != nil {
			return err
		}
		tgtKg, err := targetConv.Convert(amount, "kg")
		if err != nil {
			return err
		}
		removedKg, addedKg = srcKg.Value, tgtKg.Value
	} else {
		kgQty, err := sourceConv.Convert(amount, "kg")
		if err != nil {
			return err
		}
		removedKg, addedKg = kgQty.Value, kgQty.Value
	}

	name := stream.Name(sub)
	cur, err := ip.Store.Get(key, name)
	if err != nil {
		return err
	}
	if removedKg.GreaterThan(cur.Value) && !removedKg.IsZero() {
		ratio := cur.Value.DivRound(removedKg, quantity.DivisionPrecision)
		addedKg = addedKg.Mul(ratio)
		removedKg = cur.Value
	}

	if err := ip.Store.WriteSubstream(key, sub, cur.WithValue(cur.Value.Sub(removedKg)), stream.WriteOptions{}); err != nil {
		return err
	}
	if err := ip.Coordinator.Propagate(ctx, propagation.MutationSubstreamWrite, recalcTarget(key, ip.unitBasedContext(key))); err != nil {
		return err
	}

	targetCur, err := ip.Store.Get(targetKey, name)
	if err != nil {
		return err
	}
	if err := ip.Store.WriteSubstream(targetKey, sub, targetCur.WithValue(targetCur.Value.Add(addedKg)), stream.WriteOptions{}); err != nil {
		return err
	}
	return ip.Coordinator.Propagate(ctx, propagation.MutationSubstreamWrite, recalcTarget(targetKey, ip.unitBasedContext(targetKey)))
}
