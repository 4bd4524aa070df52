// Package interpreter executes a compiled substance's command list against
// a stream store, routing every mutation through the propagation
// coordinator's recalc chain. One Interpreter serves one trial: its RNG is
// seeded once per trial, so Monte Carlo sampling nodes draw independently
// across trials but deterministically within one, given a fixed seed.
package interpreter

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/propagation"
	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/recalc"
	"github.com/example/refsim/internal/simerr"
	"github.com/example/refsim/internal/stream"
	"github.com/example/refsim/internal/units"
)

// Interpreter owns the mutable per-trial interpreter state: variable
// bindings and the RNG sampling nodes draw from.
type Interpreter struct {
	Store       *stream.Store
	Coordinator *propagation.Coordinator
	RNG         *rand.Rand
	Variables   map[string]quantity.Quantity
}

// New constructs an Interpreter. vars seeds the program-level variable
// bindings and may be nil.
func New(store *stream.Store, coord *propagation.Coordinator, rng *rand.Rand, vars map[string]quantity.Quantity) *Interpreter {
	if vars == nil {
		vars = make(map[string]quantity.Quantity)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Interpreter{Store: store, Coordinator: coord, RNG: rng, Variables: vars}
}

// Execute runs one command against key for the given simulation year,
// including whatever recalc propagation its mutation kind requires.
func (ip *Interpreter) Execute(ctx context.Context, key stream.UseKey, cmd program.Command, year int) error {
	switch cmd.Kind {
	case program.CommandEnable:
		return ip.execEnable(key, cmd)
	case program.CommandInitialCharge:
		return ip.execInitialCharge(key, cmd, year)
	case program.CommandSet:
		return ip.execSetChange(ctx, key, cmd, year, false)
	case program.CommandChange:
		return ip.execSetChange(ctx, key, cmd, year, true)
	case program.CommandEquals:
		return ip.execEquals(ctx, key, cmd, year)
	case program.CommandRetire:
		return ip.execRetire(ctx, key, cmd)
	case program.CommandRecharge:
		return ip.execRecharge(ctx, key, cmd)
	case program.CommandRecover:
		return ip.execRecover(ctx, key, cmd)
	case program.CommandCap:
		return ip.execCapFloor(ctx, key, cmd, true)
	case program.CommandFloor:
		return ip.execCapFloor(ctx, key, cmd, false)
	case program.CommandReplace:
		return ip.execReplace(ctx, key, cmd)
	case program.CommandAssume:
		return ip.execAssume(key, cmd)
	case program.CommandDefine:
		return ip.execDefine(cmd)
	case program.CommandGet:
		return ip.execGet(key, cmd)
	default:
		return &simerr.InternalError{Reason: fmt.Sprintf("interpreter: unhandled command kind %q", cmd.Kind)}
	}
}

// Evaluate resolves a Value expression to a concrete Quantity. Exported for
// callers that bind program-level variables outside any use-key's command
// list (the scenario runner, evaluating `variables` once per trial).
func (ip *Interpreter) Evaluate(v program.Value) (quantity.Quantity, error) {
	return ip.evaluate(v)
}

// evaluate resolves a Value expression to a concrete Quantity, drawing a
// fresh sample from the RNG every time it evaluates a sampling node.
func (ip *Interpreter) evaluate(v program.Value) (quantity.Quantity, error) {
	switch v.Kind {
	case program.ValueLiteral:
		return quantity.New(v.Literal, v.Units), nil
	case program.ValueVariable:
		q, ok := ip.Variables[v.Variable]
		if !ok {
			return quantity.Quantity{}, &simerr.ScopeError{Operation: "variable " + v.Variable}
		}
		return q, nil
	case program.ValueSampleNormal:
		draw := v.Mean.Add(decimal.NewFromFloat(ip.RNG.NormFloat64()).Mul(v.StdDev))
		return quantity.New(draw, v.Units), nil
	case program.ValueSampleUniform:
		span := v.High.Sub(v.Low)
		draw := v.Low.Add(decimal.NewFromFloat(ip.RNG.Float64()).Mul(span))
		return quantity.New(draw, v.Units), nil
	default:
		return quantity.Quantity{}, &simerr.InternalError{Reason: fmt.Sprintf("interpreter: unhandled value kind %q", v.Kind)}
	}
}

func (ip *Interpreter) converterFor(key stream.UseKey) (*units.Converter, error) {
	ctxProvider, err := ip.Store.ContextFor(key)
	if err != nil {
		return nil, err
	}
	return units.NewConverter(ctxProvider), nil
}

// unitBasedContext reports whether this use-key's sales substreams were
// last specified in unit terms, for propagation chains (retire, recharge,
// recover, equipment writes) that don't carry their own unit intent but
// still need to know which induction default applies.
func (ip *Interpreter) unitBasedContext(key stream.UseKey) bool {
	if rec, ok := ip.Store.LastSpecifiedRecord(key, stream.Domestic); ok {
		return rec.UnitBased
	}
	if rec, ok := ip.Store.LastSpecifiedRecord(key, stream.Import); ok {
		return rec.UnitBased
	}
	return false
}

func toSubstream(name string) (stream.Substream, bool) {
	switch stream.Substream(name) {
	case stream.SubDomestic, stream.SubImport, stream.SubExport:
		return stream.Substream(name), true
	}
	return "", false
}

func isUnitUnits(u string) bool {
	return u == "unit" || u == "units"
}

// applyDelta resolves a `change` command's delta against cur: a "%" delta
// scales cur by (1 + pct/100); any other unit converts through conv into
// cur's units and adds.
func applyDelta(cur, delta quantity.Quantity, conv *units.Converter) (quantity.Quantity, error) {
	if delta.Units == "%" {
		factor := decimal.NewFromInt(1).Add(delta.Value.DivRound(decimal.NewFromInt(100), quantity.DivisionPrecision))
		return cur.WithValue(cur.Value.Mul(factor)), nil
	}
	converted, err := conv.Convert(delta, cur.Units)
	if err != nil {
		return quantity.Quantity{}, err
	}
	return cur.WithValue(cur.Value.Add(converted.Value)), nil
}

// convertWithPopulationOverride converts a percentage quantity to
// targetUnits using a population override of basePopulation rather than the
// use-key's live population, mirroring the recalc package's own handling of
// the retire/recharge base snapshot.
func convertWithPopulationOverride(conv *units.Converter, pct quantity.Quantity, targetUnits string, basePopulation decimal.Decimal) (decimal.Decimal, error) {
	var result quantity.Quantity
	err := conv.WithOverride(units.Override{Population: &basePopulation}, func() error {
		converted, convErr := conv.Convert(pct, targetUnits)
		if convErr != nil {
			return convErr
		}
		result = converted
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return result.Value, nil
}

func recalcTarget(key stream.UseKey, unitBased bool) recalc.Target {
	return recalc.Target{Key: key, UnitBased: unitBased}
}
