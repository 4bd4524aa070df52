// Package scenario runs one simulation's compiled command program across
// its year range for a single trial: composing the default stanza with
// the named policies in order, executing each year's matching commands
// through the interpreter, converging the recalc chain, emitting a result
// record per use-key, and rolling the store over to the next year.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/example/refsim/internal/interpreter"
	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/propagation"
	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/recalc"
	"github.com/example/refsim/internal/result"
	"github.com/example/refsim/internal/stream"
)

// Engine runs a single named simulation against a fresh per-trial store.
type Engine struct {
	Program    program.Program
	Simulation program.Simulation
	Log        *slog.Logger
}

// New constructs an Engine for one (program, simulation) pair.
func New(prog program.Program, sim program.Simulation, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{Program: prog, Simulation: sim, Log: log.With("scenario", sim.Name)}
}

// Run executes the simulation for one trial against a fresh store and RNG,
// returning one result record per (year, application, substance) in
// use-key declaration order within each year.
func (e *Engine) Run(ctx context.Context, trial int, rng *rand.Rand) ([]result.Record, error) {
	index, order, err := buildIndex(e.Program, e.Simulation)
	if err != nil {
		return nil, err
	}

	store := stream.NewStore(e.Log)
	for _, key := range order {
		store.Ensure(key)
	}
	coord := propagation.NewCoordinator(recalc.Kit{Store: store, Log: e.Log}, e.Log)

	globals, err := evaluateGlobals(rng, e.Program.Variables)
	if err != nil {
		return nil, err
	}
	interpreters := make(map[stream.UseKey]*interpreter.Interpreter, len(order))
	for _, key := range order {
		interpreters[key] = interpreter.New(store, coord, rng, cloneVars(globals))
	}

	var records []result.Record
	for year := e.Simulation.YearStart; year <= e.Simulation.YearEnd; year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, key := range order {
			ip := interpreters[key]
			for _, cmd := range index[key] {
				if !resolveYear(cmd.Year, e.Simulation.YearStart, e.Simulation.YearEnd).Matches(year) {
					continue
				}
				if err := ip.Execute(ctx, key, cmd, year); err != nil {
					return nil, fmt.Errorf("scenario %s: year %d: %s/%s: %w", e.Simulation.Name, year, key.Application, key.Substance, err)
				}
			}
		}

		for _, key := range order {
			if err := coord.Converge(ctx, recalc.Target{Key: key, UnitBased: lastSpecifiedUnitBased(store, key)}); err != nil {
				return nil, err
			}
		}

		for _, key := range order {
			rec, err := result.Build(store, e.Simulation.Name, trial, year, key)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}

		for _, key := range order {
			if err := rollYear(store, key); err != nil {
				return nil, err
			}
		}
	}

	return records, nil
}

// lastSpecifiedUnitBased reports whether a use-key's sales substreams were
// last specified in unit terms, mirroring the interpreter's own check for
// callers (the year-end convergence pass) that sit outside the
// interpreter and so can't reach its unexported helper.
func lastSpecifiedUnitBased(store *stream.Store, key stream.UseKey) bool {
	if rec, ok := store.LastSpecifiedRecord(key, stream.Domestic); ok {
		return rec.UnitBased
	}
	if rec, ok := store.LastSpecifiedRecord(key, stream.Import); ok {
		return rec.UnitBased
	}
	return false
}

// evaluateGlobals binds the program's top-level `variables` stanza once
// per trial: sampling nodes draw their one value here, and every use-key's
// interpreter starts from a copy of the result.
func evaluateGlobals(rng *rand.Rand, vars map[string]program.Value) (map[string]quantity.Quantity, error) {
	ip := interpreter.New(nil, nil, rng, nil)
	out := make(map[string]quantity.Quantity, len(vars))
	for name, v := range vars {
		val, err := ip.Evaluate(v)
		if err != nil {
			return nil, fmt.Errorf("evaluating global variable %q: %w", name, err)
		}
		out[name] = val
	}
	return out, nil
}

func cloneVars(src map[string]quantity.Quantity) map[string]quantity.Quantity {
	out := make(map[string]quantity.Quantity, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
