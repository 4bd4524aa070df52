// Package propagation dispatches a mutation to the fixed chain of recalc
// strategies it requires, per a static dependency table. One pass per
// mutation suffices - the table is complete and the engine never iterates
// propagation transitively.
package propagation

import (
	"context"
	"log/slog"

	"github.com/example/refsim/internal/recalc"
)

// MutationKind names a row of the propagation dependency table.
type MutationKind string

const (
	// MutationSubstreamWrite covers a set/change to domestic, import, or
	// export: triggers consumption recalc, then population recalc (which
	// reads the post-recalc demand after recharge/recycle are subtracted).
	MutationSubstreamWrite MutationKind = "substream_write"

	// MutationIntensityChange covers an `equals` command changing
	// ghg_intensity/energy_intensity: triggers sales recalc only (demand is
	// unchanged but the intensity shift affects GHG); population is
	// unaffected.
	MutationIntensityChange MutationKind = "intensity_change"

	// MutationEquipmentWrite covers a direct set/change to equipment:
	// triggers sales recalc (demand changes), then consumption recalc.
	MutationEquipmentWrite MutationKind = "equipment_write"

	// MutationPriorEquipmentWrite covers a set to priorEquipment: triggers
	// population recalc only; priorEquipment is treated as authoritative
	// and cumulative bases have already been rescaled by the stream store.
	MutationPriorEquipmentWrite MutationKind = "prior_equipment_write"

	// MutationRetireRechargeRecover covers retire/recharge/recover
	// commands: runs the EOL and recharge recycling recalcs, then sales
	// recalc (demand changes), then population, then consumption.
	MutationRetireRechargeRecover MutationKind = "retire_recharge_recover"
)

// chain maps each mutation kind to the ordered strategies it runs.
var chain = map[MutationKind][]recalc.Strategy{
	MutationSubstreamWrite: {
		recalc.ConsumptionRecalc{},
		recalc.PopulationRecalc{},
	},
	MutationIntensityChange: {
		recalc.SalesRecalc{},
	},
	MutationEquipmentWrite: {
		recalc.SalesRecalc{},
		recalc.ConsumptionRecalc{},
	},
	MutationPriorEquipmentWrite: {
		recalc.PopulationRecalc{},
	},
	MutationRetireRechargeRecover: {
		recalc.EolRecyclingRecalc{},
		recalc.RechargeRecyclingRecalc{},
		recalc.SalesRecalc{},
		recalc.PopulationRecalc{},
		recalc.ConsumptionRecalc{},
	},
}

// Coordinator runs a mutation's recalc chain against a shared Kit.
type Coordinator struct {
	Kit recalc.Kit
	Log *slog.Logger
}

// NewCoordinator constructs a Coordinator over the given Kit.
func NewCoordinator(kit recalc.Kit, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{Kit: kit, Log: log}
}

// Propagate runs the chain registered for kind against target, in order,
// stopping at the first error.
func (c *Coordinator) Propagate(ctx context.Context, kind MutationKind, target recalc.Target) error {
	strategies, ok := chain[kind]
	if !ok {
		c.Log.Warn("propagation: no chain registered for mutation kind", "kind", string(kind))
		return nil
	}
	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := strategy.Execute(ctx, target, c.Kit); err != nil {
			return err
		}
	}
	return nil
}

// Converge runs the year-end fixed-point pass: sales, population, and
// consumption recalc in sequence. Each strategy is idempotent given fixed
// parameters, so a single pass is sufficient once commands for the year
// have stopped mutating parameters.
func (c *Coordinator) Converge(ctx context.Context, target recalc.Target) error {
	for _, strategy := range []recalc.Strategy{recalc.SalesRecalc{}, recalc.PopulationRecalc{}, recalc.ConsumptionRecalc{}} {
		if err := strategy.Execute(ctx, target, c.Kit); err != nil {
			return err
		}
	}
	return nil
}
