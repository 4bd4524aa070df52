// Package recalc implements the closed set of recalculation strategies
// that bring a use-key's streams back into a consistent state after a
// mutation: sales (the inner loop), population, consumption, and the two
// recycling stages. Each strategy is a concrete tagged variant rather than
// a registry of arbitrary plugins - the set is fixed and known at compile
// time, mirroring the scope1/scope2/scope3 calculator split this package
// is grounded on.
package recalc

import (
	"context"
	"log/slog"

	"github.com/example/refsim/internal/distribution"
	"github.com/example/refsim/internal/stream"
	"github.com/example/refsim/internal/units"
)

// Target names the use-key a strategy runs against, plus whether the
// triggering command was unit-based (affecting induction defaults and
// whether recharge/sales figures are tracked as unit-intent).
type Target struct {
	Key       stream.UseKey
	UnitBased bool
}

// Kit bundles the dependencies every strategy needs: the stream store, an
// optional unit converter, and a logger. The strategies in this package do
// not read Converter; each builds its own from Store.ContextFor.
type Kit struct {
	Store     *stream.Store
	Converter *units.Converter
	Log       *slog.Logger
}

func (k Kit) logger() *slog.Logger {
	if k.Log == nil {
		return slog.Default()
	}
	return k.Log
}

func (k Kit) distributionSource(key stream.UseKey) distribution.Source {
	return distribution.FromStore(k.Store, key)
}

// Strategy is the shared contract every recalc variant implements.
type Strategy interface {
	Execute(ctx context.Context, target Target, kit Kit) error
}
