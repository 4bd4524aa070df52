package scenario

import (
	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/distribution"
	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/stream"
)

// rollYear performs the year-end transition for one use-key: recycled
// material is redistributed back into domestic/import (proportional to
// their current share) to prevent a cumulative deficit on a sustained
// recycling program, induction is redistributed out the same way
// (clamped at zero), then the store's own snapshot resets priors,
// recycling/induction substreams, and per-step flags.
//
// Redistribution is gated per stream by its assume carry-over mode:
// `no` skips redistribution for that stream entirely; `only_recharge`
// redistributes only the recharge-stage recycle/induction figures, not
// the EOL-stage ones; `continued`, and any stream with no explicit
// assume, redistributes both stages. This is the engine's own resolution
// of an otherwise-ambiguous interaction, recorded in DESIGN.md.
func rollYear(store *stream.Store, key stream.UseKey) error {
	params, err := store.Params(key)
	if err != nil {
		return err
	}

	recycleEol, err := store.Get(key, stream.RecycleEol)
	if err != nil {
		return err
	}
	recycleRecharge, err := store.Get(key, stream.RecycleRecharge)
	if err != nil {
		return err
	}
	inductionEol, err := store.Get(key, stream.InductionEol)
	if err != nil {
		return err
	}
	inductionRecharge, err := store.Get(key, stream.InductionRecharge)
	if err != nil {
		return err
	}

	shares := distribution.Distribute(distribution.FromStore(store, key))

	domesticMode := carryOverMode(params, stream.Domestic)
	importMode := carryOverMode(params, stream.Import)

	addDomestic := shares.Domestic.Mul(redistributionAmount(domesticMode, recycleEol.Value, recycleRecharge.Value))
	addImport := shares.Import.Mul(redistributionAmount(importMode, recycleEol.Value, recycleRecharge.Value))
	subDomestic := shares.Domestic.Mul(redistributionAmount(domesticMode, inductionEol.Value, inductionRecharge.Value))
	subImport := shares.Import.Mul(redistributionAmount(importMode, inductionEol.Value, inductionRecharge.Value))

	domestic, err := store.Get(key, stream.Domestic)
	if err != nil {
		return err
	}
	imported, err := store.Get(key, stream.Import)
	if err != nil {
		return err
	}

	nextDomestic := clampNonNegative(domestic.Value.Add(addDomestic).Sub(subDomestic))
	nextImport := clampNonNegative(imported.Value.Add(addImport).Sub(subImport))

	if err := store.WriteSubstream(key, stream.SubDomestic, quantity.New(nextDomestic, "kg"), stream.WriteOptions{}); err != nil {
		return err
	}
	if err := store.WriteSubstream(key, stream.SubImport, quantity.New(nextImport, "kg"), stream.WriteOptions{}); err != nil {
		return err
	}

	return store.SnapshotYear(key)
}

func carryOverMode(params *stream.Parameters, name stream.Name) stream.CarryOverMode {
	mode, ok := params.CarryOver[name]
	if !ok {
		return stream.CarryOverContinued
	}
	return mode
}

// redistributionAmount resolves how much of an eol/recharge-stage pair
// carries over under mode: the full sum when continued, only the
// recharge-stage figure when only_recharge, nothing when no.
func redistributionAmount(mode stream.CarryOverMode, eol, recharge decimal.Decimal) decimal.Decimal {
	switch mode {
	case stream.CarryOverNo:
		return decimal.Zero
	case stream.CarryOverOnlyRecharge:
		return recharge
	default:
		return eol.Add(recharge)
	}
}

func clampNonNegative(v decimal.Decimal) decimal.Decimal {
	if v.Sign() < 0 {
		return decimal.Zero
	}
	return v
}
