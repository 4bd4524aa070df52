package stream

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/simerr"
)

var oneYear = decimal.NewFromInt(1)

// state is the full per-use-key state: stream values, parameters, and the
// cumulative-base bookkeeping.
type state struct {
	values     map[Name]decimal.Decimal
	priorYear  map[Name]decimal.Decimal
	params     Parameters
	cumulative CumulativeBase
}

func newState() *state {
	return &state{
		values:    make(map[Name]decimal.Decimal),
		priorYear: make(map[Name]decimal.Decimal),
		params:    newParameters(),
	}
}

// WriteOptions controls how a write to domestic/import/export is routed.
type WriteOptions struct {
	// UnitBased marks the value as already expressed in the substream's
	// initial-charge units rather than kg.
	UnitBased bool
	// SubtractRecycling indicates the caller supplied a gross figure that
	// still needs the proportional recycle share subtracted, rather than
	// an already-net virgin-material figure.
	SubtractRecycling bool
}

// Store holds every use-key's stream values and parameterizations for a
// single trial. A Store is not shared across trials.
type Store struct {
	mu     sync.RWMutex
	states map[UseKey]*state
	log    *slog.Logger
}

// NewStore constructs an empty Store.
func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{states: make(map[UseKey]*state), log: log}
}

// Ensure creates a use-key's state on first reference, per the lifecycle
// rule that a `define` or `modify` on an unseen substance starts it at
// zero streams and zero parameterizations.
func (s *Store) Ensure(key UseKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(key)
}

func (s *Store) ensureLocked(key UseKey) *state {
	st, ok := s.states[key]
	if !ok {
		st = newState()
		s.states[key] = st
	}
	return st
}

func (s *Store) lookup(key UseKey, operation string) (*state, error) {
	st, ok := s.states[key]
	if !ok {
		return nil, &simerr.ScopeError{Application: key.Application, Substance: key.Substance, Operation: operation}
	}
	return st, nil
}

// Get reads a stream's current value in its canonical units.
func (s *Store) Get(key UseKey, name Name) (quantity.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.lookup(key, "get "+string(name))
	if err != nil {
		return quantity.Quantity{}, err
	}
	return quantity.New(valueOrZero(st.values, name), CanonicalUnits[name]), nil
}

// GetPrior reads a stream's prior-year snapshot.
func (s *Store) GetPrior(key UseKey, name Name) (quantity.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.lookup(key, "get prior "+string(name))
	if err != nil {
		return quantity.Quantity{}, err
	}
	return quantity.New(valueOrZero(st.priorYear, name), CanonicalUnits[name]), nil
}

func valueOrZero(m map[Name]decimal.Decimal, name Name) decimal.Decimal {
	if v, ok := m[name]; ok {
		return v
	}
	return decimal.Zero
}

// setRaw stores a value with a NaN guard. The quantity must already be in
// the stream's canonical units (or carry no unit label); any other unit is
// rejected as an InternalError.
func (s *Store) setRaw(st *state, name Name, q quantity.Quantity) error {
	canonical := CanonicalUnits[name]
	if q.Units != canonical && q.Units != "" {
		return &simerr.InternalError{Reason: fmt.Sprintf("stream %s written with uncoverted units %q (want %q)", name, q.Units, canonical)}
	}
	if q.Value.String() == "NaN" {
		return &simerr.InternalError{Reason: fmt.Sprintf("NaN written to stream %s", name)}
	}
	st.values[name] = q.Value
	return nil
}

// Set stores a value already expressed in canonical units for any stream
// other than domestic/import/export/sales, which require WriteSubstream's
// routing semantics.
func (s *Store) Set(key UseKey, name Name, q quantity.Quantity) error {
	if isSubstream(name) {
		return &simerr.InternalError{Reason: fmt.Sprintf("use WriteSubstream to write %s", name)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(key)
	if name == Equipment {
		clamped, didClamp := q.ClampNonNegative()
		if didClamp {
			s.log.Warn("equipment write clamped to zero", "application", key.Application, "substance", key.Substance)
		}
		q = clamped
	}
	if name == PriorEquipment {
		st.cumulative.RescaleOnManualPriorEquipment(q.Value)
	}
	return s.setRaw(st, name, q)
}

func isSubstream(name Name) bool {
	return name == Domestic || name == Import || name == Export
}

// WriteSubstream routes a write to domestic, import, or export per the
// distribution-and-recycling-subtraction semantics: a gross value has the
// proportional recycle share for that substream subtracted (never below
// zero) before it is committed; a net value is stored as-is. Unit-based
// writes convert through the substream's initial charge, which must be
// non-zero. A negative value is clamped to zero with a warning.
func (s *Store) WriteSubstream(key UseKey, sub Substream, q quantity.Quantity, opts WriteOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(key)

	name := Name(sub)
	value := q.Value
	if opts.UnitBased {
		charge, ok := st.params.InitialCharge[sub]
		if !ok || charge.Value.IsZero() {
			return &simerr.ConfigError{Application: key.Application, Substance: key.Substance, Reason: fmt.Sprintf("zero initial charge for %s on a unit-based set", sub)}
		}
		value = value.Mul(charge.Value)
	}
	if value.Sign() < 0 {
		s.log.Warn("negative substream write clamped to zero", "application", key.Application, "substance", key.Substance, "substream", string(sub))
		value = decimal.Zero
	}

	if opts.SubtractRecycling && sub != SubExport {
		share := s.substreamShareLocked(st, sub)
		recycle := valueOrZero(st.values, RecycleRecharge).Add(valueOrZero(st.values, RecycleEol))
		value = value.Sub(recycle.Mul(share))
		if value.Sign() < 0 {
			value = decimal.Zero
		}
	}

	if value.Sign() != 0 {
		st.params.StreamEnabled[sub] = true
	} else if !st.params.StreamEnabled[sub] {
		return s.setRaw(st, name, quantity.New(decimal.Zero, CanonicalUnits[name]))
	}

	return s.setRaw(st, name, quantity.New(value, CanonicalUnits[name]))
}

// WriteRecycle splits a recycle total between recycleRecharge and
// recycleEol proportionally to their current values, or 50/50 if both are
// currently zero. Recycle itself is derived and has no stream of its own;
// sales recalc writes the two stage streams directly with Set.
func (s *Store) WriteRecycle(key UseKey, total quantity.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(key)

	recharge := valueOrZero(st.values, RecycleRecharge)
	eol := valueOrZero(st.values, RecycleEol)
	sum := recharge.Add(eol)

	var rechargeShare, eolShare decimal.Decimal
	if sum.IsZero() {
		rechargeShare = decimal.NewFromFloat(0.5)
		eolShare = decimal.NewFromFloat(0.5)
	} else {
		rechargeShare = recharge.DivRound(sum, quantity.DivisionPrecision)
		eolShare = eol.DivRound(sum, quantity.DivisionPrecision)
	}

	if err := s.setRaw(st, RecycleRecharge, quantity.New(total.Value.Mul(rechargeShare), "kg")); err != nil {
		return err
	}
	return s.setRaw(st, RecycleEol, quantity.New(total.Value.Mul(eolShare), "kg"))
}

// AccumulateImplicitRecharge adds delta to the implicitRecharge stream. A
// unit-based substream set calls this after folding its own recharge demand
// into the substream write, so the next sales recalc's independently
// computed recharge volume can subtract the already-covered portion instead
// of double counting it.
func (s *Store) AccumulateImplicitRecharge(key UseKey, delta quantity.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(key)
	current := valueOrZero(st.values, ImplicitRecharge)
	return s.setRaw(st, ImplicitRecharge, quantity.New(current.Add(delta.Value), "kg"))
}

// Enable marks a substream as enabled without writing a value to it.
func (s *Store) Enable(key UseKey, sub Substream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(key)
	st.params.StreamEnabled[sub] = true
}

// IsEnabled reports whether a substream has been enabled, explicitly or by
// a prior non-zero write.
func (s *Store) IsEnabled(key UseKey, sub Substream) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	if !ok {
		return false
	}
	return st.params.StreamEnabled[sub]
}

// substreamShareLocked returns the proportional share of recycle to
// subtract from a gross write to sub: the substream's share of current
// sales-substream volume, or 1/n across enabled sales substreams if all
// are zero, or zero if sub is disabled. Mirrors the Distribute helper in
// package distribution but stays internal since it only needs read access
// to state the caller already holds the lock for.
func (s *Store) substreamShareLocked(st *state, sub Substream) decimal.Decimal {
	if !st.params.StreamEnabled[sub] {
		return decimal.Zero
	}
	total := decimal.Zero
	enabledCount := 0
	for _, candidate := range AllSubstreams {
		if !st.params.StreamEnabled[candidate] {
			continue
		}
		enabledCount++
		total = total.Add(valueOrZero(st.values, Name(candidate)).Abs())
	}
	if total.IsZero() {
		if enabledCount == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(1).DivRound(decimal.NewFromInt(int64(enabledCount)), quantity.DivisionPrecision)
	}
	return valueOrZero(st.values, Name(sub)).Abs().DivRound(total, quantity.DivisionPrecision)
}

// Sales returns the derived sales total: domestic + import + recycle.
func (s *Store) Sales(key UseKey) (quantity.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.lookup(key, "get sales")
	if err != nil {
		return quantity.Quantity{}, err
	}
	total := valueOrZero(st.values, Domestic).Add(valueOrZero(st.values, Import)).Add(s.recycleLocked(st))
	return quantity.New(total, "kg"), nil
}

// Recycle returns the derived recycle total: recycleRecharge + recycleEol.
func (s *Store) Recycle(key UseKey) (quantity.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.lookup(key, "get recycle")
	if err != nil {
		return quantity.Quantity{}, err
	}
	return quantity.New(s.recycleLocked(st), "kg"), nil
}

func (s *Store) recycleLocked(st *state) decimal.Decimal {
	return valueOrZero(st.values, RecycleRecharge).Add(valueOrZero(st.values, RecycleEol))
}

// Induction returns the derived induction total: inductionRecharge +
// inductionEol.
func (s *Store) Induction(key UseKey) (quantity.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.lookup(key, "get induction")
	if err != nil {
		return quantity.Quantity{}, err
	}
	total := valueOrZero(st.values, InductionRecharge).Add(valueOrZero(st.values, InductionEol))
	return quantity.New(total, "kg"), nil
}

// Bank returns the derived bank total: equipment × effective initial
// charge, where the effective charge is the sales-weighted average across
// enabled substreams (falling back to domestic's charge, then zero).
func (s *Store) Bank(key UseKey) (quantity.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.lookup(key, "get bank")
	if err != nil {
		return quantity.Quantity{}, err
	}
	charge := s.effectiveInitialChargeLocked(st)
	equipment := valueOrZero(st.values, Equipment)
	return quantity.New(equipment.Mul(charge), "kg"), nil
}

// EffectiveInitialCharge returns the sales-weighted average initial charge
// (kg per unit) across enabled substreams, the same figure Bank uses
// internally, exposed for callers (result derivation) that need the charge
// without the equipment multiplication.
func (s *Store) EffectiveInitialCharge(key UseKey) (quantity.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.lookup(key, "effective initial charge")
	if err != nil {
		return quantity.Quantity{}, err
	}
	return quantity.New(s.effectiveInitialChargeLocked(st), "kg / unit"), nil
}

func (s *Store) effectiveInitialChargeLocked(st *state) decimal.Decimal {
	total := decimal.Zero
	weight := decimal.Zero
	for _, sub := range SalesSubstreams {
		charge, ok := st.params.InitialCharge[sub]
		if !ok {
			continue
		}
		v := valueOrZero(st.values, Name(sub)).Abs()
		total = total.Add(charge.Value.Mul(v))
		weight = weight.Add(v)
	}
	if !weight.IsZero() {
		return total.DivRound(weight, quantity.DivisionPrecision)
	}
	if charge, ok := st.params.InitialCharge[SubDomestic]; ok {
		return charge.Value
	}
	return decimal.Zero
}

// Params returns a pointer to the use-key's parameterization for direct
// mutation by the interpreter and recalc strategies. The returned pointer
// is only valid while holding no other Store call concurrently on the same
// key from another goroutine; callers within a single trial are
// single-threaded per scenario run.
func (s *Store) Params(key UseKey) (*Parameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookup(key, "params")
	if err != nil {
		return nil, err
	}
	return &st.params, nil
}

// Cumulative returns a pointer to the use-key's cumulative-base state.
func (s *Store) Cumulative(key UseKey) (*CumulativeBase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookup(key, "cumulative")
	if err != nil {
		return nil, err
	}
	return &st.cumulative, nil
}

// LastSpecified records the last explicit "set" for a stream.
func (s *Store) LastSpecified(key UseKey, name Name, rec SpecRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(key)
	copy := rec
	st.params.LastSpecified[name] = &copy
}

// LastSpecifiedRecord returns the last explicit "set" for a stream, if any.
func (s *Store) LastSpecifiedRecord(key UseKey, name Name) (*SpecRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	if !ok {
		return nil, false
	}
	rec, ok := st.params.LastSpecified[name]
	return rec, ok
}

// Keys returns every use-key the store has seen, in no particular order.
func (s *Store) Keys() []UseKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]UseKey, 0, len(s.states))
	for k := range s.states {
		keys = append(keys, k)
	}
	return keys
}

// SnapshotYear implements the year roll-over invariant: priorEquipment and
// priorRetired take this year's equipment/retired, recycling and induction
// substreams reset to zero (the caller must have already redistributed any
// carry-over per the policy's assume mode before calling this), and every
// per-step flag and cumulative base resets.
func (s *Store) SnapshotYear(key UseKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookup(key, "snapshot year")
	if err != nil {
		return err
	}

	st.priorYear = make(map[Name]decimal.Decimal, len(st.values))
	for name, v := range st.values {
		st.priorYear[name] = v
	}
	st.values[PriorEquipment] = valueOrZero(st.values, Equipment)
	st.values[PriorRetired] = valueOrZero(st.values, Retired)

	for _, name := range []Name{RecycleRecharge, RecycleEol, InductionRecharge, InductionEol, ImplicitRecharge} {
		st.values[name] = decimal.Zero
	}

	st.cumulative.reset()
	st.params.resetStep()
	return nil
}
