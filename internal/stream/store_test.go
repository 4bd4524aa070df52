package stream

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/simerr"
)

func testKey() UseKey { return UseKey{Application: "Domestic Refrigeration", Substance: "HFC-134a"} }

func TestGetUnknownKeyRaisesScopeError(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Get(testKey(), Equipment)
	require.Error(t, err)
	var scopeErr *simerr.ScopeError
	require.True(t, errors.As(err, &scopeErr))
}

func TestWriteSubstreamDirectRejectsUnconvertedCharge(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)

	err := s.WriteSubstream(key, SubDomestic, quantity.New(decimal.NewFromInt(100), "kg"), WriteOptions{UnitBased: true})
	require.Error(t, err)

	p, err := s.Params(key)
	require.NoError(t, err)
	p.InitialCharge[SubDomestic] = quantity.New(decimal.NewFromInt(5), "kg")

	require.NoError(t, s.WriteSubstream(key, SubDomestic, quantity.New(decimal.NewFromInt(100), "kg"), WriteOptions{UnitBased: true}))
	got, err := s.Get(key, Domestic)
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(500)))
}

func TestWriteSubstreamSubtractsRecycleShareNeverBelowZero(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)
	s.Enable(key, SubDomestic)
	s.Enable(key, SubImport)

	require.NoError(t, s.WriteSubstream(key, SubDomestic, quantity.New(decimal.NewFromInt(50), "kg"), WriteOptions{}))
	require.NoError(t, s.WriteSubstream(key, SubImport, quantity.New(decimal.NewFromInt(50), "kg"), WriteOptions{}))
	require.NoError(t, s.WriteRecycle(key, quantity.New(decimal.NewFromInt(1000), "kg")))

	require.NoError(t, s.WriteSubstream(key, SubDomestic, quantity.New(decimal.NewFromInt(10), "kg"), WriteOptions{SubtractRecycling: true}))
	got, err := s.Get(key, Domestic)
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.Zero), "expected clamp to zero, got %s", got.Value)
}

func TestWriteRecycleSplitsFiftyFiftyWhenBothZero(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)

	require.NoError(t, s.WriteRecycle(key, quantity.New(decimal.NewFromInt(100), "kg")))
	recharge, err := s.Get(key, RecycleRecharge)
	require.NoError(t, err)
	eol, err := s.Get(key, RecycleEol)
	require.NoError(t, err)
	assert.True(t, recharge.Value.Equal(decimal.NewFromInt(50)))
	assert.True(t, eol.Value.Equal(decimal.NewFromInt(50)))
}

func TestWriteRecycleSplitsProportionallyWhenNonZero(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)

	require.NoError(t, s.WriteRecycle(key, quantity.New(decimal.NewFromInt(100), "kg")))
	// recharge=50, eol=50 after first split; re-split 400 across the same 50/50 ratio.
	require.NoError(t, s.WriteRecycle(key, quantity.New(decimal.NewFromInt(400), "kg")))
	recharge, err := s.Get(key, RecycleRecharge)
	require.NoError(t, err)
	assert.True(t, recharge.Value.Equal(decimal.NewFromInt(200)))
}

func TestSalesEqualsDomesticPlusImportPlusRecycle(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)
	s.Enable(key, SubDomestic)
	s.Enable(key, SubImport)

	require.NoError(t, s.WriteSubstream(key, SubDomestic, quantity.New(decimal.NewFromInt(100), "kg"), WriteOptions{}))
	require.NoError(t, s.WriteSubstream(key, SubImport, quantity.New(decimal.NewFromInt(50), "kg"), WriteOptions{}))
	require.NoError(t, s.WriteRecycle(key, quantity.New(decimal.NewFromInt(30), "kg")))

	sales, err := s.Sales(key)
	require.NoError(t, err)
	assert.True(t, sales.Value.Equal(decimal.NewFromInt(180)), "got %s", sales.Value)
}

func TestBankUsesSalesWeightedInitialCharge(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)
	p, err := s.Params(key)
	require.NoError(t, err)
	p.InitialCharge[SubDomestic] = quantity.New(decimal.NewFromInt(2), "kg")
	p.InitialCharge[SubImport] = quantity.New(decimal.NewFromInt(4), "kg")
	s.Enable(key, SubDomestic)
	s.Enable(key, SubImport)
	require.NoError(t, s.WriteSubstream(key, SubDomestic, quantity.New(decimal.NewFromInt(100), "kg"), WriteOptions{}))
	require.NoError(t, s.WriteSubstream(key, SubImport, quantity.New(decimal.NewFromInt(100), "kg"), WriteOptions{}))
	require.NoError(t, s.Set(key, Equipment, quantity.New(decimal.NewFromInt(10), "unit")))

	bank, err := s.Bank(key)
	require.NoError(t, err)
	// equal weights on domestic(100) and import(100) -> avg charge = 3 kg/unit
	assert.True(t, bank.Value.Equal(decimal.NewFromInt(30)), "got %s", bank.Value)
}

func TestEquipmentWriteClampsNegativeToZero(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)
	require.NoError(t, s.Set(key, Equipment, quantity.New(decimal.NewFromInt(-5), "unit")))
	got, err := s.Get(key, Equipment)
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.Zero))
}

func TestAccumulateImplicitRechargeAddsAcrossCalls(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)

	require.NoError(t, s.AccumulateImplicitRecharge(key, quantity.New(decimal.NewFromInt(40), "kg")))
	require.NoError(t, s.AccumulateImplicitRecharge(key, quantity.New(decimal.NewFromInt(15), "kg")))

	got, err := s.Get(key, ImplicitRecharge)
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(55)), "got %s", got.Value)
}

func TestSnapshotYearRollsOverPriorEquipmentAndResetsRecycleInduction(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)
	require.NoError(t, s.Set(key, Equipment, quantity.New(decimal.NewFromInt(100), "unit")))
	require.NoError(t, s.Set(key, Retired, quantity.New(decimal.NewFromInt(10), "unit")))
	require.NoError(t, s.WriteRecycle(key, quantity.New(decimal.NewFromInt(40), "kg")))
	require.NoError(t, s.AccumulateImplicitRecharge(key, quantity.New(decimal.NewFromInt(25), "kg")))

	require.NoError(t, s.SnapshotYear(key))

	priorEquip, err := s.Get(key, PriorEquipment)
	require.NoError(t, err)
	assert.True(t, priorEquip.Value.Equal(decimal.NewFromInt(100)))

	priorRetired, err := s.Get(key, PriorRetired)
	require.NoError(t, err)
	assert.True(t, priorRetired.Value.Equal(decimal.NewFromInt(10)))

	recharge, err := s.Get(key, RecycleRecharge)
	require.NoError(t, err)
	assert.True(t, recharge.Value.IsZero())

	implicit, err := s.Get(key, ImplicitRecharge)
	require.NoError(t, err)
	assert.True(t, implicit.Value.IsZero())
}

func TestCumulativeBaseCapturedOnceAndAccumulatesAdditively(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)
	require.NoError(t, s.Set(key, PriorEquipment, quantity.New(decimal.NewFromInt(1000), "unit")))

	cb, err := s.Cumulative(key)
	require.NoError(t, err)
	prior, err := s.Get(key, PriorEquipment)
	require.NoError(t, err)

	cb.CaptureRetirementBase(prior.Value)
	cb.AddAppliedRetirement(decimal.NewFromInt(50))
	cb.CaptureRetirementBase(prior.Value) // no-op: already captured
	cb.AddAppliedRetirement(decimal.NewFromInt(30))

	assert.True(t, cb.AppliedRetirementAmount.Equal(decimal.NewFromInt(80)))
	assert.True(t, cb.RetirementBasePopulation.Equal(decimal.NewFromInt(1000)))
}

func TestManualPriorEquipmentEditRescalesCumulativeBase(t *testing.T) {
	s := NewStore(nil)
	key := testKey()
	s.Ensure(key)
	require.NoError(t, s.Set(key, PriorEquipment, quantity.New(decimal.NewFromInt(1000), "unit")))

	cb, err := s.Cumulative(key)
	require.NoError(t, err)
	cb.CaptureRetirementBase(decimal.NewFromInt(1000))
	cb.AddAppliedRetirement(decimal.NewFromInt(100))

	require.NoError(t, s.Set(key, PriorEquipment, quantity.New(decimal.NewFromInt(2000), "unit")))

	assert.True(t, cb.RetirementBasePopulation.Equal(decimal.NewFromInt(2000)))
	assert.True(t, cb.AppliedRetirementAmount.Equal(decimal.NewFromInt(200)), "got %s", cb.AppliedRetirementAmount)
}
