package result_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/result"
	"github.com/example/refsim/internal/stream"
)

func setupUseKey(t *testing.T) (*stream.Store, stream.UseKey) {
	t.Helper()
	s := stream.NewStore(nil)
	key := stream.UseKey{Application: "Domestic Refrigeration", Substance: "HFC-134a"}
	s.Ensure(key)
	p, err := s.Params(key)
	require.NoError(t, err)
	p.InitialCharge[stream.SubDomestic] = quantity.New(decimal.NewFromInt(1), "kg")
	p.GhgIntensity = quantity.New(decimal.NewFromInt(1430), "tCO2e / kg")
	s.Enable(key, stream.SubDomestic)
	require.NoError(t, s.Set(key, stream.PriorEquipment, quantity.New(decimal.NewFromInt(1000), "unit")))
	require.NoError(t, s.WriteSubstream(key, stream.SubDomestic, quantity.New(decimal.NewFromInt(100), "kg"), stream.WriteOptions{}))
	require.NoError(t, s.Set(key, stream.Equipment, quantity.New(decimal.NewFromInt(1000), "unit")))
	return s, key
}

func TestBuildDerivesConsumptionAndBank(t *testing.T) {
	s, key := setupUseKey(t)

	rec, err := result.Build(s, "bau", 3, 2027, key)
	require.NoError(t, err)

	assert.Equal(t, "bau", rec.Scenario)
	assert.Equal(t, 3, rec.Trial)
	assert.Equal(t, 2027, rec.Year)
	assert.Equal(t, "Domestic Refrigeration", rec.Application)
	assert.Equal(t, "HFC-134a", rec.Substance)

	assert.True(t, rec.DomesticKg.Equal(decimal.NewFromInt(100)), "got %s", rec.DomesticKg)
	assert.True(t, rec.DomesticConsumptionTCO2e.Equal(decimal.NewFromInt(143000)), "got %s", rec.DomesticConsumptionTCO2e)
	assert.True(t, rec.BankKg.Equal(decimal.NewFromInt(1000)), "got %s", rec.BankKg)
	assert.True(t, rec.BankTCO2e.Equal(decimal.NewFromInt(1430000)), "got %s", rec.BankTCO2e)
	assert.False(t, rec.ID.String() == "00000000-0000-0000-0000-000000000000")
}

func TestBuildComputesBankChangeAgainstPriorEquipment(t *testing.T) {
	s, key := setupUseKey(t)
	require.NoError(t, s.Set(key, stream.Equipment, quantity.New(decimal.NewFromInt(1100), "unit")))

	rec, err := result.Build(s, "bau", 0, 2027, key)
	require.NoError(t, err)

	assert.True(t, rec.BankChangeKg.Equal(decimal.NewFromInt(100)), "got %s", rec.BankChangeKg)
	assert.True(t, rec.BankChangeTCO2e.Equal(decimal.NewFromInt(143000)), "got %s", rec.BankChangeTCO2e)
}
