package scenario_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/scenario"
)

func baseProgram() program.Program {
	return program.Program{
		Default: program.Stanza{
			Applications: []program.Application{
				{
					Name: "Domestic Refrigeration",
					Substances: []program.Substance{
						{
							Name: "HFC-134a",
							Commands: []program.Command{
								{Kind: program.CommandEnable, Stream: "domestic"},
								{Kind: program.CommandInitialCharge, Stream: "domestic", Value: program.Literal(decimal.NewFromInt(1), "kg / unit")},
								{Kind: program.CommandEquals, Value: program.Literal(decimal.NewFromInt(1430), "tCO2e / kg")},
								{Kind: program.CommandSet, Stream: "priorEquipment", Value: program.Literal(decimal.NewFromInt(1000), "unit")},
								{Kind: program.CommandSet, Stream: "domestic", Value: program.Literal(decimal.NewFromInt(100), "kg")},
							},
						},
					},
				},
			},
		},
	}
}

func TestEngineRunProducesOneRecordPerYearPerUseKey(t *testing.T) {
	prog := baseProgram()
	sim := program.Simulation{Name: "bau", YearStart: 2025, YearEnd: 2027, Trials: 1}

	eng := scenario.New(prog, sim, nil)
	records, err := eng.Run(context.Background(), 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		assert.Equal(t, "bau", rec.Scenario)
		assert.Equal(t, 2025+i, rec.Year)
		assert.Equal(t, "Domestic Refrigeration", rec.Application)
		assert.Equal(t, "HFC-134a", rec.Substance)
	}
}

func TestEngineRunAppliesPolicyOnTopOfDefault(t *testing.T) {
	prog := baseProgram()
	prog.Policies = []program.Policy{
		{
			Name: "phase-down",
			Apps: []program.Application{
				{
					Name: "Domestic Refrigeration",
					Substances: []program.Substance{
						{
							Name: "HFC-134a",
							Commands: []program.Command{
								{Kind: program.CommandChange, Stream: "domestic", Value: program.Literal(decimal.NewFromInt(-10), "%")},
							},
						},
					},
				},
			},
		},
	}
	sim := program.Simulation{Name: "policy-run", Policies: []string{"phase-down"}, YearStart: 2025, YearEnd: 2025, Trials: 1}

	eng := scenario.New(prog, sim, nil)
	records, err := eng.Run(context.Background(), 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, records, 1)

	// 100kg set, then -10% change => 90kg.
	assert.True(t, records[0].DomesticKg.Equal(decimal.NewFromInt(90)), "got %s", records[0].DomesticKg)
}

func TestEngineRunRejectsUnknownPolicy(t *testing.T) {
	prog := baseProgram()
	sim := program.Simulation{Name: "broken", Policies: []string{"does-not-exist"}, YearStart: 2025, YearEnd: 2025, Trials: 1}

	eng := scenario.New(prog, sim, nil)
	_, err := eng.Run(context.Background(), 0, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestEngineRunRejectsDuplicateSubstanceWithinStanza(t *testing.T) {
	prog := baseProgram()
	prog.Default.Applications[0].Substances = append(
		prog.Default.Applications[0].Substances,
		prog.Default.Applications[0].Substances[0],
	)
	sim := program.Simulation{Name: "dup", YearStart: 2025, YearEnd: 2025, Trials: 1}

	eng := scenario.New(prog, sim, nil)
	_, err := eng.Run(context.Background(), 0, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestEngineRunHonorsYearMatcherBounds(t *testing.T) {
	prog := baseProgram()
	min2026 := 2026
	prog.Default.Applications[0].Substances[0].Commands = append(
		prog.Default.Applications[0].Substances[0].Commands,
		program.Command{
			Kind:   program.CommandChange,
			Stream: "domestic",
			Value:  program.Literal(decimal.NewFromInt(5), "kg"),
			Year:   program.YearMatcher{Min: &min2026},
		},
	)
	sim := program.Simulation{Name: "bounded", YearStart: 2025, YearEnd: 2026, Trials: 1}

	eng := scenario.New(prog, sim, nil)
	records, err := eng.Run(context.Background(), 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, records[0].DomesticKg.Equal(decimal.NewFromInt(100)), "year 2025 got %s", records[0].DomesticKg)
	assert.True(t, records[1].DomesticKg.Equal(decimal.NewFromInt(105)), "year 2026 got %s", records[1].DomesticKg)
}
