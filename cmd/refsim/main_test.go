package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refsim/internal/config"
	"github.com/example/refsim/internal/simerr"
)

const sampleProgram = `{
	"default": {
		"applications": [
			{"name": "Domestic Refrigeration", "substances": [
				{"name": "HFC-134a", "commands": [
					{"kind": "enable", "stream": "domestic"},
					{"kind": "initial_charge", "stream": "domestic", "value": {"kind": "literal", "literal": "1", "units": "kg / unit"}},
					{"kind": "equals", "value": {"kind": "literal", "literal": "1430", "units": "tCO2e / kg"}},
					{"kind": "set", "stream": "priorEquipment", "value": {"kind": "literal", "literal": "1000", "units": "unit"}},
					{"kind": "set", "stream": "domestic", "value": {"kind": "literal", "literal": "100", "units": "kg"}}
				]}
			]}
		]
	},
	"simulations": [
		{"name": "bau", "yearStart": 2025, "yearEnd": 2026, "trials": 1}
	]
}`

func writeTempProgram(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "program.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseRunFlagsDefaultsFromConfig(t *testing.T) {
	seed := int64(7)
	cfg := config.Config{OutputPath: "default.csv", Concurrency: 4, Seed: &seed}

	flags, err := parseRunFlags(cfg, []string{"program.json"})
	require.NoError(t, err)
	assert.Equal(t, "program.json", flags.programFile)
	assert.Equal(t, "default.csv", flags.outputPath)
	assert.Equal(t, 0, flags.trials)
	assert.Equal(t, 4, flags.concurrency)
	require.NotNil(t, flags.seed)
	assert.Equal(t, seed, *flags.seed)
}

func TestParseRunFlagsOverridesConfig(t *testing.T) {
	cfg := config.Config{OutputPath: "default.csv", Concurrency: 4}

	flags, err := parseRunFlags(cfg, []string{"-o", "out.csv", "--trials", "50", "--seed", "42", "program.json"})
	require.NoError(t, err)
	assert.Equal(t, "out.csv", flags.outputPath)
	assert.Equal(t, 50, flags.trials)
	require.NotNil(t, flags.seed)
	assert.Equal(t, int64(42), *flags.seed)
}

func TestParseRunFlagsRejectsMissingProgramFile(t *testing.T) {
	_, err := parseRunFlags(config.Config{}, nil)
	assert.Error(t, err)
}

func TestParseRunFlagsRejectsExtraArgs(t *testing.T) {
	_, err := parseRunFlags(config.Config{}, []string{"a.json", "b.json"})
	assert.Error(t, err)
}

func TestRunValidateAcceptsWellFormedProgram(t *testing.T) {
	path := writeTempProgram(t, sampleProgram)
	assert.NoError(t, runValidate([]string{path}))
}

func TestRunValidateRejectsMalformedProgram(t *testing.T) {
	path := writeTempProgram(t, "{ not json")
	err := runValidate([]string{path})
	require.Error(t, err)
	var perr *simerr.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestRunValidateRejectsWrongArgCount(t *testing.T) {
	assert.Error(t, runValidate(nil))
	assert.Error(t, runValidate([]string{"a", "b"}))
}

func TestRunSimulateRejectsExtraPositionalArgs(t *testing.T) {
	path := writeTempProgram(t, sampleProgram)
	err := runSimulate(discardLogger(), config.Config{Concurrency: 1}, []string{path, "extra"})
	assert.Error(t, err)
}

func TestRunSimulateWritesCSVToOutputFile(t *testing.T) {
	path := writeTempProgram(t, sampleProgram)
	outPath := filepath.Join(t.TempDir(), "out.csv")

	err := runSimulate(discardLogger(), config.Config{Concurrency: 1}, []string{"-o", outPath, path})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scenario")
}

func TestKindOfDefaultsToInternalForUnwrappedError(t *testing.T) {
	assert.Equal(t, simerr.KindInternal, kindOf(io.EOF))
}

func TestKindOfUnwrapsParseError(t *testing.T) {
	perr := &simerr.ParseError{Line: 1, Column: 1, Message: "bad"}
	assert.Equal(t, simerr.KindParse, kindOf(perr))
}
