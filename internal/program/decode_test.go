package program_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/simerr"
)

func TestDecodeParsesMinimalProgram(t *testing.T) {
	src := `{
		"default": {
			"applications": [
				{"name": "Domestic Refrigeration", "substances": [
					{"name": "HFC-134a", "commands": [
						{"kind": "enable", "stream": "domestic"}
					]}
				]}
			]
		},
		"simulations": [
			{"name": "bau", "yearStart": 2025, "yearEnd": 2030, "trials": 1}
		]
	}`

	prog, err := program.Decode(strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, prog.Default.Applications, 1)
	assert.Equal(t, "HFC-134a", prog.Default.Applications[0].Substances[0].Name)
	assert.Equal(t, program.CommandEnable, prog.Default.Applications[0].Substances[0].Commands[0].Kind)
	require.Len(t, prog.Simulations, 1)
	assert.Equal(t, 2025, prog.Simulations[0].YearStart)
}

func TestDecodeReturnsParseErrorWithPosition(t *testing.T) {
	src := "{\n  \"default\": { ,\n}"

	_, err := program.Decode(strings.NewReader(src))
	require.Error(t, err)

	var perr *simerr.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, simerr.KindParse, perr.Kind())
	assert.Equal(t, 2, perr.Line)
}
