package resultio_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refsim/internal/result"
	"github.com/example/refsim/internal/resultio"
)

func TestWriteAllEmitsHeaderThenRows(t *testing.T) {
	records := []result.Record{
		{
			Scenario:    "bau",
			Trial:       1,
			Year:        2025,
			Application: "Domestic Refrigeration",
			Substance:   "HFC-134a",
			DomesticKg:  decimal.NewFromInt(100),
		},
	}

	var buf strings.Builder
	require.NoError(t, resultio.WriteAll(&buf, records))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(result.Columns, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "bau,1,2025,Domestic Refrigeration,HFC-134a,100,"))
}

func TestWriteAllEmptyStillWritesHeader(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, resultio.WriteAll(&buf, nil))
	assert.Equal(t, strings.Join(result.Columns, ",")+"\n", buf.String())
}
