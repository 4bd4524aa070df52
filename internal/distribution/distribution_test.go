package distribution_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/example/refsim/internal/distribution"
	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/stream"
)

type fakeSource struct {
	enabled map[stream.Substream]bool
	volume  map[stream.Substream]decimal.Decimal
}

func (f fakeSource) SubstreamEnabled(sub stream.Substream) bool { return f.enabled[sub] }

func (f fakeSource) SubstreamVolume(sub stream.Substream) quantity.Quantity {
	return quantity.New(f.volume[sub], "kg")
}

func TestDistributeProportionalToVolume(t *testing.T) {
	src := fakeSource{
		enabled: map[stream.Substream]bool{stream.SubDomestic: true, stream.SubImport: true},
		volume: map[stream.Substream]decimal.Decimal{
			stream.SubDomestic: decimal.NewFromInt(75),
			stream.SubImport:   decimal.NewFromInt(25),
		},
	}
	shares := distribution.Distribute(src)
	assert.True(t, shares.Domestic.Equal(decimal.NewFromFloat(0.75)))
	assert.True(t, shares.Import.Equal(decimal.NewFromFloat(0.25)))
	assert.True(t, shares.Export.IsZero())
}

func TestDistributeFallsBackToEqualShareWhenAllZero(t *testing.T) {
	src := fakeSource{
		enabled: map[stream.Substream]bool{stream.SubDomestic: true, stream.SubImport: true, stream.SubExport: true},
		volume:  map[stream.Substream]decimal.Decimal{},
	}
	shares := distribution.Distribute(src)
	third := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(3), quantity.DivisionPrecision)
	assert.True(t, shares.Domestic.Equal(third))
	assert.True(t, shares.Import.Equal(third))
	assert.True(t, shares.Export.Equal(third))
}

func TestDistributeZerosDisabledSubstreams(t *testing.T) {
	src := fakeSource{
		enabled: map[stream.Substream]bool{stream.SubDomestic: true},
		volume:  map[stream.Substream]decimal.Decimal{stream.SubDomestic: decimal.NewFromInt(10)},
	}
	shares := distribution.Distribute(src)
	assert.True(t, shares.Domestic.Equal(decimal.NewFromInt(1)))
	assert.True(t, shares.Import.IsZero())
	assert.True(t, shares.Export.IsZero())
}

func TestDistributeNoEnabledSubstreamsReturnsZero(t *testing.T) {
	shares := distribution.Distribute(fakeSource{enabled: map[stream.Substream]bool{}, volume: map[stream.Substream]decimal.Decimal{}})
	assert.True(t, shares.Domestic.IsZero())
	assert.True(t, shares.Import.IsZero())
	assert.True(t, shares.Export.IsZero())
}
