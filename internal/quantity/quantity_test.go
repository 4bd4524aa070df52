package quantity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refsim/internal/quantity"
)

func TestParsePreservesOriginal(t *testing.T) {
	q, err := quantity.Parse("100.50", "kg")
	require.NoError(t, err)
	assert.Equal(t, "100.50", q.Original)
	assert.Equal(t, "100.50", q.String())
	assert.True(t, q.Value.Equal(decimal.RequireFromString("100.50")))
}

func TestAddRequiresSameUnits(t *testing.T) {
	a := quantity.NewInt(10, "kg")
	b := quantity.NewInt(5, "mt")
	_, err := a.Add(b)
	require.ErrorIs(t, err, quantity.ErrUnitMismatch)

	c := quantity.NewInt(5, "kg")
	sum, err := a.Add(c)
	require.NoError(t, err)
	assert.True(t, sum.Value.Equal(decimal.NewFromInt(15)))
}

func TestClampNonNegative(t *testing.T) {
	neg := quantity.NewInt(-5, "unit")
	clamped, did := neg.ClampNonNegative()
	assert.True(t, did)
	assert.True(t, clamped.IsZero())

	pos := quantity.NewInt(5, "unit")
	same, did := pos.ClampNonNegative()
	assert.False(t, did)
	assert.Equal(t, pos.Value, same.Value)
}

func TestPowRejectsFractionalExponent(t *testing.T) {
	q := quantity.NewInt(2, "unit")
	_, err := q.Pow(decimal.RequireFromString("1.5"))
	require.ErrorIs(t, err, quantity.ErrFractionalExponent)

	squared, err := q.Pow(decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, squared.Value.Equal(decimal.NewFromInt(4)))
}
