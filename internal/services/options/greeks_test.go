package options

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
)

func TestBlackScholes_ATMCallReferencePrice(t *testing.T) {
	c := NewCalculator(Config{})
	g, err := c.BlackScholes(100, 100, 1, 0.2, 0.05, models.OptionCall)
	require.NoError(t, err)

	assert.InDelta(t, 10.45, g.Price, 0.01)
	assert.InDelta(t, 0.6368, g.Delta, 0.001)
	assert.InDelta(t, 0.01876, g.Gamma, 0.0001)
	assert.InDelta(t, 0.3752, g.Vega, 0.001)
	assert.InDelta(t, -0.01757, g.Theta, 0.0001)
	assert.InDelta(t, 0.5323, g.Rho, 0.001)
}

func TestBlackScholes_PutCallParity(t *testing.T) {
	c := NewCalculator(Config{})
	spot, strike, expiry, vol, rate := 110.0, 95.0, 0.5, 0.3, 0.04

	call, err := c.BlackScholes(spot, strike, expiry, vol, rate, models.OptionCall)
	require.NoError(t, err)
	put, err := c.BlackScholes(spot, strike, expiry, vol, rate, models.OptionPut)
	require.NoError(t, err)

	parity := spot - strike*math.Exp(-rate*expiry)
	assert.InDelta(t, parity, call.Price-put.Price, 1e-9)
}

func TestBlackScholes_GammaAndVegaMatchAcrossTypes(t *testing.T) {
	c := NewCalculator(Config{})
	call, err := c.BlackScholes(100, 105, 0.25, 0.25, 0.05, models.OptionCall)
	require.NoError(t, err)
	put, err := c.BlackScholes(100, 105, 0.25, 0.25, 0.05, models.OptionPut)
	require.NoError(t, err)

	assert.InDelta(t, call.Gamma, put.Gamma, 1e-12)
	assert.InDelta(t, call.Vega, put.Vega, 1e-12)
}

func TestBlackScholes_DeltaBounds(t *testing.T) {
	c := NewCalculator(Config{})

	call, err := c.BlackScholes(150, 100, 0.5, 0.2, 0.05, models.OptionCall)
	require.NoError(t, err)
	assert.Greater(t, call.Delta, 0.9) // deep in the money
	assert.LessOrEqual(t, call.Delta, 1.0)

	put, err := c.BlackScholes(150, 100, 0.5, 0.2, 0.05, models.OptionPut)
	require.NoError(t, err)
	assert.Less(t, put.Delta, 0.0)
	assert.Greater(t, put.Delta, -0.1) // deep out of the money
}

func TestBlackScholes_CallThetaIsNegative(t *testing.T) {
	c := NewCalculator(Config{})
	g, err := c.BlackScholes(100, 100, 0.5, 0.2, 0.05, models.OptionCall)
	require.NoError(t, err)
	assert.Less(t, g.Theta, 0.0)
}

func TestBlackScholes_RejectsNonPositiveInputs(t *testing.T) {
	c := NewCalculator(Config{})

	_, err := c.BlackScholes(100, 100, 0, 0.2, 0.05, models.OptionCall)
	assert.Error(t, err)
	_, err = c.BlackScholes(100, 100, 1, 0, 0.05, models.OptionCall)
	assert.Error(t, err)
	_, err = c.BlackScholes(0, 100, 1, 0.2, 0.05, models.OptionCall)
	assert.Error(t, err)
	_, err = c.BlackScholes(100, -5, 1, 0.2, 0.05, models.OptionPut)
	assert.Error(t, err)
}

func TestBlackScholes_RejectsUnknownType(t *testing.T) {
	c := NewCalculator(Config{})
	_, err := c.BlackScholes(100, 100, 1, 0.2, 0.05, models.OptionType("STRANGLE"))
	assert.Error(t, err)
}

func TestBlackScholes_Idempotent(t *testing.T) {
	c := NewCalculator(Config{})
	first, err := c.BlackScholes(102, 98, 0.75, 0.18, 0.05, models.OptionPut)
	require.NoError(t, err)
	second, err := c.BlackScholes(102, 98, 0.75, 0.18, 0.05, models.OptionPut)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewCalculator_DefaultRate(t *testing.T) {
	assert.InDelta(t, 0.05, NewCalculator(Config{}).DefaultRate(), 1e-12)
	assert.InDelta(t, 0.07, NewCalculator(Config{RiskFreeRate: 0.07}).DefaultRate(), 1e-12)
}
