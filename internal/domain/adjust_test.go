package domain

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustFuel_NoImpactNoExtra(t *testing.T) {
	adj, err := AdjustFuel(1050, 95, 0, DefaultImpactScale)
	require.NoError(t, err)

	assert.Equal(t, 1.0, adj.ImpactFactor)
	assert.Equal(t, 0.0, adj.ExtraFuelKg)
	assert.Equal(t, adj.BaselineFuelKg, adj.WeatherAdjustedFuelKg)
	assert.InDelta(t, 1050*95.0/60, adj.BaselineFuelKg, 1e-9)
}

func TestAdjustFuel_ScalesWithImpact(t *testing.T) {
	// 2 hours at 1000 kg/h, impact 5 → factor 1.1, extra 200 kg.
	adj, err := AdjustFuel(1000, 120, 5, DefaultImpactScale)
	require.NoError(t, err)

	assert.InDelta(t, 2000.0, adj.BaselineFuelKg, 1e-9)
	assert.InDelta(t, 1.1, adj.ImpactFactor, 1e-12)
	assert.InDelta(t, 2200.0, adj.WeatherAdjustedFuelKg, 1e-9)
	assert.InDelta(t, 200.0, adj.ExtraFuelKg, 1e-9)
}

func TestAdjustFuel_RejectsInvalidInputs(t *testing.T) {
	cases := []struct {
		name                   string
		rate, duration, impact float64
	}{
		{"negative rate", -1, 60, 1},
		{"negative duration", 1000, -5, 1},
		{"negative impact", 1000, 60, -0.5},
		{"nan duration", 1000, math.NaN(), 1},
		{"inf impact", 1000, 60, math.Inf(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := AdjustFuel(tc.rate, tc.duration, tc.impact, DefaultImpactScale)
			assert.ErrorIs(t, err, ErrInvalidFuelInput)
		})
	}
}

func TestAdjustFuel_ExtraNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 13))
	for i := 0; i < 2000; i++ {
		rate := rng.Float64() * 8000
		duration := rng.Float64() * 900
		impact := rng.Float64() * 40

		adj, err := AdjustFuel(rate, duration, impact, DefaultImpactScale)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, adj.ExtraFuelKg, 0.0)
		assert.GreaterOrEqual(t, adj.ImpactFactor, 1.0)
	}
}

func TestImpactFactor_NonPositiveScaleFallsBack(t *testing.T) {
	assert.Equal(t, ImpactFactor(10, DefaultImpactScale), ImpactFactor(10, 0))
	assert.Equal(t, ImpactFactor(10, DefaultImpactScale), ImpactFactor(10, -3))
}

func TestWeatherRateTable(t *testing.T) {
	table := NewWeatherRateTable(DefaultWeatherRates(), 0)

	r, ok := table.Rate("crj9")
	assert.True(t, ok)
	assert.Equal(t, 1050.0, r)

	r, ok = table.Rate(" A350 ")
	assert.True(t, ok)
	assert.Equal(t, 5800.0, r)

	// Exact match only: full model names fall through to the default.
	r, ok = table.Rate("Bombardier CRJ-900")
	assert.False(t, ok)
	assert.Equal(t, DefaultFuelRateKgPerHr, r)

	custom := NewWeatherRateTable(map[string]float64{"X1": 10}, 777)
	r, ok = custom.Rate("unknown")
	assert.False(t, ok)
	assert.Equal(t, 777.0, r)
}
