package domain

import (
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultFuelRateKgPerHr applies to aircraft models missing from the rate table.
	DefaultFuelRateKgPerHr = 1000.0

	// DefaultImpactScale divides the comprehensive impact to form the fuel factor.
	DefaultImpactScale = 50.0
)

// WeatherRateTable maps ICAO type designators to cruise fuel flow in kg/h.
// Lookup is an exact, case-insensitive match on the trimmed model string.
type WeatherRateTable struct {
	rates       map[string]float64
	defaultRate float64
}

// DefaultWeatherRates returns the type-designator fuel flows used by the
// weather-enhanced model.
func DefaultWeatherRates() map[string]float64 {
	return map[string]float64{
		"CRJ2": 850,
		"CRJ7": 950,
		"CRJ9": 1050,
		"E145": 900,
		"E170": 1100,
		"E175": 1150,
		"B737": 2500,
		"A320": 2400,
		"B757": 3200,
		"B767": 4200,
		"A330": 5500,
		"B777": 7500,
		"B787": 5400,
		"A350": 5800,
	}
}

// NewWeatherRateTable copies rates into a table. A non-positive defaultRate
// falls back to DefaultFuelRateKgPerHr.
func NewWeatherRateTable(rates map[string]float64, defaultRate float64) *WeatherRateTable {
	if defaultRate <= 0 {
		defaultRate = DefaultFuelRateKgPerHr
	}
	t := &WeatherRateTable{rates: make(map[string]float64, len(rates)), defaultRate: defaultRate}
	for k, v := range rates {
		t.rates[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return t
}

// Rate returns the fuel flow for model and whether it came from the table.
func (t *WeatherRateTable) Rate(model string) (float64, bool) {
	if r, ok := t.rates[strings.ToUpper(strings.TrimSpace(model))]; ok {
		return r, true
	}
	return t.defaultRate, false
}

// FuelAdjustment is the weather-adjusted fuel model output for one flight.
type FuelAdjustment struct {
	FuelRateKgPerHr       float64 `json:"fuel_rate_kg_per_hour"`
	BaselineFuelKg        float64 `json:"baseline_fuel_kg"`
	ImpactFactor          float64 `json:"weather_impact_factor"`
	WeatherAdjustedFuelKg float64 `json:"weather_adjusted_fuel_kg"`
	ExtraFuelKg           float64 `json:"extra_fuel_kg"`
}

// ImpactFactor returns 1 + impact/scale. The factor is deliberately unbounded.
func ImpactFactor(comprehensiveImpact, scale float64) float64 {
	if scale <= 0 {
		scale = DefaultImpactScale
	}
	return 1.0 + comprehensiveImpact/scale
}

// AdjustFuel computes baseline, weather-adjusted, and extra fuel. Inputs must
// be finite and non-negative (ErrInvalidFuelInput otherwise). An adjustment
// that would make extra fuel negative is reported as ErrNegativeExtraFuel
// rather than clamped.
func AdjustFuel(rateKgPerHr, durationMin, comprehensiveImpact, scale float64) (FuelAdjustment, error) {
	inputs := []struct {
		name  string
		value float64
	}{
		{"fuel rate", rateKgPerHr},
		{"duration", durationMin},
		{"comprehensive impact", comprehensiveImpact},
	}
	for _, in := range inputs {
		if math.IsNaN(in.value) || math.IsInf(in.value, 0) || in.value < 0 {
			return FuelAdjustment{}, fmt.Errorf("%w: %s is %v", ErrInvalidFuelInput, in.name, in.value)
		}
	}

	baseline := rateKgPerHr * durationMin / 60
	factor := ImpactFactor(comprehensiveImpact, scale)
	adjusted := baseline * factor
	extra := adjusted - baseline
	if extra < 0 || math.IsNaN(extra) {
		return FuelAdjustment{}, fmt.Errorf("%w: %.6f kg (baseline %.3f, factor %.6f)", ErrNegativeExtraFuel, extra, baseline, factor)
	}

	return FuelAdjustment{
		FuelRateKgPerHr:       rateKgPerHr,
		BaselineFuelKg:        baseline,
		ImpactFactor:          factor,
		WeatherAdjustedFuelKg: adjusted,
		ExtraFuelKg:           extra,
	}, nil
}
