// Package simweather generates seeded synthetic METAR observations so the
// feature pipeline can run without network access.
package simweather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min, Max float64
}

func (r Range) valid() bool {
	return !math.IsNaN(r.Min) && !math.IsNaN(r.Max) && r.Min <= r.Max
}

// Scenario is a named weather regime with parameter ranges.
type Scenario struct {
	Name           string
	TempC          Range
	WindKt         Range
	VisibilitySM   Range
	PresentWeather string
	Category       domain.FlightCategory
}

// DefaultScenarios returns the four built-in regimes.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "clear", TempC: Range{15, 25}, WindKt: Range{5, 15}, VisibilitySM: Range{8, 10}, Category: domain.CategoryVFR},
		{Name: "cloudy", TempC: Range{10, 20}, WindKt: Range{8, 20}, VisibilitySM: Range{5, 8}, PresentWeather: "BKN", Category: domain.CategoryMVFR},
		{Name: "rainy", TempC: Range{8, 18}, WindKt: Range{12, 25}, VisibilitySM: Range{2, 6}, PresentWeather: "RA", Category: domain.CategoryIFR},
		{Name: "stormy", TempC: Range{5, 15}, WindKt: Range{20, 35}, VisibilitySM: Range{0.5, 3}, PresentWeather: "TSRA", Category: domain.CategoryLIFR},
	}
}

const (
	gustProbability = 0.3
	maxAgeHours     = 6
)

// Generator produces observations for a list of airports. Output depends only
// on the seed, the scenarios, the airport list, and the clock.
type Generator struct {
	seed       uint64
	perAirport int
	scenarios  []Scenario
	clock      clockwork.Clock
	metrics    *observability.Metrics
}

// NewGenerator validates the scenarios and returns a generator. A nil clock
// means real time.
func NewGenerator(seed uint64, perAirport int, scenarios []Scenario, clock clockwork.Clock, metrics *observability.Metrics) (*Generator, error) {
	if perAirport <= 0 {
		return nil, fmt.Errorf("observations per airport must be positive, got %d", perAirport)
	}
	if len(scenarios) == 0 {
		return nil, errors.New("at least one weather scenario is required")
	}
	for _, s := range scenarios {
		if !s.TempC.valid() || !s.WindKt.valid() || !s.VisibilitySM.valid() {
			return nil, fmt.Errorf("scenario %q has an invalid range", s.Name)
		}
		if s.WindKt.Min < 0 || s.VisibilitySM.Min < 0 {
			return nil, fmt.Errorf("scenario %q has negative wind or visibility", s.Name)
		}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Generator{
		seed:       seed,
		perAirport: perAirport,
		scenarios:  append([]Scenario(nil), scenarios...),
		clock:      clock,
		metrics:    metrics,
	}, nil
}

// Observations returns perAirport observations for each distinct code, in
// first-seen order. Every call with the same inputs returns the same values.
func (g *Generator) Observations(ctx context.Context, codes []string) ([]domain.WeatherObservation, error) {
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	now := g.clock.Now().UTC()

	seen := make(map[string]struct{}, len(codes))
	var out []domain.WeatherObservation
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}

		for i := 0; i < g.perAirport; i++ {
			s := g.scenarios[rng.IntN(len(g.scenarios))]
			out = append(out, generate(rng, s, code, now))
		}
	}

	if g.metrics != nil {
		g.metrics.Observations.WithLabelValues("simulated").Add(float64(len(out)))
	}
	return out, nil
}

func generate(rng *rand.Rand, s Scenario, code string, now time.Time) domain.WeatherObservation {
	temp := round(uniform(rng, s.TempC), 1)
	dewpoint := round(temp-uniform(rng, Range{2, 8}), 1)
	wind := math.Round(uniform(rng, s.WindKt))
	direction := float64(rng.IntN(361))

	var gust *float64
	if rng.Float64() < gustProbability {
		gust = domain.Float64(wind + float64(5+rng.IntN(11)))
	}

	visibility := round(uniform(rng, s.VisibilitySM), 1)
	altimeter := round(uniform(rng, Range{29.5, 30.5}), 2)
	slp := round(uniform(rng, Range{1010, 1025}), 1)
	ts := now.Add(-time.Duration(rng.IntN(maxAgeHours+1)) * time.Hour)

	return domain.WeatherObservation{
		AirportCode:        code,
		Timestamp:          ts,
		TemperatureC:       domain.Float64(temp),
		DewpointC:          domain.Float64(dewpoint),
		WindSpeedKt:        domain.Float64(wind),
		WindDirectionDeg:   domain.Float64(direction),
		WindGustKt:         gust,
		VisibilitySM:       domain.Float64(visibility),
		AltimeterInHg:      domain.Float64(altimeter),
		SeaLevelPressureMb: domain.Float64(slp),
		PresentWeather:     s.PresentWeather,
		FlightCategory:     s.Category,
		Scenario:           s.Name,
	}
}

func uniform(rng *rand.Rand, r Range) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
