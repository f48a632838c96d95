package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// ErrMissingDuration is returned when a flight has no duration, so no fuel
// target can be computed for it.
var ErrMissingDuration = errors.New("flight duration missing")

// FeatureColumns lists the model input columns in output order.
var FeatureColumns = []string{
	"Flight_Duration",
	"Estimated_Distance_km",
	"Dep_Delay",
	"Arr_Delay",
	"origin_temperature_c",
	"dest_temperature_c",
	"temp_diff_c",
	"origin_wind_speed_kt",
	"dest_wind_speed_kt",
	"avg_wind_impact",
	"origin_visibility_sm",
	"dest_visibility_sm",
	"avg_visibility_impact",
	"origin_flight_category_impact",
	"dest_flight_category_impact",
	"avg_flight_category_impact",
	"pressure_diff_mb",
	"total_weather_impact",
	"comprehensive_weather_impact",
	"Fuel_Rate_kg_per_hour",
	"Aicraft_age",
}

// TargetColumn is the regression target of the weather-enhanced model.
const TargetColumn = "Extra_Fuel_kg"

// FeatureRow is one flight joined with origin and destination weather, its
// impact scores, and the weather-adjusted fuel model outputs.
type FeatureRow struct {
	Flight      Flight              `json:"flight"`
	DistanceKm  *float64            `json:"estimated_distance_km,omitempty"`
	Origin      *WeatherObservation `json:"origin_weather,omitempty"`
	Dest        *WeatherObservation `json:"dest_weather,omitempty"`
	Impact      WeatherImpact       `json:"impact"`
	Fuel        FuelAdjustment      `json:"fuel"`
	RunID       string              `json:"run_id,omitempty"`
	ProcessedAt time.Time           `json:"processed_at"`
}

// Vector returns the row's feature values in FeatureColumns order. Nil entries
// are missing values.
func (r FeatureRow) Vector() []*float64 {
	obsField := func(o *WeatherObservation, f func(*WeatherObservation) *float64) *float64 {
		if o == nil {
			return nil
		}
		return f(o)
	}
	temp := func(o *WeatherObservation) *float64 { return o.TemperatureC }
	wind := func(o *WeatherObservation) *float64 { return o.WindSpeedKt }
	vis := func(o *WeatherObservation) *float64 { return o.VisibilitySM }

	return []*float64{
		r.Flight.DurationMin,
		r.DistanceKm,
		r.Flight.DepDelay,
		r.Flight.ArrDelay,
		obsField(r.Origin, temp),
		obsField(r.Dest, temp),
		Float64(r.Impact.TempDiffC),
		obsField(r.Origin, wind),
		obsField(r.Dest, wind),
		Float64(r.Impact.AvgWindImpact),
		obsField(r.Origin, vis),
		obsField(r.Dest, vis),
		Float64(r.Impact.AvgVisibilityImpact),
		Float64(CategoryImpact(r.Origin)),
		Float64(CategoryImpact(r.Dest)),
		Float64(r.Impact.AvgFlightCategoryImpact),
		Float64(r.Impact.PressureDiffMb),
		Float64(r.Impact.TotalImpact),
		Float64(r.Impact.ComprehensiveImpact),
		Float64(r.Fuel.FuelRateKgPerHr),
		r.Flight.AircraftAge,
	}
}

// FeatureBuilder joins flights with weather and computes the training target.
type FeatureBuilder struct {
	airports       *AirportIndex
	rates          *WeatherRateTable
	impactScale    float64
	cruiseSpeedKmh float64
}

// NewFeatureBuilder creates a builder. When the airport index is empty the
// distance feature falls back to duration × cruise speed.
func NewFeatureBuilder(airports *AirportIndex, rates *WeatherRateTable, impactScale, cruiseSpeedKmh float64) *FeatureBuilder {
	if cruiseSpeedKmh <= 0 {
		cruiseSpeedKmh = DefaultCruiseSpeedKmh
	}
	return &FeatureBuilder{
		airports:       airports,
		rates:          rates,
		impactScale:    impactScale,
		cruiseSpeedKmh: cruiseSpeedKmh,
	}
}

// Build produces the feature row for one flight. weather is keyed by upper-case
// airport code, as returned by LatestByAirport. Observations are matched by
// airport code only, not by time.
func (b *FeatureBuilder) Build(f Flight, weather map[string]WeatherObservation) (FeatureRow, error) {
	if f.DurationMin == nil {
		return FeatureRow{}, fmt.Errorf("%w: tail %q on %s", ErrMissingDuration, f.TailNumber, f.Date)
	}

	row := FeatureRow{
		Flight:      f,
		Origin:      lookupWeather(weather, f.DepAirport),
		Dest:        lookupWeather(weather, f.ArrAirport),
		ProcessedAt: clock.Now(),
	}

	if b.airports.Len() > 0 {
		row.DistanceKm = b.airports.Distance(f.DepAirport, f.ArrAirport)
	} else {
		row.DistanceKm = Float64(*f.DurationMin * b.cruiseSpeedKmh / 60)
	}

	row.Impact = ScoreFlight(row.Origin, row.Dest)

	rate, _ := b.rates.Rate(f.Model)
	adj, err := AdjustFuel(rate, *f.DurationMin, row.Impact.ComprehensiveImpact, b.impactScale)
	if err != nil {
		return FeatureRow{}, fmt.Errorf("adjust fuel for tail %q: %w", f.TailNumber, err)
	}
	row.Fuel = adj
	return row, nil
}

func lookupWeather(weather map[string]WeatherObservation, code string) *WeatherObservation {
	o, ok := weather[normalizeCode(code)]
	if !ok {
		return nil
	}
	return &o
}

// ImputeMedians returns the dense feature matrix for rows, replacing missing
// values with the median of the column's present values. Columns with no
// present values are filled with 0.
func ImputeMedians(rows []FeatureRow) [][]float64 {
	vectors := make([][]*float64, len(rows))
	for i := range rows {
		vectors[i] = rows[i].Vector()
	}

	medians := make([]float64, len(FeatureColumns))
	for col := range FeatureColumns {
		present := make([]float64, 0, len(rows))
		for _, v := range vectors {
			if v[col] != nil && !math.IsNaN(*v[col]) {
				present = append(present, *v[col])
			}
		}
		medians[col] = median(present)
	}

	out := make([][]float64, len(rows))
	for i, v := range vectors {
		dense := make([]float64, len(FeatureColumns))
		for col, p := range v {
			if p == nil || math.IsNaN(*p) {
				dense[col] = medians[col]
				continue
			}
			dense[col] = *p
		}
		out[i] = dense
	}
	return out
}

// Targets returns the extra-fuel target for each row.
func Targets(rows []FeatureRow) []float64 {
	out := make([]float64, len(rows))
	for i := range rows {
		out[i] = rows[i].Fuel.ExtraFuelKg
	}
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := slices.Clone(values)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
