package domain

import "math"

// Neutral defaults applied when an observation omits a field.
const (
	defaultWindKt       = 0.0
	defaultVisibilitySM = 10.0
)

// WeatherImpact is the flight-level weather scoring derived from the origin and
// destination observations.
type WeatherImpact struct {
	OriginSeverity          float64 `json:"origin_weather_severity"`
	DestSeverity            float64 `json:"dest_weather_severity"`
	TotalImpact             float64 `json:"total_weather_impact"`
	ComprehensiveImpact     float64 `json:"comprehensive_weather_impact"`
	TempDiffC               float64 `json:"temp_diff_c"`
	PressureDiffMb          float64 `json:"pressure_diff_mb"`
	AvgWindImpact           float64 `json:"avg_wind_impact"`
	AvgVisibilityImpact     float64 `json:"avg_visibility_impact"`
	AvgFlightCategoryImpact float64 `json:"avg_flight_category_impact"`
}

// WindImpact returns the reported wind speed, or 0 when unknown.
func WindImpact(obs *WeatherObservation) float64 {
	if obs == nil {
		return defaultWindKt
	}
	return finiteOr(valueOr(obs.WindSpeedKt, defaultWindKt), defaultWindKt)
}

// VisibilityImpact returns 10 minus the reported visibility; unknown
// visibility counts as 10 statute miles and scores 0.
func VisibilityImpact(obs *WeatherObservation) float64 {
	if obs == nil {
		return 0
	}
	vis := finiteOr(valueOr(obs.VisibilitySM, defaultVisibilitySM), defaultVisibilitySM)
	return defaultVisibilitySM - vis
}

// CategoryImpact returns the numeric flight-category impact, 0 when unknown.
func CategoryImpact(obs *WeatherObservation) float64 {
	if obs == nil {
		return 0
	}
	return obs.FlightCategory.Impact()
}

// Severity scores a single airport observation. A nil observation scores 0.
func Severity(obs *WeatherObservation) float64 {
	precip := 0.0
	if obs != nil && obs.PresentWeather != "" {
		precip = 1
	}
	return 0.3*WindImpact(obs) + 0.4*VisibilityImpact(obs) + 0.3*precip
}

// ScoreFlight combines origin and destination observations into flight-level
// impact metrics. Either observation may be nil; missing inputs default to
// neutral values so every returned field is finite.
func ScoreFlight(origin, dest *WeatherObservation) WeatherImpact {
	imp := WeatherImpact{
		OriginSeverity: Severity(origin),
		DestSeverity:   Severity(dest),
	}
	imp.TotalImpact = imp.OriginSeverity + imp.DestSeverity

	imp.AvgWindImpact = (WindImpact(origin) + WindImpact(dest)) / 2
	imp.AvgVisibilityImpact = (VisibilityImpact(origin) + VisibilityImpact(dest)) / 2
	imp.AvgFlightCategoryImpact = (CategoryImpact(origin) + CategoryImpact(dest)) / 2

	imp.TempDiffC = diff(origin, dest, func(o *WeatherObservation) *float64 { return o.TemperatureC })
	imp.PressureDiffMb = diff(origin, dest, func(o *WeatherObservation) *float64 { return o.SeaLevelPressureMb })

	imp.ComprehensiveImpact = 0.25*imp.AvgWindImpact +
		0.25*imp.AvgVisibilityImpact +
		0.30*imp.AvgFlightCategoryImpact +
		0.10*math.Abs(imp.TempDiffC) +
		0.10*math.Abs(imp.PressureDiffMb)
	return imp
}

// diff returns dest minus origin for the selected field, or 0 when either side
// is missing.
func diff(origin, dest *WeatherObservation, field func(*WeatherObservation) *float64) float64 {
	if origin == nil || dest == nil {
		return 0
	}
	o, d := field(origin), field(dest)
	if o == nil || d == nil {
		return 0
	}
	return finiteOr(*d-*o, 0)
}

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
