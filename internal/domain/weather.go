package domain

import (
	"strings"
	"time"
)

// FlightCategory is the aviation ceiling/visibility class of an observation.
type FlightCategory string

const (
	CategoryVFR     FlightCategory = "VFR"
	CategoryMVFR    FlightCategory = "MVFR"
	CategoryIFR     FlightCategory = "IFR"
	CategoryLIFR    FlightCategory = "LIFR"
	CategoryUnknown FlightCategory = ""
)

// ParseFlightCategory maps provider strings to a category. Anything other than
// the four known classes is CategoryUnknown.
func ParseFlightCategory(s string) FlightCategory {
	switch c := FlightCategory(strings.ToUpper(strings.TrimSpace(s))); c {
	case CategoryVFR, CategoryMVFR, CategoryIFR, CategoryLIFR:
		return c
	default:
		return CategoryUnknown
	}
}

// Impact returns the numeric severity of the category: VFR 0, MVFR 1, IFR 2,
// LIFR 3, unknown 0.
func (c FlightCategory) Impact() float64 {
	switch c {
	case CategoryMVFR:
		return 1
	case CategoryIFR:
		return 2
	case CategoryLIFR:
		return 3
	default:
		return 0
	}
}

// WeatherObservation is one METAR-style report for an airport. Numeric fields
// are nil when the provider did not report them.
type WeatherObservation struct {
	AirportCode        string         `json:"airport_code"`
	Timestamp          time.Time      `json:"timestamp"`
	TemperatureC       *float64       `json:"temperature_c,omitempty"`
	DewpointC          *float64       `json:"dewpoint_c,omitempty"`
	WindSpeedKt        *float64       `json:"wind_speed_kt,omitempty"`
	WindDirectionDeg   *float64       `json:"wind_direction_deg,omitempty"`
	WindGustKt         *float64       `json:"wind_gust_kt,omitempty"`
	VisibilitySM       *float64       `json:"visibility_sm,omitempty"`
	AltimeterInHg      *float64       `json:"altimeter_in_hg,omitempty"`
	SeaLevelPressureMb *float64       `json:"sea_level_pressure_mb,omitempty"`
	PresentWeather     string         `json:"present_weather"`
	FlightCategory     FlightCategory `json:"flight_category"`
	RawText            string         `json:"raw_text,omitempty"`
	Scenario           string         `json:"scenario,omitempty"` // synthetic observations only
}

// LatestByAirport keeps one observation per airport code: the most recent one,
// with ties going to the first seen. Codes are upper-cased.
func LatestByAirport(obs []WeatherObservation) map[string]WeatherObservation {
	out := make(map[string]WeatherObservation, len(obs))
	for _, o := range obs {
		code := normalizeCode(o.AirportCode)
		if code == "" {
			continue
		}
		if cur, ok := out[code]; ok && !o.Timestamp.After(cur.Timestamp) {
			continue
		}
		out[code] = o
	}
	return out
}
