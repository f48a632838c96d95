package domain

import (
	"errors"
	"strings"
)

var (
	// ErrMissingColumn is returned when a required input table column is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrPartialEstimate is returned when a fuel estimate would carry some but
	// not all of its numeric fields.
	ErrPartialEstimate = errors.New("partial fuel estimate")

	// ErrNegativeExtraFuel is returned when the weather adjustment would produce
	// a negative extra-fuel target.
	ErrNegativeExtraFuel = errors.New("negative extra fuel")

	// ErrInvalidFuelInput is returned for negative or non-finite fuel model inputs.
	ErrInvalidFuelInput = errors.New("invalid fuel model input")
)

// GeoPoint is a WGS-84 latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies inside the latitude and longitude ranges.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Airport is a reference-table row: an IATA or ICAO code and its location.
type Airport struct {
	Code     string
	Location GeoPoint
}

// AirportIndex resolves airport codes to locations. Codes are case-insensitive.
type AirportIndex struct {
	byCode map[string]GeoPoint
}

// NewAirportIndex builds an index from reference rows. Later rows with the same
// code replace earlier ones; rows with empty codes or out-of-range coordinates
// are ignored.
func NewAirportIndex(airports []Airport) *AirportIndex {
	idx := &AirportIndex{byCode: make(map[string]GeoPoint, len(airports))}
	for _, a := range airports {
		code := normalizeCode(a.Code)
		if code == "" || !a.Location.Valid() {
			continue
		}
		idx.byCode[code] = a.Location
	}
	return idx
}

// Lookup returns the location for code. ok is false when the code is unknown.
func (idx *AirportIndex) Lookup(code string) (GeoPoint, bool) {
	if idx == nil {
		return GeoPoint{}, false
	}
	p, ok := idx.byCode[normalizeCode(code)]
	return p, ok
}

// Len returns the number of indexed airports.
func (idx *AirportIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byCode)
}

// Distance returns the great-circle distance between two airports, or nil when
// either code is unresolved.
func (idx *AirportIndex) Distance(from, to string) *float64 {
	a, ok := idx.Lookup(from)
	if !ok {
		return nil
	}
	b, ok := idx.Lookup(to)
	if !ok {
		return nil
	}
	d := Haversine(a, b)
	return &d
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Flight is one observed flight from the input table.
type Flight struct {
	Date         string   `json:"flight_date"`
	TailNumber   string   `json:"tail_number"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	DepAirport   string   `json:"dep_airport"`
	ArrAirport   string   `json:"arr_airport"`
	DurationMin  *float64 `json:"flight_duration,omitempty"`
	DepDelay     *float64 `json:"dep_delay,omitempty"`
	ArrDelay     *float64 `json:"arr_delay,omitempty"`
	AircraftAge  *float64 `json:"aircraft_age,omitempty"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// valueOr dereferences p, returning def when p is nil.
func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
