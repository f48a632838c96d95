package domain

import (
	"fmt"
	"math"
)

// DefaultCruiseSpeedKmh is the assumed jet cruise speed used to turn distance
// into flight time.
const DefaultCruiseSpeedKmh = 850.0

// FuelEstimate is the distance-based fuel estimate for one flight. Either all
// three numeric fields are set or none is; use NewFuelEstimate to build one.
type FuelEstimate struct {
	Flight          Flight   `json:"flight"`
	AircraftLabel   string   `json:"aircraft_type_info"`
	DistanceKm      *float64 `json:"estimated_distance_km"`
	FuelFlowKgPerHr *float64 `json:"estimated_cruise_fuel_flow_kghr"`
	TotalFuelKg     *float64 `json:"estimated_total_fuel_kg"`
}

// Resolved reports whether the estimate carries numeric fields.
func (e FuelEstimate) Resolved() bool {
	return e.TotalFuelKg != nil
}

// NewFuelEstimate validates the all-or-nothing invariant and returns the estimate.
func NewFuelEstimate(f Flight, label string, distanceKm, fuelFlow, totalFuel *float64) (FuelEstimate, error) {
	set := 0
	for _, p := range []*float64{distanceKm, fuelFlow, totalFuel} {
		if p != nil {
			set++
		}
	}
	if set != 0 && set != 3 {
		return FuelEstimate{}, fmt.Errorf("%w: %d of 3 fields set for tail %q", ErrPartialEstimate, set, f.TailNumber)
	}
	return FuelEstimate{
		Flight:          f,
		AircraftLabel:   label,
		DistanceKm:      distanceKm,
		FuelFlowKgPerHr: fuelFlow,
		TotalFuelKg:     totalFuel,
	}, nil
}

// FlightTimeHours converts distance to flight time at the given cruise speed.
// Zero distance or a non-positive speed yields zero hours.
func FlightTimeHours(distanceKm, cruiseSpeedKmh float64) float64 {
	if distanceKm == 0 || cruiseSpeedKmh <= 0 {
		return 0
	}
	return distanceKm / cruiseSpeedKmh
}

// TotalFuel returns the fuel burned over the distance, or nil when either input
// is unresolved.
func TotalFuel(fuelFlowKgPerHr, distanceKm *float64, cruiseSpeedKmh float64) *float64 {
	if fuelFlowKgPerHr == nil || distanceKm == nil {
		return nil
	}
	total := *fuelFlowKgPerHr * FlightTimeHours(*distanceKm, cruiseSpeedKmh)
	return &total
}

// FuelEstimator turns flights into fuel estimates using airport coordinates and
// a fuel-rate resolver.
type FuelEstimator struct {
	airports       *AirportIndex
	resolver       RateResolver
	cruiseSpeedKmh float64
}

// NewFuelEstimator creates an estimator. A non-positive cruise speed falls back
// to DefaultCruiseSpeedKmh.
func NewFuelEstimator(airports *AirportIndex, resolver RateResolver, cruiseSpeedKmh float64) *FuelEstimator {
	if cruiseSpeedKmh <= 0 || math.IsNaN(cruiseSpeedKmh) {
		cruiseSpeedKmh = DefaultCruiseSpeedKmh
	}
	return &FuelEstimator{
		airports:       airports,
		resolver:       resolver,
		cruiseSpeedKmh: cruiseSpeedKmh,
	}
}

// Estimate computes the fuel estimate for one flight. Unresolved airports skip
// the aircraft lookup entirely; an unresolved aircraft drops the distance so
// the estimate stays all-or-nothing.
func (e *FuelEstimator) Estimate(f Flight) (FuelEstimate, error) {
	distance := e.airports.Distance(f.DepAirport, f.ArrAirport)
	if distance == nil {
		return NewFuelEstimate(f, NoInfoLabel, nil, nil, nil)
	}

	rate, label := e.resolver.Resolve(f.Model)
	if rate == nil {
		return NewFuelEstimate(f, label, nil, nil, nil)
	}

	return NewFuelEstimate(f, label, distance, rate, TotalFuel(rate, distance, e.cruiseSpeedKmh))
}

// EstimateAll maps every flight to an estimate, preserving order.
func (e *FuelEstimator) EstimateAll(flights []Flight) ([]FuelEstimate, error) {
	out := make([]FuelEstimate, 0, len(flights))
	for i := range flights {
		est, err := e.Estimate(flights[i])
		if err != nil {
			return nil, fmt.Errorf("estimate flight %d: %w", i, err)
		}
		out = append(out, est)
	}
	return out, nil
}
