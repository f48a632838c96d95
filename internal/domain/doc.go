// Package domain models per-flight fuel estimation and weather impact scoring.
//
// # Data Sources
//
// Flight records come from the BTS-derived "US flights" CSV extract, one row per
// flight with the aircraft manufacturer and free-text model. Airport coordinates
// come from a geolocation table keyed by IATA code. Weather observations come
// either from the Aviation Weather Center METAR API or from the synthetic
// scenario generator; both produce [WeatherObservation] values of the same shape.
//
// # Fuel Estimation
//
// Distance is the haversine great-circle distance on a sphere of radius 6371 km.
// The aircraft model is normalized (upper-cased, spaces replaced by hyphens,
// manufacturer prefixes removed) and matched against an ordered table of cruise
// fuel flows:
//
//	"Bombardier CRJ-900"  →  "CRJ-900"  →  1600 kg/h
//	"CANADAIR CRJ 200"    →  "CANADAIR-CRJ-200"  →  1900 kg/h (key "CRJ-200" is a substring)
//
// Matching is bidirectional substring containment and the first table entry
// that matches wins. Ties are decided by table order, not by match quality.
//
// Flight time assumes a cruise speed of 850 km/h:
//
//	total_fuel_kg = fuel_flow_kg_per_hr × distance_km / 850
//
// Unresolved airports or aircraft produce an estimate with no numeric fields at
// all. Partially populated estimates are rejected by [NewFuelEstimate].
//
// # Weather Severity
//
// Per-airport severity:
//
//	0.3 × wind_kt + 0.4 × (10 − visibility_sm) + 0.3 × [present weather reported]
//
// Missing wind defaults to 0 and missing visibility to 10 statute miles, so an
// airport without data scores 0.
//
// Flight-level comprehensive impact averages origin and destination:
//
//	0.25 × avg(wind) + 0.25 × avg(visibility impact) + 0.30 × avg(category impact)
//	+ 0.10 × |Δtemperature| + 0.10 × |Δsea-level pressure|
//
// Flight categories map VFR=0, MVFR=1, IFR=2, LIFR=3, anything else 0.
//
// # Weather-Adjusted Fuel
//
//	baseline = rate_kg_per_hr × duration_min / 60
//	factor   = 1 + comprehensive_impact / 50
//	extra    = baseline × factor − baseline
//
// The factor is not clamped. Weather is joined to flights by airport code only;
// the observation time is not aligned with the flight time.
package domain
