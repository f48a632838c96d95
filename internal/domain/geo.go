package domain

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between a and b.
// Both points must carry real coordinates; callers resolve airports first.
func Haversine(a, b GeoPoint) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := lat2 - lat1
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h just outside [0,1] for antipodal points.
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
