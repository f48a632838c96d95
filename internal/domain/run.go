package domain

import "time"

// Run is the complete output of one pipeline pass. FuelSplit indexes into
// ResolvedEstimates(Estimates); WeatherSplit indexes into Features.
type Run struct {
	ID           string
	StartedAt    time.Time
	Estimates    []FuelEstimate
	Observations []WeatherObservation
	Features     []FeatureRow
	FuelSplit    Split
	WeatherSplit Split
}

// ResolvedEstimates returns the estimates that carry numeric fields, in order.
func ResolvedEstimates(estimates []FuelEstimate) []FuelEstimate {
	out := make([]FuelEstimate, 0, len(estimates))
	for _, e := range estimates {
		if e.Resolved() {
			out = append(out, e)
		}
	}
	return out
}
