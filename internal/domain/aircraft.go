package domain

import "strings"

// NoInfoLabel marks an aircraft model that matched no fuel-rate entry.
const NoInfoLabel = "no info"

// manufacturerPrefixes are stripped from normalized model strings. "CANADAI-"
// covers the truncated "Canadair" spelling found in the source data.
var manufacturerPrefixes = []string{"CANADAI-", "BOMBARDIER-"}

// FuelRate is one entry of a cruise fuel-flow table.
type FuelRate struct {
	Pattern string
	KgPerHr float64
}

// FuelRateTable is an ordered list of model patterns. Order matters: the first
// matching pattern wins.
type FuelRateTable []FuelRate

// DefaultFuelRateTable returns the regional-jet cruise fuel flows in kg/h.
// A220 figures were published in L/h and are converted at 0.8 kg/L.
func DefaultFuelRateTable() FuelRateTable {
	return FuelRateTable{
		{Pattern: "CRJ-100", KgPerHr: 1800},
		{Pattern: "CRJ-200", KgPerHr: 1900},
		{Pattern: "CRJ-400", KgPerHr: 1850},
		{Pattern: "CRJ-700", KgPerHr: 1500},
		{Pattern: "CRJ-705", KgPerHr: 1600},
		{Pattern: "CRJ-900", KgPerHr: 1600},
		{Pattern: "CRJ-1000", KgPerHr: 1740},
		{Pattern: "A220-100", KgPerHr: 2600 * 0.8},
		{Pattern: "A220-300", KgPerHr: 2600 * 0.8},
	}
}

// RateResolver maps a raw aircraft model string to a cruise fuel flow.
type RateResolver interface {
	// Resolve returns the fuel flow in kg/h and a tracking label. Unresolved
	// models return a nil rate and NoInfoLabel.
	Resolve(model string) (*float64, string)
}

// Resolver implements RateResolver by fuzzy substring matching over a table.
type Resolver struct {
	table FuelRateTable
}

// NewResolver creates a Resolver. The table is copied so later changes by the
// caller do not affect matching.
func NewResolver(table FuelRateTable) *Resolver {
	t := make(FuelRateTable, len(table))
	copy(t, table)
	return &Resolver{table: t}
}

// NormalizeModel upper-cases the model, replaces spaces with hyphens, and
// removes known manufacturer prefixes.
func NormalizeModel(model string) string {
	s := strings.ToUpper(model)
	s = strings.ReplaceAll(s, " ", "-")
	for _, p := range manufacturerPrefixes {
		s = strings.ReplaceAll(s, p, "")
	}
	return s
}

// Resolve scans the table in order and returns the first pattern that is
// contained in the normalized model or contains it. The returned label is the
// original model string so callers can trace which input matched. A model
// that is empty once normalized matches nothing.
func (r *Resolver) Resolve(model string) (*float64, string) {
	norm := NormalizeModel(model)
	if strings.Trim(norm, "-") == "" {
		return nil, NoInfoLabel
	}
	for _, e := range r.table {
		if strings.Contains(norm, e.Pattern) || strings.Contains(e.Pattern, norm) {
			rate := e.KgPerHr
			return &rate, model
		}
	}
	return nil, NoInfoLabel
}
