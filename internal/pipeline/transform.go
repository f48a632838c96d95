package pipeline

import (
	"errors"
	"log/slog"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
)

// estimateFuel runs the fuel estimator over every flight and counts the
// outcome of each.
func (p *Pipeline) estimateFuel(airports *domain.AirportIndex, flights []domain.Flight) ([]domain.FuelEstimate, error) {
	estimator := domain.NewFuelEstimator(airports, p.resolver, p.opts.CruiseSpeedKmh)
	estimates, err := estimator.EstimateAll(flights)
	if err != nil {
		return nil, err
	}
	for _, e := range estimates {
		p.metrics.FuelEstimates.WithLabelValues(estimateOutcome(airports, e)).Inc()
	}
	return estimates, nil
}

func estimateOutcome(airports *domain.AirportIndex, e domain.FuelEstimate) string {
	switch {
	case e.Resolved():
		return "resolved"
	case airports.Distance(e.Flight.DepAirport, e.Flight.ArrAirport) == nil:
		return "unresolved_airport"
	default:
		return "unresolved_aircraft"
	}
}

// buildFeatures joins each flight with the latest weather at both ends.
// Flights without a duration or with inputs the fuel model rejects are
// skipped and counted.
func (p *Pipeline) buildFeatures(logger *slog.Logger, airports *domain.AirportIndex, flights []domain.Flight, obs []domain.WeatherObservation) []domain.FeatureRow {
	rates := domain.NewWeatherRateTable(p.opts.WeatherRates, p.opts.DefaultFuelRate)
	builder := domain.NewFeatureBuilder(airports, rates, p.opts.ImpactScale, p.opts.CruiseSpeedKmh)
	latest := domain.LatestByAirport(obs)

	rows := make([]domain.FeatureRow, 0, len(flights))
	for _, f := range flights {
		row, err := builder.Build(f, latest)
		if err != nil {
			reason := "invalid_input"
			if errors.Is(err, domain.ErrMissingDuration) {
				reason = "missing_duration"
			}
			p.metrics.FeatureRowsSkipped.WithLabelValues(reason).Inc()
			logger.Debug("feature row skipped", "reason", reason, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	p.metrics.FeatureRows.Add(float64(len(rows)))
	if skipped := len(flights) - len(rows); skipped > 0 {
		logger.Warn("flights skipped from feature table", "skipped", skipped, "kept", len(rows))
	}
	return rows
}
