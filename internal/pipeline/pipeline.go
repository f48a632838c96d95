// Package pipeline runs the fuel estimation and weather feature stages once
// over a set of input tables and hands the result to the configured sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
)

// WeatherSource returns observations for a set of airport codes.
type WeatherSource interface {
	Observations(ctx context.Context, codes []string) ([]domain.WeatherObservation, error)
}

// Sink persists a completed run.
type Sink interface {
	Name() string
	Write(ctx context.Context, run *domain.Run) error
}

// Input is the reference data for one run.
type Input struct {
	Airports []domain.Airport
	Flights  []domain.Flight
}

// Options holds the model parameters of a run.
type Options struct {
	CruiseSpeedKmh    float64
	DefaultFuelRate   float64
	ImpactScale       float64
	SplitSeed         uint64
	ResolverCacheSize int
	FuelRates         domain.FuelRateTable
	WeatherRates      map[string]float64
}

func (o Options) withDefaults() Options {
	if o.CruiseSpeedKmh <= 0 {
		o.CruiseSpeedKmh = domain.DefaultCruiseSpeedKmh
	}
	if o.DefaultFuelRate <= 0 {
		o.DefaultFuelRate = domain.DefaultFuelRateKgPerHr
	}
	if o.ImpactScale <= 0 {
		o.ImpactScale = domain.DefaultImpactScale
	}
	if o.ResolverCacheSize <= 0 {
		o.ResolverCacheSize = 256
	}
	if o.FuelRates == nil {
		o.FuelRates = domain.DefaultFuelRateTable()
	}
	if o.WeatherRates == nil {
		o.WeatherRates = domain.DefaultWeatherRates()
	}
	return o
}

// Pipeline orchestrates estimate, weather, features, splits, and sinks.
type Pipeline struct {
	opts     Options
	resolver domain.RateResolver
	weather  WeatherSource
	sinks    []Sink
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline. A nil weather source runs every flight with neutral
// weather.
func New(opts Options, weather WeatherSource, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{
		opts:     opts,
		resolver: domain.NewCachedResolver(domain.NewResolver(opts.FuelRates), opts.ResolverCacheSize),
		weather:  weather,
		sinks:    sinks,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
}

// WithClock replaces the clock used for run timestamps and stage timings.
func (p *Pipeline) WithClock(c clockwork.Clock) *Pipeline {
	p.clock = c
	return p
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Run executes every stage once and writes the result to each sink. Sink
// failures do not stop the remaining sinks; they are joined into the
// returned error.
func (p *Pipeline) Run(ctx context.Context, in Input) (run *domain.Run, err error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		p.metrics.Runs.WithLabelValues(outcome).Inc()
	}()

	run = &domain.Run{ID: uuid.NewString(), StartedAt: p.clock.Now()}
	logger := p.logger.With("run_id", run.ID)
	logger.Info("pipeline started", "flights", len(in.Flights), "airports", len(in.Airports))
	p.metrics.FlightsLoaded.Add(float64(len(in.Flights)))

	airports := domain.NewAirportIndex(in.Airports)

	if err := p.stage("estimate", func() (err error) {
		run.Estimates, err = p.estimateFuel(airports, in.Flights)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage("weather", func() (err error) {
		run.Observations, err = p.fetchWeather(ctx, logger, in.Flights)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage("features", func() error {
		run.Features = p.buildFeatures(logger, airports, in.Flights, run.Observations)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.stage("split", func() error {
		return p.split(run)
	}); err != nil {
		return nil, err
	}

	if err := p.stage("sinks", func() error {
		return p.writeSinks(ctx, logger, run)
	}); err != nil {
		return run, err
	}

	p.ready.Store(true)
	logger.Info("pipeline finished",
		"estimates", len(run.Estimates),
		"resolved", len(domain.ResolvedEstimates(run.Estimates)),
		"observations", len(run.Observations),
		"features", len(run.Features),
		"duration", p.clock.Since(run.StartedAt),
	)
	return run, nil
}

func (p *Pipeline) stage(name string, fn func() error) error {
	start := p.clock.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(name).Observe(p.clock.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}
	return nil
}

// fetchWeather asks the source for every airport the flights touch. Provider
// errors leave the run with whatever was returned; cancellation aborts it.
func (p *Pipeline) fetchWeather(ctx context.Context, logger *slog.Logger, flights []domain.Flight) ([]domain.WeatherObservation, error) {
	if p.weather == nil {
		logger.Info("weather source disabled, using neutral weather")
		return nil, nil
	}
	codes := airportCodes(flights)
	obs, err := p.weather.Observations(ctx, codes)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("weather source failed, continuing with partial observations",
			"error", err, "observations", len(obs))
	}
	logger.Info("weather fetched", "airports", len(codes), "observations", len(obs))
	return obs, nil
}

func (p *Pipeline) split(run *domain.Run) error {
	var err error
	run.FuelSplit, err = domain.SplitDataset(len(domain.ResolvedEstimates(run.Estimates)), domain.FuelEstimateSplit, p.opts.SplitSeed)
	if err != nil {
		return fmt.Errorf("fuel estimate split: %w", err)
	}
	run.WeatherSplit, err = domain.SplitDataset(len(run.Features), domain.WeatherEnhancedSplit, p.opts.SplitSeed)
	if err != nil {
		return fmt.Errorf("weather feature split: %w", err)
	}
	return nil
}

func (p *Pipeline) writeSinks(ctx context.Context, logger *slog.Logger, run *domain.Run) error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Write(ctx, run); err != nil {
			logger.Error("sink write failed", "sink", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			continue
		}
		logger.Debug("sink write complete", "sink", s.Name())
	}
	return errors.Join(errs...)
}

// airportCodes returns the distinct departure and arrival codes in order of
// first appearance.
func airportCodes(flights []domain.Flight) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, f := range flights {
		for _, c := range []string{f.DepAirport, f.ArrAirport} {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			codes = append(codes, c)
		}
	}
	return codes
}
