// Command fuelest runs the fuel estimation and weather feature pipeline once
// over the configured input tables and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/aviationweather"
	httpadapter "github.com/couchcryptid/flight-fuel-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flight-fuel-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/simweather"
	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/tables"
	"github.com/couchcryptid/flight-fuel-etl/internal/config"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
	"github.com/couchcryptid/flight-fuel-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("pipeline failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	weather, err := newWeatherSource(cfg, logger, metrics)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := newSinks(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeSinks()

	p := pipeline.New(pipelineOptions(cfg), weather, sinks, logger, metrics)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	in, err := loadInput(cfg, logger)
	if err != nil {
		return err
	}

	if _, err := p.Run(ctx, in); err != nil {
		return err
	}
	logger.Info("outputs written", "dir", cfg.OutputDir)
	return nil
}

func loadInput(cfg *config.Config, logger *slog.Logger) (pipeline.Input, error) {
	airports, skipped, err := tables.ReadAirportsFile(cfg.AirportsPath)
	if err != nil {
		return pipeline.Input{}, err
	}
	if skipped > 0 {
		logger.Warn("airport rows skipped", "path", cfg.AirportsPath, "skipped", skipped)
	}

	flights, err := tables.ReadFlightsFile(cfg.FlightsPath, cfg.FlightsLimit)
	if err != nil {
		return pipeline.Input{}, err
	}
	logger.Info("input tables loaded", "airports", len(airports), "flights", len(flights))
	return pipeline.Input{Airports: airports, Flights: flights}, nil
}

func newWeatherSource(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (pipeline.WeatherSource, error) {
	switch cfg.WeatherSource {
	case config.WeatherLive:
		logger.Info("live weather enabled", "url", cfg.WeatherAPIURL, "batch_size", cfg.WeatherBatchSize, "batch_delay", cfg.WeatherBatchDelay)
		return aviationweather.NewClient(aviationweather.Options{
			BaseURL:     cfg.WeatherAPIURL,
			Timeout:     cfg.WeatherTimeout,
			BatchSize:   cfg.WeatherBatchSize,
			BatchDelay:  cfg.WeatherBatchDelay,
			HoursBack:   cfg.WeatherHoursBack,
			MaxAirports: cfg.WeatherMaxAirports,
			ICAOPrefix:  cfg.WeatherICAOPrefix,
		}, metrics, logger), nil
	case config.WeatherSimulated:
		logger.Info("simulated weather enabled", "seed", cfg.SimSeed, "per_airport", cfg.SimObservationsPerAirport)
		gen, err := simweather.NewGenerator(cfg.SimSeed, cfg.SimObservationsPerAirport, simweather.DefaultScenarios(), nil, metrics)
		if err != nil {
			return nil, fmt.Errorf("simulated weather: %w", err)
		}
		return gen, nil
	default:
		logger.Info("weather disabled")
		return nil, nil
	}
}

// newSinks builds the CSV writer plus the optional SQLite and Kafka sinks.
// The returned func closes whatever was opened.
func newSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) ([]pipeline.Sink, func(), error) {
	sinks := []pipeline.Sink{tables.NewWriter(cfg.OutputDir, cfg.WriteSplits, metrics, logger)}
	var closers []func() error

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("sink close error", "error", err)
			}
		}
	}

	if cfg.SQLitePath != "" {
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, db.Close)
		store := sqlite.NewStore(db, metrics, logger)
		if err := store.Migrate(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, store)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, metrics, logger)
		closers = append(closers, writer.Close)
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaFeatureTopic)
	}

	return sinks, closeAll, nil
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		CruiseSpeedKmh:    cfg.CruiseSpeedKmh,
		DefaultFuelRate:   cfg.DefaultFuelRate,
		ImpactScale:       cfg.ImpactScale,
		SplitSeed:         cfg.SplitSeed,
		ResolverCacheSize: cfg.ResolverCacheSize,
	}
}
