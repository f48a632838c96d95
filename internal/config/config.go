package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Weather source modes.
const (
	WeatherSimulated = "simulated"
	WeatherLive      = "live"
	WeatherNone      = "none"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	AirportsPath string
	FlightsPath  string
	FlightsLimit int // 0 reads every row
	OutputDir    string
	WriteSplits  bool

	// Weather acquisition.
	WeatherSource      string
	WeatherAPIURL      string
	WeatherTimeout     time.Duration
	WeatherBatchSize   int
	WeatherBatchDelay  time.Duration
	WeatherHoursBack   int
	WeatherMaxAirports int
	WeatherICAOPrefix  string

	// Synthetic weather.
	SimSeed                   uint64
	SimObservationsPerAirport int

	// Fuel models.
	CruiseSpeedKmh    float64
	DefaultFuelRate   float64
	ImpactScale       float64
	SplitSeed         uint64
	ResolverCacheSize int

	// Optional sinks. Empty values disable them.
	SQLitePath         string
	KafkaBrokers       []string
	KafkaFeatureTopic  string
	BatchSize          int
	BatchFlushInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether feature rows should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AirportsPath:      sharedcfg.EnvOrDefault("AIRPORTS_PATH", "data/airports.csv"),
		FlightsPath:       sharedcfg.EnvOrDefault("FLIGHTS_PATH", "data/flights.csv"),
		OutputDir:         sharedcfg.EnvOrDefault("OUTPUT_DIR", "output"),
		WeatherSource:     strings.ToLower(sharedcfg.EnvOrDefault("WEATHER_SOURCE", WeatherSimulated)),
		WeatherAPIURL:     sharedcfg.EnvOrDefault("WEATHER_API_URL", "https://aviationweather.gov/api/data/metar"),
		WeatherICAOPrefix: strings.ToUpper(sharedcfg.EnvOrDefault("WEATHER_ICAO_PREFIX", "K")),
		SQLitePath:        os.Getenv("SQLITE_PATH"),
		KafkaFeatureTopic: sharedcfg.EnvOrDefault("KAFKA_FEATURE_TOPIC", "flight-weather-features"),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(raw)
	}

	p := parser{}
	cfg.FlightsLimit = p.int("FLIGHTS_LIMIT", 0, 0)
	cfg.WriteSplits = p.bool("WRITE_SPLITS", true)
	cfg.WeatherTimeout = p.duration("WEATHER_TIMEOUT", 30*time.Second, false)
	cfg.WeatherBatchSize = p.int("WEATHER_BATCH_SIZE", 20, 1)
	cfg.WeatherBatchDelay = p.duration("WEATHER_BATCH_DELAY", 2*time.Second, true)
	cfg.WeatherHoursBack = p.int("WEATHER_HOURS_BACK", 6, 1)
	cfg.WeatherMaxAirports = p.int("WEATHER_MAX_AIRPORTS", 100, 1)
	cfg.SimSeed = p.uint("SIM_SEED", 42)
	cfg.SimObservationsPerAirport = p.int("SIM_OBSERVATIONS_PER_AIRPORT", 3, 1)
	cfg.CruiseSpeedKmh = p.positiveFloat("CRUISE_SPEED_KMH", 850)
	cfg.DefaultFuelRate = p.positiveFloat("DEFAULT_FUEL_RATE", 1000)
	cfg.ImpactScale = p.positiveFloat("IMPACT_SCALE", 50)
	cfg.SplitSeed = p.uint("SPLIT_SEED", 42)
	cfg.ResolverCacheSize = p.int("RESOLVER_CACHE_SIZE", 256, 1)
	if p.err != nil {
		return nil, p.err
	}

	switch cfg.WeatherSource {
	case WeatherSimulated, WeatherLive, WeatherNone:
	default:
		return nil, fmt.Errorf("invalid WEATHER_SOURCE %q: want simulated, live, or none", cfg.WeatherSource)
	}
	if cfg.AirportsPath == "" {
		return nil, errors.New("AIRPORTS_PATH is required")
	}
	if cfg.FlightsPath == "" {
		return nil, errors.New("FLIGHTS_PATH is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.WeatherSource == WeatherLive && cfg.WeatherAPIURL == "" {
		return nil, errors.New("WEATHER_SOURCE is live but WEATHER_API_URL is not set")
	}
	if cfg.KafkaEnabled() && cfg.KafkaFeatureTopic == "" {
		return nil, errors.New("KAFKA_FEATURE_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// parser reads typed env vars and keeps the first error, naming the variable.
type parser struct {
	err error
}

func (p *parser) fail(key, raw, want string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %s", key, raw, want)
	}
}

func (p *parser) int(key string, def, min int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		p.fail(key, raw, fmt.Sprintf("want an integer >= %d", min))
		return def
	}
	return n
}

func (p *parser) uint(key string, def uint64) uint64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		p.fail(key, raw, "want a non-negative integer")
		return def
	}
	return n
}

func (p *parser) positiveFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(f > 0) || f > 1e12 {
		p.fail(key, raw, "want a positive number")
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, "want true or false")
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration, allowZero bool) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		p.fail(key, raw, "want a positive duration")
		return def
	}
	return d
}
