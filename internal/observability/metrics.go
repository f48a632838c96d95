package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fuel_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a pipeline run.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	Runs            *prometheus.CounterVec   // labels: outcome={success,error}
	StageDuration   *prometheus.HistogramVec // labels: stage

	// Fuel estimation.
	FlightsLoaded prometheus.Counter
	FuelEstimates *prometheus.CounterVec // labels: outcome={resolved,unresolved_airport,unresolved_aircraft}

	// Weather acquisition.
	WeatherBatches      *prometheus.CounterVec // labels: outcome={success,empty,error}
	WeatherAPIDuration  prometheus.Histogram
	Observations        *prometheus.CounterVec // labels: source={live,simulated}
	ObservationsSkipped prometheus.Counter

	// Feature table and sinks.
	FeatureRows        prometheus.Counter
	FeatureRowsSkipped *prometheus.CounterVec // labels: reason={missing_duration,invalid_input}
	RowsWritten        *prometheus.CounterVec // labels: sink={csv,sqlite,kafka}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		FlightsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_loaded_total",
			Help:      "Flights read from the input table.",
		}),
		FuelEstimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fuel_estimates_total",
			Help:      "Fuel estimates by resolution outcome.",
		}, []string{"outcome"}),
		WeatherBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_batches_total",
			Help:      "Weather provider batch requests by outcome.",
		}, []string{"outcome"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Weather provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_observations_total",
			Help:      "Normalized weather observations by source.",
		}, []string{"source"}),
		ObservationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_observations_skipped_total",
			Help:      "Provider records dropped as malformed.",
		}),
		FeatureRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_rows_total",
			Help:      "Rows added to the weather feature table.",
		}),
		FeatureRowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_rows_skipped_total",
			Help:      "Flights left out of the feature table by reason.",
		}, []string{"reason"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written by sink.",
		}, []string{"sink"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.Runs,
		m.StageDuration,
		m.FlightsLoaded,
		m.FuelEstimates,
		m.WeatherBatches,
		m.WeatherAPIDuration,
		m.Observations,
		m.ObservationsSkipped,
		m.FeatureRows,
		m.FeatureRowsSkipped,
		m.RowsWritten,
	}
}
