package tables

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
)

// Output file names, relative to the output directory.
const (
	FuelEstimatesFile = "fuel_estimates.csv"
	ObservationsFile  = "weather_observations.csv"
	FeaturesFile      = "weather_features.csv"
	SplitsDir         = "splits"
)

// FuelEstimateColumns is the header of the fuel estimate table.
var FuelEstimateColumns = []string{
	"FlightDate",
	"Tail_Number",
	"Manufacturer",
	"Model",
	"Aircraft_Type_Info",
	"Estimated_Distance_km",
	"Estimated_Cruise_Fuel_Flow_kghr",
	"Estimated_Total_Fuel_kg",
}

var observationColumns = []string{
	"airport_code",
	"observation_time",
	"temperature_c",
	"dewpoint_c",
	"wind_speed_kt",
	"wind_direction_deg",
	"wind_gust_kt",
	"visibility_sm",
	"altimeter_in_hg",
	"sea_level_pressure_mb",
	"present_weather",
	"flight_category",
	"weather_scenario",
	"raw_text",
}

var featureIdentityColumns = []string{"FlightDate", "Tail_Number", "Model", "Dep_Airport", "Arr_Airport"}

var featureDetailColumns = []string{
	"origin_weather_severity",
	"dest_weather_severity",
	"origin_present_weather",
	"dest_present_weather",
	"origin_flight_category",
	"dest_flight_category",
	"Baseline_Fuel_kg",
	"Weather_Impact_Factor",
	"Weather_Adjusted_Fuel_kg",
	domain.TargetColumn,
}

// Writer writes a run's tables under a directory. Each file is written to a
// temporary name and renamed into place.
type Writer struct {
	dir         string
	writeSplits bool
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewWriter creates a CSV writer rooted at dir.
func NewWriter(dir string, writeSplits bool, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, writeSplits: writeSplits, metrics: metrics, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "csv" }

// Write stores every table for run.
func (w *Writer) Write(ctx context.Context, run *domain.Run) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name  string
		rows  int
		write func(io.Writer) error
	}{
		{FuelEstimatesFile, len(run.Estimates), func(out io.Writer) error { return WriteFuelEstimates(out, run.Estimates) }},
		{ObservationsFile, len(run.Observations), func(out io.Writer) error { return WriteObservations(out, run.Observations) }},
		{FeaturesFile, len(run.Features), func(out io.Writer) error { return WriteFeatures(out, run.Features) }},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(w.dir, f.name)
		if err := writeFileAtomic(path, f.write); err != nil {
			return err
		}
		w.countRows(f.rows)
		w.logger.Info("table written", "path", path, "rows", f.rows)
	}

	if !w.writeSplits {
		return nil
	}
	return w.writeSplitFiles(run)
}

func (w *Writer) writeSplitFiles(run *domain.Run) error {
	dir := filepath.Join(w.dir, SplitsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create splits dir: %w", err)
	}

	resolved := domain.ResolvedEstimates(run.Estimates)
	matrix := domain.ImputeMedians(run.Features)
	targets := domain.Targets(run.Features)

	parts := []struct {
		name    string
		fuel    []int
		weather []int
	}{
		{"train", run.FuelSplit.Train, run.WeatherSplit.Train},
		{"val", run.FuelSplit.Validation, run.WeatherSplit.Validation},
		{"test", run.FuelSplit.Test, run.WeatherSplit.Test},
	}
	for _, p := range parts {
		fuelPath := filepath.Join(dir, "fuel_"+p.name+".csv")
		if err := writeFileAtomic(fuelPath, func(out io.Writer) error {
			return writeFuelSplit(out, resolved, p.fuel)
		}); err != nil {
			return err
		}

		weatherPath := filepath.Join(dir, "weather_"+p.name+".csv")
		if err := writeFileAtomic(weatherPath, func(out io.Writer) error {
			return writeWeatherSplit(out, matrix, targets, p.weather)
		}); err != nil {
			return err
		}
		w.logger.Debug("split written", "part", p.name, "fuel_rows", len(p.fuel), "weather_rows", len(p.weather))
	}
	return nil
}

func (w *Writer) countRows(n int) {
	if w.metrics != nil {
		w.metrics.RowsWritten.WithLabelValues(w.Name()).Add(float64(n))
	}
}

// WriteFuelEstimates writes the fuel estimate table. Unresolved numeric
// fields are empty cells.
func WriteFuelEstimates(out io.Writer, estimates []domain.FuelEstimate) error {
	return writeCSV(out, FuelEstimateColumns, len(estimates), func(i int) []string {
		e := estimates[i]
		return []string{
			e.Flight.Date,
			e.Flight.TailNumber,
			e.Flight.Manufacturer,
			e.Flight.Model,
			e.AircraftLabel,
			formatPtr(e.DistanceKm),
			formatPtr(e.FuelFlowKgPerHr),
			formatPtr(e.TotalFuelKg),
		}
	})
}

// WriteObservations writes normalized weather observations.
func WriteObservations(out io.Writer, obs []domain.WeatherObservation) error {
	return writeCSV(out, observationColumns, len(obs), func(i int) []string {
		o := obs[i]
		ts := ""
		if !o.Timestamp.IsZero() {
			ts = o.Timestamp.UTC().Format(time.RFC3339)
		}
		return []string{
			o.AirportCode,
			ts,
			formatPtr(o.TemperatureC),
			formatPtr(o.DewpointC),
			formatPtr(o.WindSpeedKt),
			formatPtr(o.WindDirectionDeg),
			formatPtr(o.WindGustKt),
			formatPtr(o.VisibilitySM),
			formatPtr(o.AltimeterInHg),
			formatPtr(o.SeaLevelPressureMb),
			o.PresentWeather,
			string(o.FlightCategory),
			o.Scenario,
			o.RawText,
		}
	})
}

// FeatureTableColumns is the full header of the weather feature table.
func FeatureTableColumns() []string {
	cols := make([]string, 0, len(featureIdentityColumns)+len(domain.FeatureColumns)+len(featureDetailColumns))
	cols = append(cols, featureIdentityColumns...)
	cols = append(cols, domain.FeatureColumns...)
	return append(cols, featureDetailColumns...)
}

// WriteFeatures writes the weather feature table with missing feature values
// left empty.
func WriteFeatures(out io.Writer, rows []domain.FeatureRow) error {
	return writeCSV(out, FeatureTableColumns(), len(rows), func(i int) []string {
		r := rows[i]
		rec := []string{r.Flight.Date, r.Flight.TailNumber, r.Flight.Model, r.Flight.DepAirport, r.Flight.ArrAirport}
		for _, v := range r.Vector() {
			rec = append(rec, formatPtr(v))
		}
		return append(rec,
			formatFloat(r.Impact.OriginSeverity),
			formatFloat(r.Impact.DestSeverity),
			presentWeather(r.Origin),
			presentWeather(r.Dest),
			category(r.Origin),
			category(r.Dest),
			formatFloat(r.Fuel.BaselineFuelKg),
			formatFloat(r.Fuel.ImpactFactor),
			formatFloat(r.Fuel.WeatherAdjustedFuelKg),
			formatFloat(r.Fuel.ExtraFuelKg),
		)
	})
}

func writeFuelSplit(out io.Writer, resolved []domain.FuelEstimate, idx []int) error {
	return writeCSV(out, []string{"Estimated_Distance_km", "Estimated_Total_Fuel_kg"}, len(idx), func(i int) []string {
		e := resolved[idx[i]]
		return []string{formatPtr(e.DistanceKm), formatPtr(e.TotalFuelKg)}
	})
}

func writeWeatherSplit(out io.Writer, matrix [][]float64, targets []float64, idx []int) error {
	cols := append(append([]string{}, domain.FeatureColumns...), domain.TargetColumn)
	return writeCSV(out, cols, len(idx), func(i int) []string {
		row := matrix[idx[i]]
		rec := make([]string, 0, len(row)+1)
		for _, v := range row {
			rec = append(rec, formatFloat(v))
		}
		return append(rec, formatFloat(targets[idx[i]]))
	})
}

func writeCSV(out io.Writer, header []string, n int, row func(int) []string) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func presentWeather(o *domain.WeatherObservation) string {
	if o == nil {
		return ""
	}
	return o.PresentWeather
}

func category(o *domain.WeatherObservation) string {
	if o == nil {
		return ""
	}
	return string(o.FlightCategory)
}
