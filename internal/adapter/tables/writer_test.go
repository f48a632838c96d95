package tables

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
)

func readAll(t *testing.T, r io.Reader) [][]string {
	t.Helper()
	recs, err := csv.NewReader(r).ReadAll()
	require.NoError(t, err)
	return recs
}

func readFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	return readAll(t, f)
}

func sampleEstimates() []domain.FuelEstimate {
	return []domain.FuelEstimate{
		{
			Flight:          domain.Flight{Date: "2023-01-02", TailNumber: "N605LR", Manufacturer: "BOMBARDIER", Model: "CRJ-900"},
			AircraftLabel:   "CRJ-900",
			DistanceKm:      domain.Float64(850),
			FuelFlowKgPerHr: domain.Float64(1600),
			TotalFuelKg:     domain.Float64(1600),
		},
		{
			Flight:        domain.Flight{Date: "2023-01-02", TailNumber: "N1", Model: "B737"},
			AircraftLabel: domain.NoInfoLabel,
		},
	}
}

func sampleFeatures() []domain.FeatureRow {
	origin := &domain.WeatherObservation{AirportCode: "ATL", WindSpeedKt: domain.Float64(10), PresentWeather: "RA", FlightCategory: domain.CategoryIFR}
	return []domain.FeatureRow{
		{
			Flight:     domain.Flight{Date: "2023-01-02", TailNumber: "N605LR", Model: "CRJ9", DepAirport: "ATL", ArrAirport: "DTW", DurationMin: domain.Float64(60)},
			DistanceKm: domain.Float64(960.5),
			Origin:     origin,
			Impact:     domain.ScoreFlight(origin, nil),
			Fuel:       domain.FuelAdjustment{FuelRateKgPerHr: 1050, BaselineFuelKg: 1050, ImpactFactor: 1.05, WeatherAdjustedFuelKg: 1102.5, ExtraFuelKg: 52.5},
		},
		{
			Flight: domain.Flight{Date: "2023-01-03", TailNumber: "N2", DurationMin: domain.Float64(90), DepDelay: domain.Float64(4)},
			Fuel:   domain.FuelAdjustment{FuelRateKgPerHr: 1000, BaselineFuelKg: 1500, ImpactFactor: 1, WeatherAdjustedFuelKg: 1500},
		},
	}
}

func TestWriteFuelEstimates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFuelEstimates(&buf, sampleEstimates()))

	recs := readAll(t, &buf)
	require.Len(t, recs, 3)
	assert.Equal(t, FuelEstimateColumns, recs[0])
	assert.Equal(t, []string{"2023-01-02", "N605LR", "BOMBARDIER", "CRJ-900", "CRJ-900", "850", "1600", "1600"}, recs[1])
	assert.Equal(t, []string{"2023-01-02", "N1", "", "B737", "no info", "", "", ""}, recs[2])
}

func TestWriteObservations(t *testing.T) {
	obs := []domain.WeatherObservation{{
		AirportCode:    "ATL",
		Timestamp:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		TemperatureC:   domain.Float64(21.5),
		VisibilitySM:   domain.Float64(10),
		PresentWeather: "TSRA",
		FlightCategory: domain.CategoryLIFR,
		Scenario:       "stormy",
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteObservations(&buf, obs))

	recs := readAll(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, observationColumns, recs[0])
	assert.Equal(t, "ATL", recs[1][0])
	assert.Equal(t, "2024-06-01T12:00:00Z", recs[1][1])
	assert.Equal(t, "21.5", recs[1][2])
	assert.Equal(t, "", recs[1][3])
	assert.Equal(t, "TSRA", recs[1][10])
	assert.Equal(t, "LIFR", recs[1][11])
	assert.Equal(t, "stormy", recs[1][12])
}

func TestWriteFeatures(t *testing.T) {
	var buf bytes.Buffer
	rows := sampleFeatures()
	require.NoError(t, WriteFeatures(&buf, rows))

	recs := readAll(t, &buf)
	require.Len(t, recs, 3)
	header := recs[0]
	assert.Equal(t, FeatureTableColumns(), header)

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %s not found", name)
		return -1
	}

	assert.Equal(t, "N605LR", recs[1][col("Tail_Number")])
	assert.Equal(t, "960.5", recs[1][col("Estimated_Distance_km")])
	assert.Equal(t, "10", recs[1][col("origin_wind_speed_kt")])
	assert.Equal(t, "", recs[1][col("dest_wind_speed_kt")])
	assert.Equal(t, "RA", recs[1][col("origin_present_weather")])
	assert.Equal(t, "IFR", recs[1][col("origin_flight_category")])
	assert.Equal(t, "52.5", recs[1][col(domain.TargetColumn)])
	assert.Equal(t, "", recs[2][col("Estimated_Distance_km")])
	assert.Equal(t, "0", recs[2][col(domain.TargetColumn)])
}

func TestWriter_WritesAllTablesAndSplits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	m := observability.NewMetricsForTesting()
	w := NewWriter(dir, true, m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	run := &domain.Run{
		ID:           "run-1",
		Estimates:    sampleEstimates(),
		Features:     sampleFeatures(),
		FuelSplit:    domain.Split{Train: []int{0}},
		WeatherSplit: domain.Split{Train: []int{1}, Test: []int{0}},
	}
	require.NoError(t, w.Write(context.Background(), run))

	assert.Len(t, readFile(t, filepath.Join(dir, FuelEstimatesFile)), 3)
	assert.Len(t, readFile(t, filepath.Join(dir, ObservationsFile)), 1)
	assert.Len(t, readFile(t, filepath.Join(dir, FeaturesFile)), 3)

	fuelTrain := readFile(t, filepath.Join(dir, SplitsDir, "fuel_train.csv"))
	assert.Equal(t, [][]string{{"Estimated_Distance_km", "Estimated_Total_Fuel_kg"}, {"850", "1600"}}, fuelTrain)
	assert.Len(t, readFile(t, filepath.Join(dir, SplitsDir, "fuel_val.csv")), 1)

	weatherTrain := readFile(t, filepath.Join(dir, SplitsDir, "weather_train.csv"))
	require.Len(t, weatherTrain, 2)
	assert.Len(t, weatherTrain[0], len(domain.FeatureColumns)+1)
	assert.Equal(t, "90", weatherTrain[1][0])
	// Distance is missing for row 1 and imputed from the only present value.
	assert.Equal(t, "960.5", weatherTrain[1][1])
	assert.Equal(t, "0", weatherTrain[1][len(weatherTrain[1])-1])

	weatherTest := readFile(t, filepath.Join(dir, SplitsDir, "weather_test.csv"))
	require.Len(t, weatherTest, 2)
	assert.Equal(t, "52.5", weatherTest[1][len(weatherTest[1])-1])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "temporary file left behind")
	}
}

func TestWriter_SkipsSplitsWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.Write(context.Background(), &domain.Run{}))

	_, err := os.Stat(filepath.Join(dir, SplitsDir))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, FuelEstimatesFile))
	assert.NoError(t, err)
}
