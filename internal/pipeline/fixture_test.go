package pipeline_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/simweather"
	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/tables"
	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
	"github.com/couchcryptid/flight-fuel-etl/internal/pipeline"
)

func loadFixtureInput(t *testing.T) pipeline.Input {
	t.Helper()
	airports, skipped, err := tables.ReadAirportsFile(filepath.Join("testdata", "airports.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped, "ECP has no coordinates")

	flights, err := tables.ReadFlightsFile(filepath.Join("testdata", "flights.csv"), 0)
	require.NoError(t, err)
	return pipeline.Input{Airports: airports, Flights: flights}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func column(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q not found in %v", name, header)
	return -1
}

func TestPipeline_WithFixtureTables(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(time.Date(2023, 1, 5, 6, 0, 0, 0, time.UTC))

	gen, err := simweather.NewGenerator(42, 3, simweather.DefaultScenarios(), clock, metrics)
	require.NoError(t, err)

	outDir := t.TempDir()
	csvSink := tables.NewWriter(outDir, true, metrics, discardLogger())

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	store := sqlite.NewStore(db, metrics, discardLogger())
	require.NoError(t, store.Migrate(ctx))

	p := pipeline.New(pipeline.Options{SplitSeed: 42}, gen, []pipeline.Sink{csvSink, store}, discardLogger(), metrics).
		WithClock(clock)

	run, err := p.Run(ctx, loadFixtureInput(t))
	require.NoError(t, err)

	// 8 flights; ERJ-175 has no fuel-rate entry and ECP has no coordinates.
	require.Len(t, run.Estimates, 8)
	assert.Len(t, domain.ResolvedEstimates(run.Estimates), 5)

	// 6 airports with 3 synthetic observations each.
	assert.Len(t, run.Observations, 18)

	// The ECP→ATL leg has no duration.
	assert.Len(t, run.Features, 7)

	t.Run("fuel estimates csv", func(t *testing.T) {
		records := readCSV(t, filepath.Join(outDir, tables.FuelEstimatesFile))
		require.Len(t, records, 9)
		header := records[0]
		label := column(t, header, "Aircraft_Type_Info")
		dist := column(t, header, "Estimated_Distance_km")
		flow := column(t, header, "Estimated_Cruise_Fuel_Flow_kghr")
		total := column(t, header, "Estimated_Total_Fuel_kg")

		for _, rec := range records[1:] {
			empty := 0
			for _, c := range []int{dist, flow, total} {
				if rec[c] == "" {
					empty++
				}
			}
			assert.Contains(t, []int{0, 3}, empty, "partial estimate in row %v", rec)
			if empty == 3 {
				assert.Equal(t, domain.NoInfoLabel, rec[label])
			}
		}
	})

	t.Run("weather features csv", func(t *testing.T) {
		records := readCSV(t, filepath.Join(outDir, tables.FeaturesFile))
		require.Len(t, records, 8)
		extra := column(t, records[0], domain.TargetColumn)
		for _, rec := range records[1:] {
			v, err := strconv.ParseFloat(rec[extra], 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, 0.0)
		}
	})

	t.Run("split files", func(t *testing.T) {
		fuelRows, weatherRows := 0, 0
		for _, part := range []string{"train", "val", "test"} {
			fuelRows += len(readCSV(t, filepath.Join(outDir, tables.SplitsDir, "fuel_"+part+".csv"))) - 1
			weatherRows += len(readCSV(t, filepath.Join(outDir, tables.SplitsDir, "weather_"+part+".csv"))) - 1
		}
		assert.Equal(t, 5, fuelRows)
		assert.Equal(t, 7, weatherRows)
	})

	t.Run("sqlite store", func(t *testing.T) {
		summary, err := store.Run(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, summary.Flights)
		assert.Equal(t, 5, summary.Resolved)
		assert.Equal(t, 18, summary.Observations)
		assert.Equal(t, 7, summary.Features)

		extra, err := store.ExtraFuel(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.Targets(run.Features), extra)
	})

	assert.Equal(t, 18.0, counterValue(t, metrics.Observations.WithLabelValues("simulated")))
	assert.Equal(t, 8.0+7.0, counterValue(t, metrics.RowsWritten.WithLabelValues("sqlite")))
}
