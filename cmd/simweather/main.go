// Command simweather generates a seeded set of synthetic METAR-style
// observations and writes them as JSON. The output is a fixture for tests and
// for offline runs of the pipeline.
//
// Usage:
//
//	go run ./cmd/simweather \
//	  -airports ATL,DTW,MSP \
//	  -seed 42 -n 3 \
//	  -at 2024-01-15T12:00:00Z \
//	  -out testdata/observations.json
//
// -airports-csv reads codes from the IATA_CODE column of an airport table
// instead of the flag list.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/simweather"
	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/tables"
	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	airports := flag.String("airports", "", "comma-separated airport codes")
	airportsCSV := flag.String("airports-csv", "", "airport table to read codes from")
	seed := flag.Uint64("seed", 42, "generator seed")
	perAirport := flag.Int("n", 3, "observations per airport")
	at := flag.String("at", "", "fixed generation time (RFC3339); defaults to now")
	out := flag.String("out", "", "output path; defaults to stdout")
	flag.Parse()

	codes, err := airportCodes(*airports, *airportsCSV)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		flag.Usage()
		return fmt.Errorf("no airports: set -airports or -airports-csv")
	}

	clock := clockwork.NewRealClock()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("parse -at: %w", err)
		}
		clock = clockwork.NewFakeClockAt(t.UTC())
	}

	gen, err := simweather.NewGenerator(*seed, *perAirport, simweather.DefaultScenarios(), clock, nil)
	if err != nil {
		return err
	}
	obs, err := gen.Observations(context.Background(), codes)
	if err != nil {
		return err
	}

	if err := writeJSON(*out, obs); err != nil {
		return fmt.Errorf("write observations: %w", err)
	}
	log.Printf("generated %d observations for %d airports", len(obs), len(codes))
	printStats(obs)
	return nil
}

func airportCodes(list, csvPath string) ([]string, error) {
	if csvPath != "" {
		rows, skipped, err := tables.ReadAirportsFile(csvPath)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			log.Printf("%s: skipped %d rows without coordinates", csvPath, skipped)
		}
		codes := make([]string, 0, len(rows))
		for _, a := range rows {
			codes = append(codes, a.Code)
		}
		return codes, nil
	}

	var codes []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

type scenarioCount struct {
	name  string
	count int
}

// printStats writes scenario and category counts to stderr so stdout stays
// valid JSON.
func printStats(obs []domain.WeatherObservation) {
	scenarios := map[string]int{}
	categories := map[domain.FlightCategory]int{}
	var gusts int
	for i := range obs {
		scenarios[obs[i].Scenario]++
		categories[obs[i].FlightCategory]++
		if obs[i].WindGustKt != nil {
			gusts++
		}
	}

	sc := make([]scenarioCount, 0, len(scenarios))
	for name, c := range scenarios {
		sc = append(sc, scenarioCount{name, c})
	}
	sort.Slice(sc, func(i, j int) bool {
		if sc[i].count != sc[j].count {
			return sc[i].count > sc[j].count
		}
		return sc[i].name < sc[j].name
	})

	fmt.Fprintln(os.Stderr, "\n=== Scenario mix ===")
	for _, s := range sc {
		fmt.Fprintf(os.Stderr, "%s=%d ", s.name, s.count)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "By category: VFR=%d, MVFR=%d, IFR=%d, LIFR=%d\n",
		categories[domain.CategoryVFR], categories[domain.CategoryMVFR],
		categories[domain.CategoryIFR], categories[domain.CategoryLIFR])
	fmt.Fprintf(os.Stderr, "With gusts: %d\n", gusts)
}
