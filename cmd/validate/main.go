// Command validate checks the integrity of a pipeline output directory: the
// fuel estimate table, the weather feature table, and the split files. It
// verifies the all-or-nothing estimate rule, the fuel model arithmetic, and
// that every row lands in exactly one split partition.
//
// Usage:
//
//	go run ./cmd/validate -dir output -cruise-speed 850 -impact-scale 50
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/flight-fuel-etl/internal/adapter/tables"
	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "output", "pipeline output directory")
	cruise := flag.Float64("cruise-speed", domain.DefaultCruiseSpeedKmh, "cruise speed used for the run (km/h)")
	scale := flag.Float64("impact-scale", domain.DefaultImpactScale, "impact scale used for the run")
	splits := flag.Bool("splits", true, "also validate the split files")
	flag.Parse()

	if code := run(*dir, *cruise, *scale, *splits); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, cruise, scale float64, checkSplits bool) int {
	fmt.Println("=== Fuel Pipeline Output Validation ===")
	fmt.Println()

	estimates, err := loadCSV(filepath.Join(dir, tables.FuelEstimatesFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fuel estimates: %v\n", err)
		return 1
	}
	features, err := loadCSV(filepath.Join(dir, tables.FeaturesFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load weather features: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateEstimates(estimates, cruise),
		validateFeatures(features, scale),
	}
	if checkSplits {
		phases = append(phases, validateSplits(filepath.Join(dir, tables.SplitsDir), countResolved(estimates), len(features)))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d fuel estimates (%d resolved), %d weather features\n",
		len(estimates), countResolved(estimates), len(features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

// loadCSV reads a table with a header row. A header-only file yields no rows.
func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no header in %s", path)
	}

	header := all[0]
	rows := make([]csvRow, 0, len(all)-1)
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

func countResolved(estimates []csvRow) int {
	n := 0
	for _, r := range estimates {
		if r.fields["Estimated_Total_Fuel_kg"] != "" {
			n++
		}
	}
	return n
}

// ── Phases ──

func validateEstimates(rows []csvRow, cruise float64) *phase {
	p := &phase{name: "Fuel estimates: all-or-nothing + arithmetic"}
	for _, r := range rows {
		dist, distOK := parseOptional(p, r, "Estimated_Distance_km")
		flow, flowOK := parseOptional(p, r, "Estimated_Cruise_Fuel_Flow_kghr")
		total, totalOK := parseOptional(p, r, "Estimated_Total_Fuel_kg")
		label := r.fields["Aircraft_Type_Info"]

		switch {
		case distOK && flowOK && totalOK:
			if label == domain.NoInfoLabel {
				p.errorf("line %d: resolved estimate labelled %q", r.lineNum, label)
			}
			if dist < 0 || flow < 0 {
				p.errorf("line %d: negative distance %g or fuel flow %g", r.lineNum, dist, flow)
			}
			want := flow * domain.FlightTimeHours(dist, cruise)
			if !floatEq(total, want) {
				p.errorf("line %d: total fuel %g, want flow × distance / cruise = %g", r.lineNum, total, want)
			}
		case !distOK && !flowOK && !totalOK:
			if label != domain.NoInfoLabel {
				p.errorf("line %d: unresolved estimate labelled %q, want %q", r.lineNum, label, domain.NoInfoLabel)
			}
		default:
			p.errorf("line %d: partial estimate (distance=%t, flow=%t, total=%t)", r.lineNum, distOK, flowOK, totalOK)
		}
	}
	return p
}

func validateFeatures(rows []csvRow, scale float64) *phase {
	p := &phase{name: "Weather features: fuel model + target"}
	for _, r := range rows {
		baseline, ok1 := parseRequired(p, r, "Baseline_Fuel_kg")
		factor, ok2 := parseRequired(p, r, "Weather_Impact_Factor")
		adjusted, ok3 := parseRequired(p, r, "Weather_Adjusted_Fuel_kg")
		extra, ok4 := parseRequired(p, r, domain.TargetColumn)
		impact, ok5 := parseRequired(p, r, "comprehensive_weather_impact")
		if !(ok1 && ok2 && ok3 && ok4 && ok5) {
			continue
		}

		if extra < 0 {
			p.errorf("line %d: negative %s %g", r.lineNum, domain.TargetColumn, extra)
		}
		if factor < 1 {
			p.errorf("line %d: impact factor %g below 1", r.lineNum, factor)
		}
		if want := domain.ImpactFactor(impact, scale); !floatEq(factor, want) {
			p.errorf("line %d: impact factor %g, want 1 + %g/%g = %g", r.lineNum, factor, impact, scale, want)
		}
		if !floatEq(adjusted, baseline*factor) {
			p.errorf("line %d: adjusted fuel %g, want baseline × factor = %g", r.lineNum, adjusted, baseline*factor)
		}
		if !floatEq(extra, adjusted-baseline) {
			p.errorf("line %d: extra fuel %g, want adjusted − baseline = %g", r.lineNum, extra, adjusted-baseline)
		}
	}
	return p
}

func validateSplits(dir string, resolved, features int) *phase {
	p := &phase{name: "Splits: partition coverage + dense features"}

	counts := map[string]int{}
	for _, dataset := range []string{"fuel", "weather"} {
		for _, part := range []string{"train", "val", "test"} {
			path := filepath.Join(dir, dataset+"_"+part+".csv")
			rows, err := loadCSV(path)
			if err != nil {
				p.errorf("%s: %v", path, err)
				continue
			}
			counts[dataset] += len(rows)
			if dataset == "weather" {
				checkDense(p, path, rows)
			}
		}
	}

	if counts["fuel"] != resolved {
		p.errorf("fuel splits hold %d rows, want %d resolved estimates", counts["fuel"], resolved)
	}
	if counts["weather"] != features {
		p.errorf("weather splits hold %d rows, want %d feature rows", counts["weather"], features)
	}
	return p
}

// checkDense reports any empty or non-numeric cell in an imputed split.
func checkDense(p *phase, path string, rows []csvRow) {
	cols := append(append([]string{}, domain.FeatureColumns...), domain.TargetColumn)
	for _, r := range rows {
		for _, c := range cols {
			v, ok := r.fields[c]
			if !ok {
				p.errorf("%s line %d: column %s missing", filepath.Base(path), r.lineNum, c)
				continue
			}
			if f, err := strconv.ParseFloat(v, 64); err != nil || math.IsNaN(f) {
				p.errorf("%s line %d: %s=%q is not a number", filepath.Base(path), r.lineNum, c, v)
			}
		}
	}
}

// ── Helpers ──

func parseOptional(p *phase, r csvRow, col string) (float64, bool) {
	v := r.fields[col]
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errorf("line %d: %s=%q: %v", r.lineNum, col, v, err)
		return 0, false
	}
	return f, true
}

func parseRequired(p *phase, r csvRow, col string) (float64, bool) {
	f, ok := parseOptional(p, r, col)
	if !ok && r.fields[col] == "" {
		p.errorf("line %d: %s is empty", r.lineNum, col)
	}
	return f, ok
}

// floatEq compares with a relative tolerance.
func floatEq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
