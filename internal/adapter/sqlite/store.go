package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/insert-run.sql
var insertRunSQL string

//go:embed sql/insert-fuel-estimate.sql
var insertFuelEstimateSQL string

//go:embed sql/insert-weather-feature.sql
var insertWeatherFeatureSQL string

//go:embed sql/get-run.sql
var getRunSQL string

//go:embed sql/get-fuel-estimates.sql
var getFuelEstimatesSQL string

//go:embed sql/get-extra-fuel.sql
var getExtraFuelSQL string

// RunSummary is the stored row for one run.
type RunSummary struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Flights      int
	Resolved     int
	Observations int
	Features     int
}

// Store writes runs and their tables in a single transaction per run.
type Store struct {
	db      *sql.DB
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewStore wraps an open database. Call Migrate before the first Write.
func NewStore(db *sql.DB, metrics *observability.Metrics, logger *slog.Logger) *Store {
	return &Store{db: db, clock: clockwork.NewRealClock(), metrics: metrics, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "sqlite" }

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Write stores the run, its fuel estimates, and its feature rows.
func (s *Store) Write(ctx context.Context, run *domain.Run) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback run", "run_id", run.ID, "error", rbErr)
			}
		}
	}()

	resolved := len(domain.ResolvedEstimates(run.Estimates))
	if _, err = tx.ExecContext(ctx, insertRunSQL,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(s.clock.Now()),
		len(run.Estimates),
		resolved,
		len(run.Observations),
		len(run.Features),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if err = insertEstimates(ctx, tx, run); err != nil {
		return err
	}
	if err = insertFeatures(ctx, tx, run); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}

	if s.metrics != nil {
		s.metrics.RowsWritten.WithLabelValues(s.Name()).Add(float64(len(run.Estimates) + len(run.Features)))
	}
	s.logger.Info("run stored", "run_id", run.ID, "estimates", len(run.Estimates), "features", len(run.Features))
	return nil
}

func insertEstimates(ctx context.Context, tx *sql.Tx, run *domain.Run) error {
	stmt, err := tx.PrepareContext(ctx, insertFuelEstimateSQL)
	if err != nil {
		return fmt.Errorf("prepare fuel estimate insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range run.Estimates {
		if _, err := stmt.ExecContext(ctx,
			run.ID, i,
			e.Flight.Date, e.Flight.TailNumber, e.Flight.Manufacturer, e.Flight.Model,
			e.AircraftLabel,
			nullFloat(e.DistanceKm), nullFloat(e.FuelFlowKgPerHr), nullFloat(e.TotalFuelKg),
		); err != nil {
			return fmt.Errorf("insert fuel estimate %d: %w", i, err)
		}
	}
	return nil
}

func insertFeatures(ctx context.Context, tx *sql.Tx, run *domain.Run) error {
	stmt, err := tx.PrepareContext(ctx, insertWeatherFeatureSQL)
	if err != nil {
		return fmt.Errorf("prepare weather feature insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range run.Features {
		duration := 0.0
		if r.Flight.DurationMin != nil {
			duration = *r.Flight.DurationMin
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, i,
			r.Flight.Date, r.Flight.TailNumber, r.Flight.Model, r.Flight.DepAirport, r.Flight.ArrAirport,
			duration, nullFloat(r.DistanceKm),
			r.Impact.OriginSeverity, r.Impact.DestSeverity, r.Impact.ComprehensiveImpact,
			r.Fuel.FuelRateKgPerHr, r.Fuel.BaselineFuelKg, r.Fuel.ImpactFactor,
			r.Fuel.WeatherAdjustedFuelKg, r.Fuel.ExtraFuelKg,
			formatTime(r.ProcessedAt),
		); err != nil {
			return fmt.Errorf("insert weather feature %d: %w", i, err)
		}
	}
	return nil
}

// Run returns the stored summary for id, or sql.ErrNoRows.
func (s *Store) Run(ctx context.Context, id string) (RunSummary, error) {
	var rs RunSummary
	var started, finished string
	err := s.db.QueryRowContext(ctx, getRunSQL, id).Scan(
		&rs.ID, &started, &finished, &rs.Flights, &rs.Resolved, &rs.Observations, &rs.Features,
	)
	if err != nil {
		return RunSummary{}, err
	}
	if rs.StartedAt, err = parseTime(started); err != nil {
		return RunSummary{}, err
	}
	if rs.FinishedAt, err = parseTime(finished); err != nil {
		return RunSummary{}, err
	}
	return rs, nil
}

// FuelEstimates returns the stored estimates for a run in input order.
func (s *Store) FuelEstimates(ctx context.Context, runID string) ([]domain.FuelEstimate, error) {
	rows, err := s.db.QueryContext(ctx, getFuelEstimatesSQL, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close fuel estimate rows", "error", err)
		}
	}()

	var out []domain.FuelEstimate
	for rows.Next() {
		var e domain.FuelEstimate
		var dist, flow, total sql.NullFloat64
		if err := rows.Scan(
			&e.Flight.Date, &e.Flight.TailNumber, &e.Flight.Manufacturer, &e.Flight.Model,
			&e.AircraftLabel, &dist, &flow, &total,
		); err != nil {
			return nil, err
		}
		e.DistanceKm, e.FuelFlowKgPerHr, e.TotalFuelKg = floatPtr(dist), floatPtr(flow), floatPtr(total)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExtraFuel returns the stored training targets for a run in row order.
func (s *Store) ExtraFuel(ctx context.Context, runID string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, getExtraFuelSQL, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close extra fuel rows", "error", err)
		}
	}()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return domain.Float64(n.Float64)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
