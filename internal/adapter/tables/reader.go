// Package tables reads the flight and airport input tables and writes the
// pipeline's CSV outputs.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
)

// Airport table columns.
const (
	colIATACode  = "IATA_CODE"
	colLatitude  = "LATITUDE"
	colLongitude = "LONGITUDE"
)

// Flight table columns. "Aicraft_age" matches the source data's spelling.
const (
	colFlightDate   = "FlightDate"
	colTailNumber   = "Tail_Number"
	colManufacturer = "Manufacturer"
	colModel        = "Model"
	colDepAirport   = "Dep_Airport"
	colArrAirport   = "Arr_Airport"
	colDuration     = "Flight_Duration"
	colDepDelay     = "Dep_Delay"
	colArrDelay     = "Arr_Delay"
	colAircraftAge  = "Aicraft_age"
)

var requiredFlightColumns = []string{colFlightDate, colTailNumber, colModel, colDepAirport, colArrAirport}

// header maps column names to indexes.
type header map[string]int

func readHeader(r *csv.Reader, source string) (header, error) {
	names, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty table", source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}
	h := make(header, len(names))
	for i, n := range names {
		n = strings.TrimSpace(strings.TrimPrefix(n, "\ufeff"))
		if _, dup := h[n]; !dup {
			h[n] = i
		}
	}
	return h, nil
}

func (h header) require(source string, cols ...string) error {
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			return fmt.Errorf("%s: %w %q", source, domain.ErrMissingColumn, c)
		}
	}
	return nil
}

// get returns the trimmed cell for col, or "" when the column is absent or
// the row is short.
func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// float parses an optional numeric cell. Empty, "nan", and unparseable values
// are missing.
func (h header) float(rec []string, col string) *float64 {
	s := h.get(rec, col)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// ReadAirports parses the airport reference table. Rows without a code or
// with unparseable coordinates are skipped and counted.
func ReadAirports(r io.Reader, source string) (airports []domain.Airport, skipped int, err error) {
	cr := newReader(r)
	h, err := readHeader(cr, source)
	if err != nil {
		return nil, 0, err
	}
	if err := h.require(source, colIATACode, colLatitude, colLongitude); err != nil {
		return nil, 0, err
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%s: line %d: %w", source, line, err)
		}
		code := h.get(rec, colIATACode)
		lat, lon := h.float(rec, colLatitude), h.float(rec, colLongitude)
		if code == "" || lat == nil || lon == nil {
			skipped++
			continue
		}
		airports = append(airports, domain.Airport{Code: code, Location: domain.GeoPoint{Lat: *lat, Lon: *lon}})
	}
	return airports, skipped, nil
}

// ReadFlights parses the flight table. limit > 0 stops after that many rows.
// Optional numeric columns that are absent from the header read as missing.
func ReadFlights(r io.Reader, source string, limit int) ([]domain.Flight, error) {
	cr := newReader(r)
	h, err := readHeader(cr, source)
	if err != nil {
		return nil, err
	}
	if err := h.require(source, requiredFlightColumns...); err != nil {
		return nil, err
	}

	var flights []domain.Flight
	for line := 2; limit <= 0 || len(flights) < limit; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", source, line, err)
		}
		flights = append(flights, domain.Flight{
			Date:         h.get(rec, colFlightDate),
			TailNumber:   h.get(rec, colTailNumber),
			Manufacturer: h.get(rec, colManufacturer),
			Model:        h.get(rec, colModel),
			DepAirport:   h.get(rec, colDepAirport),
			ArrAirport:   h.get(rec, colArrAirport),
			DurationMin:  h.float(rec, colDuration),
			DepDelay:     h.float(rec, colDepDelay),
			ArrDelay:     h.float(rec, colArrDelay),
			AircraftAge:  h.float(rec, colAircraftAge),
		})
	}
	return flights, nil
}

// ReadAirportsFile opens path and parses it with ReadAirports.
func ReadAirportsFile(path string) ([]domain.Airport, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open airports table: %w", err)
	}
	defer f.Close()
	return ReadAirports(f, path)
}

// ReadFlightsFile opens path and parses it with ReadFlights.
func ReadFlightsFile(path string, limit int) ([]domain.Flight, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flights table: %w", err)
	}
	defer f.Close()
	return ReadFlights(f, path, limit)
}
