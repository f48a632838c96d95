package tables

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
)

const airportsCSV = "\ufeffIATA_CODE,AIRPORT,CITY,STATE,COUNTRY,LATITUDE,LONGITUDE\n" +
	"ATL,Hartsfield-Jackson,Atlanta,GA,USA,33.64044,-84.42694\n" +
	"DTW,Detroit Metro,Detroit,MI,USA,42.21206,-83.34884\n" +
	"ECP,Northwest Florida Beaches,Panama City,FL,USA,,\n" +
	",Unnamed,,,USA,10,10\n"

const flightsCSV = `FlightDate,Day_Of_Week,Airline,Tail_Number,Dep_Airport,Arr_Airport,Flight_Duration,Dep_Delay,Arr_Delay,Manufacturer,Model,Aicraft_age
2023-01-02,1,Endeavor Air,N605LR,ATL,DTW,105,-3,nan,CANADAIR REGIONAL JET,CRJ 900,11
2023-01-02,1,Endeavor Air,N919XJ, DTW ,MSP,,12,4,CANADAIR REGIONAL JET,,
2023-01-03,2,Endeavor Air,N600LR,MSP,ATL,150,0,0,BOMBARDIER,CRJ-900,x
`

func TestReadAirports(t *testing.T) {
	airports, skipped, err := ReadAirports(strings.NewReader(airportsCSV), "airports.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, skipped)
	require.Len(t, airports, 2)
	assert.Equal(t, domain.Airport{Code: "ATL", Location: domain.GeoPoint{Lat: 33.64044, Lon: -84.42694}}, airports[0])
	assert.Equal(t, "DTW", airports[1].Code)
}

func TestReadAirports_MissingColumn(t *testing.T) {
	_, _, err := ReadAirports(strings.NewReader("IATA_CODE,LATITUDE\nATL,33.6\n"), "airports.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingColumn)
	assert.Contains(t, err.Error(), "LONGITUDE")
	assert.Contains(t, err.Error(), "airports.csv")
}

func TestReadAirports_Empty(t *testing.T) {
	_, _, err := ReadAirports(strings.NewReader(""), "airports.csv")
	assert.Error(t, err)
}

func TestReadFlights(t *testing.T) {
	flights, err := ReadFlights(strings.NewReader(flightsCSV), "flights.csv", 0)
	require.NoError(t, err)
	require.Len(t, flights, 3)

	f := flights[0]
	assert.Equal(t, "2023-01-02", f.Date)
	assert.Equal(t, "N605LR", f.TailNumber)
	assert.Equal(t, "CANADAIR REGIONAL JET", f.Manufacturer)
	assert.Equal(t, "CRJ 900", f.Model)
	assert.Equal(t, "ATL", f.DepAirport)
	assert.Equal(t, "DTW", f.ArrAirport)
	require.NotNil(t, f.DurationMin)
	assert.Equal(t, 105.0, *f.DurationMin)
	require.NotNil(t, f.DepDelay)
	assert.Equal(t, -3.0, *f.DepDelay)
	assert.Nil(t, f.ArrDelay, "nan is missing")
	require.NotNil(t, f.AircraftAge)
	assert.Equal(t, 11.0, *f.AircraftAge)

	assert.Equal(t, "DTW", flights[1].DepAirport, "cells are trimmed")
	assert.Nil(t, flights[1].DurationMin)
	assert.Empty(t, flights[1].Model)
	assert.Nil(t, flights[2].AircraftAge, "unparseable numbers are missing")
}

func TestReadFlights_Limit(t *testing.T) {
	flights, err := ReadFlights(strings.NewReader(flightsCSV), "flights.csv", 2)
	require.NoError(t, err)
	assert.Len(t, flights, 2)
}

func TestReadFlights_OptionalColumnsAbsent(t *testing.T) {
	in := "FlightDate,Tail_Number,Model,Dep_Airport,Arr_Airport\n2023-01-02,N1,CRJ-200,ATL,DTW\n"
	flights, err := ReadFlights(strings.NewReader(in), "flights.csv", 0)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Nil(t, flights[0].DurationMin)
	assert.Empty(t, flights[0].Manufacturer)
}

func TestReadFlights_MissingRequiredColumn(t *testing.T) {
	for _, col := range requiredFlightColumns {
		t.Run(col, func(t *testing.T) {
			cols := make([]string, 0, len(requiredFlightColumns)-1)
			for _, c := range requiredFlightColumns {
				if c != col {
					cols = append(cols, c)
				}
			}
			_, err := ReadFlights(strings.NewReader(strings.Join(cols, ",")+"\n"), "flights.csv", 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMissingColumn)
			assert.Contains(t, err.Error(), col)
		})
	}
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	airportsPath := filepath.Join(dir, "airports.csv")
	flightsPath := filepath.Join(dir, "flights.csv")
	require.NoError(t, os.WriteFile(airportsPath, []byte(airportsCSV), 0o600))
	require.NoError(t, os.WriteFile(flightsPath, []byte(flightsCSV), 0o600))

	airports, _, err := ReadAirportsFile(airportsPath)
	require.NoError(t, err)
	assert.Len(t, airports, 2)

	flights, err := ReadFlightsFile(flightsPath, 0)
	require.NoError(t, err)
	assert.Len(t, flights, 3)

	_, err = ReadFlightsFile(filepath.Join(dir, "missing.csv"), 0)
	assert.Error(t, err)
	_, _, err = ReadAirportsFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
