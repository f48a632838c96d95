package aviationweather

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
)

func TestDecodeObservation_FullRecord(t *testing.T) {
	raw := json.RawMessage(`{
		"icaoId": "kdtw",
		"obsTime": 1717243200,
		"temp": 18.3,
		"dewp": "11.1",
		"wspd": 14,
		"wdir": 270,
		"wgst": 22,
		"visib": "6",
		"altim": 1013.25,
		"slp": 1012.8,
		"wxString": " TSRA ",
		"fltCat": "LIFR",
		"rawOb": "KDTW 011200Z 27014G22KT 6SM TSRA"
	}`)

	obs, err := decodeObservation(raw)
	require.NoError(t, err)

	want := domain.WeatherObservation{
		AirportCode:        "KDTW",
		Timestamp:          time.Unix(1717243200, 0).UTC(),
		TemperatureC:       domain.Float64(18.3),
		DewpointC:          domain.Float64(11.1),
		WindSpeedKt:        domain.Float64(14),
		WindDirectionDeg:   domain.Float64(270),
		WindGustKt:         domain.Float64(22),
		VisibilitySM:       domain.Float64(6),
		AltimeterInHg:      domain.Float64(1013.25 / hPaPerInHg),
		SeaLevelPressureMb: domain.Float64(1012.8),
		PresentWeather:     "TSRA",
		FlightCategory:     domain.CategoryLIFR,
		RawText:            "KDTW 011200Z 27014G22KT 6SM TSRA",
	}
	if diff := cmp.Diff(want, obs); diff != "" {
		t.Errorf("decoded observation mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 29.92, *obs.AltimeterInHg, 0.01)
}

func TestDecodeObservation_InchesAltimeterKept(t *testing.T) {
	obs, err := decodeObservation(json.RawMessage(`{"icaoId":"KATL","altim":30.01}`))
	require.NoError(t, err)
	require.NotNil(t, obs.AltimeterInHg)
	assert.Equal(t, 30.01, *obs.AltimeterInHg)
}

func TestDecodeObservation_MissingFieldsAreUnknown(t *testing.T) {
	obs, err := decodeObservation(json.RawMessage(`{"icaoId":"KATL","temp":null,"visib":"","wxString":null}`))
	require.NoError(t, err)

	assert.True(t, obs.Timestamp.IsZero())
	assert.Nil(t, obs.TemperatureC)
	assert.Nil(t, obs.VisibilitySM)
	assert.Empty(t, obs.PresentWeather)
	assert.Equal(t, domain.CategoryUnknown, obs.FlightCategory)
}

func TestDecodeObservation_Errors(t *testing.T) {
	cases := map[string]string{
		"not an object":   `"KATL"`,
		"missing station": `{"temp": 10}`,
		"blank station":   `{"icaoId": "  "}`,
		"bool number":     `{"icaoId":"KATL","wspd":false}`,
		"array number":    `{"icaoId":"KATL","visib":[10]}`,
		"bad time":        `{"icaoId":"KATL","obsTime":"June 1st"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeObservation(json.RawMessage(raw))
			assert.Error(t, err)
		})
	}
}

func TestFlexTime_Formats(t *testing.T) {
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, raw := range []string{`1717243200`, `"1717243200"`, `"2024-06-01T12:00:00Z"`, `"2024-06-01T08:00:00-04:00"`} {
		var ft flexTime
		require.NoError(t, json.Unmarshal([]byte(raw), &ft), raw)
		assert.True(t, want.Equal(time.Time(ft)), "input %s gave %v", raw, time.Time(ft))
	}
}

func TestParseFlexFloat(t *testing.T) {
	assert.Equal(t, flexFloat{v: 10, valid: true}, parseFlexFloat("10+"))
	assert.Equal(t, flexFloat{v: 0.25, valid: true}, parseFlexFloat(" 0.25 "))
	assert.Equal(t, flexFloat{}, parseFlexFloat("VRB"))
	assert.Equal(t, flexFloat{}, parseFlexFloat(""))
}
