package aviationweather

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
)

// hPaPerInHg converts altimeter settings reported in hectopascals.
const hPaPerInHg = 33.8639

var errMissingStation = errors.New("missing station identifier")

// metar is the subset of the provider's JSON record that the pipeline uses.
// Matching is case-insensitive, so "fltcat" and "fltCat" both decode.
type metar struct {
	ICAOID   string    `json:"icaoId"`
	ObsTime  flexTime  `json:"obsTime"`
	Temp     flexFloat `json:"temp"`
	Dewp     flexFloat `json:"dewp"`
	WSpd     flexFloat `json:"wspd"`
	WDir     flexFloat `json:"wdir"`
	WGst     flexFloat `json:"wgst"`
	Visib    flexFloat `json:"visib"`
	Altim    flexFloat `json:"altim"`
	SLP      flexFloat `json:"slp"`
	WxString *string   `json:"wxString"`
	FltCat   *string   `json:"fltCat"`
	RawOb    string    `json:"rawOb"`
}

func decodeObservation(raw json.RawMessage) (domain.WeatherObservation, error) {
	var m metar
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("decode metar: %w", err)
	}
	station := strings.ToUpper(strings.TrimSpace(m.ICAOID))
	if station == "" {
		return domain.WeatherObservation{}, errMissingStation
	}

	obs := domain.WeatherObservation{
		AirportCode:        station,
		Timestamp:          time.Time(m.ObsTime),
		TemperatureC:       m.Temp.ptr(),
		DewpointC:          m.Dewp.ptr(),
		WindSpeedKt:        m.WSpd.ptr(),
		WindDirectionDeg:   m.WDir.ptr(),
		WindGustKt:         m.WGst.ptr(),
		VisibilitySM:       m.Visib.ptr(),
		AltimeterInHg:      m.Altim.ptr(),
		SeaLevelPressureMb: m.SLP.ptr(),
		RawText:            m.RawOb,
	}
	if obs.AltimeterInHg != nil && *obs.AltimeterInHg > 100 {
		obs.AltimeterInHg = domain.Float64(*obs.AltimeterInHg / hPaPerInHg)
	}
	if m.WxString != nil {
		obs.PresentWeather = strings.TrimSpace(*m.WxString)
	}
	if m.FltCat != nil {
		obs.FlightCategory = domain.ParseFlightCategory(*m.FltCat)
	}
	return obs, nil
}

// flexFloat decodes a number that may arrive as a JSON number, a numeric
// string, or a bounded string such as "10+". Null, empty, and non-numeric
// strings ("VRB") decode as unknown.
type flexFloat struct {
	v     float64
	valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = flexFloat{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = parseFlexFloat(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		v, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", b, err)
		}
		*f = flexFloat{v: v, valid: true}
		return nil
	default:
		return fmt.Errorf("expected number or string, got %s", b)
	}
}

func parseFlexFloat(s string) flexFloat {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "+")
	if s == "" {
		return flexFloat{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return flexFloat{}
	}
	return flexFloat{v: v, valid: true}
}

func (f flexFloat) ptr() *float64 {
	if !f.valid {
		return nil
	}
	return domain.Float64(f.v)
}

// flexTime decodes epoch seconds (number or string) or an RFC 3339 string.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = flexTime{}
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*t = flexTime{}
			return nil
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			*t = flexTime(ts.UTC())
			return nil
		}
	}

	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid observation time %q", s)
	}
	*t = flexTime(time.Unix(secs, 0).UTC())
	return nil
}
