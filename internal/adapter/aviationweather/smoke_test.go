//go:build aviationweather

package aviationweather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
)

// These tests hit the real Aviation Weather Center API.
// Run with: go test -tags=aviationweather ./internal/adapter/aviationweather/ -v -count=1

func TestSmoke_Observations(t *testing.T) {
	c := NewClient(Options{ICAOPrefix: "K", Timeout: 15 * time.Second, HoursBack: 2},
		observability.NewMetricsForTesting(), discardLogger())

	obs, err := c.Observations(context.Background(), []string{"ATL", "DTW", "MSP"})
	require.NoError(t, err)
	require.NotEmpty(t, obs)

	for _, o := range obs {
		assert.Contains(t, []string{"ATL", "DTW", "MSP"}, o.AirportCode)
		assert.False(t, o.Timestamp.IsZero())
	}
}
