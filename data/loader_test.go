package data

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadObservations(t *testing.T) {
	path := writeFeed(t, `timestamp,inflow_m3h,price
2026-03-10T00:00:00Z,2000,8.5
2026-03-10T00:15:00Z,2100,9.0
2026-03-10T00:30:00Z,1900,7.5
`)
	obs, err := LoadObservations(LoaderConfig{Path: path})
	require.NoError(t, err)
	require.Len(t, obs, 3)
	assert.InDelta(t, 2100, obs[1].InflowM3h, 1e-9)
	// prices arrive in cents and are converted to EUR/kWh
	assert.InDelta(t, 0.09, obs[1].PriceEURPerKWh, 1e-9)
	assert.Equal(t, 15.0, obs[1].Timestamp.Sub(obs[0].Timestamp).Minutes())
}

func TestLoadObservationsForwardFillsBlanks(t *testing.T) {
	path := writeFeed(t, `timestamp,inflow_m3h,price
2026-03-10T00:00:00Z,2000,8.5
2026-03-10T00:15:00Z,,9.0
2026-03-10T00:30:00Z,1900,
`)
	obs, err := LoadObservations(LoaderConfig{Path: path})
	require.NoError(t, err)
	assert.InDelta(t, 2000, obs[1].InflowM3h, 1e-9)
	assert.InDelta(t, 0.09, obs[2].PriceEURPerKWh, 1e-9)
}

func TestLoadObservationsRejectsBrokenCadence(t *testing.T) {
	path := writeFeed(t, `timestamp,inflow_m3h,price
2026-03-10T00:00:00Z,2000,8.5
2026-03-10T00:45:00Z,2100,9.0
`)
	_, err := LoadObservations(LoaderConfig{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cadence")
}

func TestLoadObservationsRejectsMalformedRow(t *testing.T) {
	path := writeFeed(t, `timestamp,inflow_m3h,price
2026-03-10T00:00:00Z,2000,8.5
2026-03-10T00:15:00Z,2100
2026-03-10T00:30:00Z,1900,7.5
`)
	_, err := LoadObservations(LoaderConfig{Path: path})
	require.Error(t, err, "a malformed row must fail the load, not truncate it")
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoadObservationsMissingColumn(t *testing.T) {
	path := writeFeed(t, `timestamp,flow
2026-03-10T00:00:00Z,2000
`)
	_, err := LoadObservations(LoaderConfig{Path: path})
	require.Error(t, err)
}

func TestLoadObservationsFirstRowMustBeComplete(t *testing.T) {
	path := writeFeed(t, `timestamp,inflow_m3h,price
2026-03-10T00:00:00Z,,8.5
`)
	_, err := LoadObservations(LoaderConfig{Path: path})
	require.Error(t, err)
}

func TestReplaySource(t *testing.T) {
	path := writeFeed(t, `timestamp,inflow_m3h,price
2026-03-10T00:00:00Z,2000,8.5
2026-03-10T00:15:00Z,2100,9.0
`)
	src, err := OpenReplay(LoaderConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, src.Remaining())

	first, err := src.Next()
	require.NoError(t, err)
	assert.InDelta(t, 2000, first.InflowM3h, 1e-9)

	_, err = src.Next()
	require.NoError(t, err)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}
