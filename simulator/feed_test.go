package simulator

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sukarth/wastewater-optimization/data"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := FeedConfig{Days: 2, Seed: 42, StormsPerDay: 0.5}
	a, err := Generate(cfg)
	require.NoError(t, err)
	b, err := Generate(cfg)
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i], b[i])
	}
}

func TestGenerateShape(t *testing.T) {
	obs, err := Generate(FeedConfig{Days: 3, Seed: 7})
	require.NoError(t, err)
	require.Len(t, obs, 3*96)

	step := 15 * time.Minute
	for i, o := range obs {
		assert.GreaterOrEqualf(t, o.InflowM3h, 0.0, "step %d", i)
		assert.GreaterOrEqualf(t, o.PriceEURPerKWh, 0.0, "step %d", i)
		if i > 0 {
			assert.Equal(t, step, o.Timestamp.Sub(obs[i-1].Timestamp))
		}
	}
}

func TestGenerateStorms(t *testing.T) {
	calm, err := Generate(FeedConfig{Days: 4, Seed: 11, StormsPerDay: 0})
	require.NoError(t, err)
	stormy, err := Generate(FeedConfig{Days: 4, Seed: 11, StormsPerDay: 1})
	require.NoError(t, err)

	var calmMax, stormyMax float64
	for i := range calm {
		if calm[i].InflowM3h > calmMax {
			calmMax = calm[i].InflowM3h
		}
		if stormy[i].InflowM3h > stormyMax {
			stormyMax = stormy[i].InflowM3h
		}
	}
	assert.Greater(t, stormyMax, calmMax+1000, "storms should add visible peaks")
}

func TestWriteCSVRoundTripsThroughLoader(t *testing.T) {
	obs, err := Generate(FeedConfig{Days: 1, Seed: 3})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, obs))

	path := t.TempDir() + "/feed.csv"
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err := data.LoadObservations(data.LoaderConfig{
		Path: path, StepMinutes: 15, PriceDivisor: 100,
		TimestampColumn: "timestamp", InflowColumn: "inflow_m3h", PriceColumn: "price",
	})
	require.NoError(t, err)
	require.Len(t, loaded, len(obs))
	assert.InDelta(t, obs[0].PriceEURPerKWh, loaded[0].PriceEURPerKWh, 0.001)
	assert.InDelta(t, obs[0].InflowM3h, loaded[0].InflowM3h, 0.1)
}
