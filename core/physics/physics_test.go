package physics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

func defaultCurve(t *testing.T) *Curve {
	t.Helper()
	c, err := NewCurve(DefaultCurveConfig())
	require.NoError(t, err)
	return c
}

func TestCurveBreakpoints(t *testing.T) {
	c := defaultCurve(t)
	assert.InDelta(t, 350, c.VolumeFromLevel(0.4), 1e-9)
	assert.InDelta(t, 75975, c.VolumeFromLevel(5.9), 1e-6)
	assert.InDelta(t, 150225, c.VolumeFromLevel(8.6), 1e-6)
	assert.InDelta(t, 225850, c.VolumeFromLevel(14.1), 1e-6)
	assert.InDelta(t, 225850, c.VolumeMax(), 1e-6)
}

func TestCurveRoundTrip(t *testing.T) {
	c := defaultCurve(t)
	for lvl := 0.4; lvl <= 14.1; lvl += 0.05 {
		vol := c.VolumeFromLevel(lvl)
		back := c.LevelFromVolume(vol)
		assert.InDeltaf(t, lvl, back, 1e-6, "level %.2f", lvl)
	}
}

func TestCurveMonotonic(t *testing.T) {
	c := defaultCurve(t)
	prev := c.VolumeFromLevel(0.4)
	for lvl := 0.45; lvl <= 14.1; lvl += 0.05 {
		vol := c.VolumeFromLevel(lvl)
		assert.Greater(t, vol, prev)
		prev = vol
	}
}

func TestCurveClampsOutOfRange(t *testing.T) {
	c := defaultCurve(t)
	assert.InDelta(t, 350, c.VolumeFromLevel(-1), 1e-9)
	assert.InDelta(t, c.VolumeMax(), c.VolumeFromLevel(20), 1e-9)
	assert.InDelta(t, 0.4, c.LevelFromVolume(0), 1e-9)
	assert.InDelta(t, 14.1, c.LevelFromVolume(1e9), 1e-9)
}

func TestCurveValidate(t *testing.T) {
	cfg := DefaultCurveConfig()
	cfg.LevelQuadTopM = cfg.LevelLinTopM + 1
	_, err := NewCurve(cfg)
	assert.Error(t, err)

	cfg = DefaultCurveConfig()
	cfg.LinCoeff = 0
	_, err = NewCurve(cfg)
	assert.Error(t, err)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultEngineConfig(), defaultCurve(t))
	require.NoError(t, err)
	return e
}

func TestEngineStepMassBalance(t *testing.T) {
	e := newTestEngine(t)
	state := e.StateAtLevel(3.5, time.Time{})
	next, event := e.Step(state, 2000, 1500, 0.25)
	assert.Equal(t, BoundaryNone, event)
	assert.InDelta(t, state.VolumeM3+125, next.VolumeM3, 1e-9)
	assert.Greater(t, next.LevelM, state.LevelM)
}

func TestEngineStepClampsAtBounds(t *testing.T) {
	e := newTestEngine(t)

	low := e.StateAtLevel(0.45, time.Time{})
	next, event := e.Step(low, 0, 5000, 0.25)
	assert.Equal(t, BoundaryMin, event)
	assert.InDelta(t, e.Curve().VolumeMin(), next.VolumeM3, 1e-9)
	assert.InDelta(t, 0.4, next.LevelM, 1e-9)

	high := e.StateAtLevel(14.0, time.Time{})
	next, event = e.Step(high, 50000, 0, 0.25)
	assert.Equal(t, BoundaryMax, event)
	assert.InDelta(t, e.Curve().VolumeMax(), next.VolumeM3, 1e-9)
	assert.InDelta(t, 14.1, next.LevelM, 1e-9)
}

func TestEngineHead(t *testing.T) {
	e := newTestEngine(t)
	assert.InDelta(t, 26.5, e.Head(3.5), 1e-9)
	assert.InDelta(t, 30, e.Head(0), 1e-9)
}

func TestEnergyForPump(t *testing.T) {
	e := newTestEngine(t)
	pump := model.PumpSpec{
		ID: "P1", Class: model.PumpSmall, PowerKW: 250,
		MinFlowM3h: 1400, MaxFlowM3h: 1700,
		Efficiency: []model.EfficiencyPoint{{FlowM3h: 1000, Eta: 0.8}, {FlowM3h: 2000, Eta: 0.8}},
	}

	// Q*H*rho*g / (3.6e6*eta) * dt at flat eta 0.8
	got := e.EnergyForPump(pump, 1800, 26.5, 0.25)
	want := 1800 * 26.5 * 1000 * 9.81 / (3.6e6 * 0.8) * 0.25
	assert.InDelta(t, want, got, 1e-9)

	assert.Zero(t, e.EnergyForPump(pump, 0, 26.5, 0.25))
	assert.Zero(t, e.EnergyForPump(pump, 1800, -1, 0.25))
}

func TestEnergyForCommandSumsFleet(t *testing.T) {
	e := newTestEngine(t)
	eff := []model.EfficiencyPoint{{FlowM3h: 1000, Eta: 0.8}, {FlowM3h: 4000, Eta: 0.8}}
	pumps := []model.PumpSpec{
		{ID: "P1", Class: model.PumpSmall, PowerKW: 250, MinFlowM3h: 1400, MaxFlowM3h: 1700, Efficiency: eff},
		{ID: "P2", Class: model.PumpSmall, PowerKW: 250, MinFlowM3h: 1400, MaxFlowM3h: 1700, Efficiency: eff},
	}
	flows := map[string]float64{"P1": 1500, "P2": 1500}
	total := e.EnergyForCommand(pumps, flows, 26.5, 0.25)
	single := e.EnergyForPump(pumps[0], 1500, 26.5, 0.25)
	assert.InDelta(t, 2*single, total, 1e-9)
}

func TestStateAtLevelClamps(t *testing.T) {
	e := newTestEngine(t)
	s := e.StateAtLevel(-2, time.Time{})
	assert.InDelta(t, 0.4, s.LevelM, 1e-9)
	assert.InDelta(t, 350, s.VolumeM3, 1e-9)
}
