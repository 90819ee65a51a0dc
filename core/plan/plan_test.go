package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/model"
	"github.com/Sukarth/wastewater-optimization/core/physics"
)

func planPumps() []model.PumpSpec {
	eff := []model.EfficiencyPoint{
		{FlowM3h: 1400, Eta: 0.79},
		{FlowM3h: 1550, Eta: 0.81},
		{FlowM3h: 1700, Eta: 0.80},
	}
	pumps := make([]model.PumpSpec, 4)
	for i := range pumps {
		pumps[i] = model.PumpSpec{
			ID:         "P" + string(rune('1'+i)),
			Class:      model.PumpSmall,
			PowerKW:    250,
			MinFlowM3h: 1400,
			MaxFlowM3h: 1700,
			Efficiency: eff,
		}
	}
	return pumps
}

func planEngine(t *testing.T) *physics.Engine {
	t.Helper()
	curve, err := physics.NewCurve(physics.DefaultCurveConfig())
	require.NoError(t, err)
	engine, err := physics.NewEngine(physics.DefaultEngineConfig(), curve)
	require.NoError(t, err)
	return engine
}

func newTestPlanner(t *testing.T, cfg Config) *Planner {
	t.Helper()
	p, err := NewPlanner(cfg, planPumps(), planEngine(t), nil)
	require.NoError(t, err)
	return p
}

func horizonForecast(inflow []float64, price []float64) forecast.Result {
	return forecast.Result{HorizonSteps: len(inflow), InflowM3h: inflow, PriceEURPerKWh: price}
}

// With the second half of the horizon at zero price, almost all pumped volume
// should land there.
func TestPlannerShiftsIntoCheapWindow(t *testing.T) {
	p := newTestPlanner(t, Config{HorizonSteps: 16})
	engine := planEngine(t)
	state := engine.StateAtLevel(3.5, time.Time{})

	inflow := make([]float64, 16)
	price := make([]float64, 16)
	for i := range inflow {
		inflow[i] = 2000
		if i < 8 {
			price[i] = 0.30
		} else {
			price[i] = 0.0
		}
	}

	proposal, err := p.Propose(context.Background(), state, horizonForecast(inflow, price), nil)
	require.NoError(t, err)
	require.True(t, proposal.Feasible)

	var cheap, total float64
	for _, seq := range proposal.PerPumpFlow {
		require.Len(t, seq, 16)
		for tIdx, f := range seq {
			total += f
			if tIdx >= 8 {
				cheap += f
			}
		}
	}
	require.Greater(t, total, 0.0)
	assert.GreaterOrEqual(t, cheap/total, 0.7, "pumped volume should concentrate in the zero-price window")
	assert.GreaterOrEqual(t, proposal.ObjectiveEUR, 0.0)
}

func TestPlannerRespectsPumpBands(t *testing.T) {
	p := newTestPlanner(t, Config{HorizonSteps: 8})
	engine := planEngine(t)
	state := engine.StateAtLevel(4.0, time.Time{})

	inflow := []float64{2600, 2600, 2600, 2600, 2600, 2600, 2600, 2600}
	price := []float64{0.1, 0.2, 0.1, 0.3, 0.1, 0.2, 0.1, 0.3}

	proposal, err := p.Propose(context.Background(), state, horizonForecast(inflow, price), nil)
	require.NoError(t, err)
	require.True(t, proposal.Feasible)

	for id, seq := range proposal.PerPumpFlow {
		for tIdx, f := range seq {
			if f == 0 {
				continue
			}
			assert.GreaterOrEqualf(t, f, 1400.0, "pump %s step %d below band", id, tIdx)
			assert.LessOrEqualf(t, f, 1700.0, "pump %s step %d above band", id, tIdx)
		}
	}
}

func TestPlannerFallsBackOnSolverError(t *testing.T) {
	orig := lpSolve
	lpSolve = func(*lpProblem) ([]float64, error) { return nil, errors.New("singular basis") }
	defer func() { lpSolve = orig }()

	p := newTestPlanner(t, Config{HorizonSteps: 8})
	engine := planEngine(t)
	state := engine.StateAtLevel(3.5, time.Time{})
	inflow := make([]float64, 8)
	price := make([]float64, 8)
	for i := range inflow {
		inflow[i] = 2000
		price[i] = 0.1
	}

	last := map[string]float64{"P1": 1500, "P2": 900}
	proposal, err := p.Propose(context.Background(), state, horizonForecast(inflow, price), last)
	require.NoError(t, err)
	assert.False(t, proposal.Feasible)
	assert.Equal(t, "infeasible", proposal.FallbackReason)
	// held at last applied flow, sub-minimum flows dropped to zero
	assert.InDelta(t, 1500, proposal.PerPumpFlow["P1"][0], 1e-9)
	assert.Zero(t, proposal.PerPumpFlow["P2"][0])
	assert.Zero(t, proposal.PerPumpFlow["P3"][0])
}

func TestPlannerFallsBackOnTimeout(t *testing.T) {
	orig := lpSolve
	lpSolve = func(p *lpProblem) ([]float64, error) {
		time.Sleep(300 * time.Millisecond)
		return solveLP(p)
	}
	defer func() { lpSolve = orig }()

	p := newTestPlanner(t, Config{HorizonSteps: 8, SolveTimeoutMS: 20})
	engine := planEngine(t)
	state := engine.StateAtLevel(3.5, time.Time{})
	inflow := make([]float64, 8)
	price := make([]float64, 8)
	for i := range inflow {
		inflow[i] = 2000
		price[i] = 0.1
	}

	proposal, err := p.Propose(context.Background(), state, horizonForecast(inflow, price), nil)
	require.NoError(t, err)
	assert.False(t, proposal.Feasible)
	assert.Equal(t, "timeout", proposal.FallbackReason)
}

func TestPlannerEmptyForecast(t *testing.T) {
	p := newTestPlanner(t, Config{HorizonSteps: 8})
	engine := planEngine(t)
	state := engine.StateAtLevel(3.5, time.Time{})

	proposal, err := p.Propose(context.Background(), state, forecast.Result{}, nil)
	require.NoError(t, err)
	assert.False(t, proposal.Feasible)
	assert.Equal(t, "empty_forecast", proposal.FallbackReason)
}

func TestCommitPumpsPrefersCheapSteps(t *testing.T) {
	pumps := model.SortPumps(planPumps())
	inflow := make([]float64, 8)
	price := []float64{0.5, 0.5, 0.5, 0.5, 0.0, 0.0, 0.0, 0.0}
	for i := range inflow {
		inflow[i] = 2000
	}
	curve, err := physics.NewCurve(physics.DefaultCurveConfig())
	require.NoError(t, err)

	in := commitInput{
		pumps:   pumps,
		inflow:  inflow,
		price:   price,
		v0:      curve.VolumeFromLevel(3.5),
		vMin:    curve.VolumeFromLevel(0.5) + 50,
		vMax:    curve.VolumeFromLevel(7.5) - 50,
		dt:      0.25,
		floor:   1400,
		ceiling: 16000,
		drift:   2000,
	}
	commit := commitPumps(in)

	committed := 0
	for t0 := 0; t0 < 8; t0++ {
		if commit.anyOn(t0) {
			committed++
			assert.GreaterOrEqualf(t, t0, 4, "expensive step %d should stay off", t0)
		}
	}
	assert.Greater(t, committed, 0, "some cheap steps must be committed")
}

func TestCommitPumpsForcesAgainstOverflow(t *testing.T) {
	pumps := model.SortPumps(planPumps())
	curve, err := physics.NewCurve(physics.DefaultCurveConfig())
	require.NoError(t, err)

	inflow := make([]float64, 8)
	price := make([]float64, 8)
	for i := range inflow {
		inflow[i] = 12000 // storm: filling far faster than drift allows
		price[i] = 0.5
	}
	in := commitInput{
		pumps:   pumps,
		inflow:  inflow,
		price:   price,
		v0:      curve.VolumeFromLevel(7.2),
		vMin:    curve.VolumeFromLevel(0.5) + 50,
		vMax:    curve.VolumeFromLevel(7.5) - 50,
		dt:      0.25,
		floor:   1400,
		ceiling: 16000,
		drift:   2000,
	}
	commit := commitPumps(in)
	for t0 := range commit {
		assert.Truef(t, commit.anyOn(t0), "storm step %d must run pumps", t0)
	}
}

func TestReactiveControllerThresholds(t *testing.T) {
	ctrl, err := NewReactiveController(ReactiveConfig{}, planPumps())
	require.NoError(t, err)
	engine := planEngine(t)
	fc := horizonForecast([]float64{2000, 2000}, []float64{0.1, 0.1})

	high, err := ctrl.Propose(context.Background(), engine.StateAtLevel(7.0, time.Time{}), fc, nil)
	require.NoError(t, err)
	var total float64
	for _, seq := range high.PerPumpFlow {
		total += seq[0]
	}
	assert.InDelta(t, 4*1700, total, 1e-9, "above the high threshold the fleet runs flat out")

	low, err := ctrl.Propose(context.Background(), engine.StateAtLevel(1.0, time.Time{}), fc, nil)
	require.NoError(t, err)
	for id, seq := range low.PerPumpFlow {
		assert.Zerof(t, seq[0], "pump %s should rest below the low threshold", id)
	}

	mid, err := ctrl.Propose(context.Background(), engine.StateAtLevel(4.0, time.Time{}), fc, nil)
	require.NoError(t, err)
	total = 0
	for _, seq := range mid.PerPumpFlow {
		total += seq[0]
	}
	// inflow 2000 plus (4.0-3.5)*200 gain asks for 2100; the band stacking
	// drops the sub-minimum remainder, leaving one pump at full flow
	assert.InDelta(t, 1700, total, 1e-9)
}

func TestStackFlowsHonorsMinimumBand(t *testing.T) {
	pumps := model.SortPumps(planPumps())
	flows := stackFlows(pumps, 2000)
	assert.InDelta(t, 1700, flows["P1"], 1e-9)
	assert.Zero(t, flows["P2"], "remainder below minimum flow is dropped")

	flows = stackFlows(pumps, 3100)
	assert.InDelta(t, 1700, flows["P1"], 1e-9)
	assert.InDelta(t, 1400, flows["P2"], 1e-9)
}
