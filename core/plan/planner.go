package plan

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/logger"
	"github.com/Sukarth/wastewater-optimization/core/model"
	"github.com/Sukarth/wastewater-optimization/core/physics"
)

// Planner chooses per-pump flows over the horizon by linear programming. The
// pump efficiency is linearized at each pump's nominal operating point and the
// on/off binaries are fixed by the commitment heuristic before the solve; both
// are documented modeling simplifications whose cost shows up as a small,
// bounded gap between the planned objective and the realized cost in the tick
// log.
type Planner struct {
	cfg    Config
	pumps  []model.PumpSpec
	engine *physics.Engine
	log    logger.Logger
}

// NewPlanner builds a planner over the shared pump table and digital twin.
func NewPlanner(cfg Config, pumps []model.PumpSpec, engine *physics.Engine, log logger.Logger) (*Planner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(pumps) == 0 {
		return nil, fmt.Errorf("plan: at least one pump is required")
	}
	return &Planner{cfg: cfg, pumps: model.SortPumps(pumps), engine: engine, log: log}, nil
}

// Config returns the planning parameters.
func (p *Planner) Config() Config { return p.cfg }

// Propose implements Proposer. Solver failure, infeasibility or timeout never
// propagate: the result degrades to a hold-last-flows fallback with
// Feasible=false.
func (p *Planner) Propose(ctx context.Context, state model.TunnelState, fc forecast.Result, lastFlows map[string]float64) (model.ScheduleProposal, error) {
	h := p.cfg.HorizonSteps
	if fc.HorizonSteps < h {
		h = fc.HorizonSteps
	}
	if h <= 0 {
		return p.fallback(lastFlows, 1, "empty_forecast"), nil
	}

	curve := p.engine.Curve()
	vMin := curve.VolumeFromLevel(p.cfg.HardMinLevelM) + p.cfg.VolumeMarginM3
	vMax := curve.VolumeFromLevel(p.cfg.HardMaxLevelM) - p.cfg.VolumeMarginM3
	if vMax <= vMin {
		vMax = vMin + 500
	}
	vTarget := math.Min(math.Max(curve.VolumeFromLevel(p.cfg.TargetLevelM), vMin), vMax)

	ci := commitInput{
		pumps:   p.pumps,
		inflow:  fc.InflowM3h[:h],
		price:   fc.PriceEURPerKWh[:h],
		v0:      state.VolumeM3,
		vMin:    vMin,
		vMax:    vMax,
		dt:      p.cfg.DtHours(),
		floor:   p.cfg.FlowFloorM3h,
		ceiling: p.cfg.FlowCeilingM3h,
		drift:   p.cfg.DriftMaxM3,
	}
	li := lpInput{
		pumps:     p.pumps,
		inflow:    ci.inflow,
		price:     ci.price,
		lastFlows: lastFlows,
		v0:        state.VolumeM3,
		vMin:      vMin,
		vMax:      vMax,
		vTarget:   vTarget,
		headM:     p.engine.Head(state.LevelM),
		rhoG:      9810, // rho*g fixed in the cost linearization
		dt:        ci.dt,
		cfg:       p.cfg,
	}

	solveCtx, cancel := context.WithTimeout(ctx, p.cfg.SolveTimeout())
	defer cancel()

	proposal, err := p.solveWithCommitment(solveCtx, li, commitPumps(ci))
	if err == nil {
		return proposal, nil
	}
	if errors.Is(err, ErrTimeout) {
		if p.log != nil {
			p.log.Warnf("planner timeout, holding last flows")
		}
		return p.fallback(lastFlows, h, "timeout"), nil
	}
	// retry once with the inflow-tracking pattern before giving up
	proposal, err = p.solveWithCommitment(solveCtx, li, trackInflowCommitment(ci))
	if err == nil {
		if p.log != nil {
			p.log.Infof("planner recovered with inflow-tracking commitment")
		}
		return proposal, nil
	}
	if p.log != nil {
		p.log.Warnf("planner infeasible: %v, holding last flows", err)
	}
	reason := "infeasible"
	if errors.Is(err, ErrTimeout) {
		reason = "timeout"
	}
	return p.fallback(lastFlows, h, reason), nil
}

type solveResult struct {
	sol []float64
	err error
}

func (p *Planner) solveWithCommitment(ctx context.Context, li lpInput, commit commitment) (model.ScheduleProposal, error) {
	li.commit = commit
	prob := buildLP(li)

	ch := make(chan solveResult, 1)
	go func() {
		sol, err := lpSolve(prob)
		ch <- solveResult{sol: sol, err: err}
	}()

	var res solveResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		return model.ScheduleProposal{}, ErrTimeout
	}
	if res.err != nil {
		return model.ScheduleProposal{}, fmt.Errorf("%w: %v", ErrInfeasible, res.err)
	}

	h := len(li.inflow)
	schedule := make(map[string][]float64, len(p.pumps))
	for _, pump := range p.pumps {
		schedule[pump.ID] = make([]float64, h)
	}
	cost := 0.0
	for t := 0; t < h; t++ {
		for i, pump := range p.pumps {
			v := prob.fIdx[t][i]
			if v < 0 {
				continue
			}
			flow := math.Min(math.Max(res.sol[v], pump.MinFlowM3h), pump.MaxFlowM3h)
			schedule[pump.ID][t] = flow
			cost += prob.costCoef[v] * flow
		}
	}
	return model.ScheduleProposal{PerPumpFlow: schedule, ObjectiveEUR: cost, Feasible: true}, nil
}

// fallback holds every pump at its last applied flow, clamped to capacity.
// Deterministic by construction so a degraded planner stays predictable.
func (p *Planner) fallback(lastFlows map[string]float64, h int, reason string) model.ScheduleProposal {
	if h <= 0 {
		h = 1
	}
	schedule := make(map[string][]float64, len(p.pumps))
	for _, pump := range p.pumps {
		flow := math.Min(math.Max(lastFlows[pump.ID], 0), pump.MaxFlowM3h)
		if flow < pump.MinFlowM3h {
			flow = 0
		}
		seq := make([]float64, h)
		for t := range seq {
			seq[t] = flow
		}
		schedule[pump.ID] = seq
	}
	return model.ScheduleProposal{PerPumpFlow: schedule, Feasible: false, FallbackReason: reason}
}
