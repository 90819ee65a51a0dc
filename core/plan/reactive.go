package plan

import (
	"context"
	"fmt"
	"math"

	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/model"
)

// ReactiveConfig parametrizes the threshold baseline controller.
type ReactiveConfig struct {
	// LevelHighM pumps flat out, LevelLowM stops pumping, in between the
	// controller tracks inflow with a proportional correction toward
	// LevelOptimalM.
	LevelHighM    float64 `json:"level_high_m"`
	LevelLowM     float64 `json:"level_low_m"`
	LevelOptimalM float64 `json:"level_optimal_m"`
	// GainM3hPerM converts level error to extra outflow.
	GainM3hPerM float64 `json:"gain_m3h_per_m"`
}

// SetDefaults applies the baseline thresholds.
func (c *ReactiveConfig) SetDefaults() {
	if c.LevelHighM == 0 {
		c.LevelHighM = 6.5
	}
	if c.LevelLowM == 0 {
		c.LevelLowM = 2.0
	}
	if c.LevelOptimalM == 0 {
		c.LevelOptimalM = 3.5
	}
	if c.GainM3hPerM == 0 {
		c.GainM3hPerM = 200
	}
}

// Validate checks the thresholds are ordered.
func (c ReactiveConfig) Validate() error {
	if !(c.LevelLowM < c.LevelOptimalM && c.LevelOptimalM < c.LevelHighM) {
		return fmt.Errorf("plan: reactive levels must satisfy low < optimal < high")
	}
	return nil
}

// ReactiveController is the rule-based comparison strategy: no optimization,
// just level thresholds. Useful as a benchmark against the LP planner and as
// the simplest Proposer variant.
type ReactiveController struct {
	cfg   ReactiveConfig
	pumps []model.PumpSpec
}

// NewReactiveController builds the baseline over the shared pump table.
func NewReactiveController(cfg ReactiveConfig, pumps []model.PumpSpec) (*ReactiveController, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(pumps) == 0 {
		return nil, fmt.Errorf("plan: at least one pump is required")
	}
	return &ReactiveController{cfg: cfg, pumps: model.SortPumps(pumps)}, nil
}

// Propose implements Proposer. The same command is repeated across the
// horizon; only the first step matters for execution.
func (r *ReactiveController) Propose(_ context.Context, state model.TunnelState, fc forecast.Result, _ map[string]float64) (model.ScheduleProposal, error) {
	h := fc.HorizonSteps
	if h <= 0 {
		h = 1
	}
	inflow := 0.0
	if len(fc.InflowM3h) > 0 {
		inflow = fc.InflowM3h[0]
	}

	var total float64
	switch {
	case state.LevelM >= r.cfg.LevelHighM:
		for _, p := range r.pumps {
			total += p.MaxFlowM3h
		}
	case state.LevelM <= r.cfg.LevelLowM:
		total = 0
	default:
		total = math.Max(inflow+(state.LevelM-r.cfg.LevelOptimalM)*r.cfg.GainM3hPerM, 0)
	}

	flows := stackFlows(r.pumps, total)
	schedule := make(map[string][]float64, len(r.pumps))
	for _, p := range r.pumps {
		seq := make([]float64, h)
		for t := range seq {
			seq[t] = flows[p.ID]
		}
		schedule[p.ID] = seq
	}
	return model.ScheduleProposal{PerPumpFlow: schedule, Feasible: true}, nil
}

// stackFlows distributes a total flow over pumps smallest first, honoring each
// pump's minimum operating flow: a pump either runs inside its band or not at
// all.
func stackFlows(pumps []model.PumpSpec, total float64) map[string]float64 {
	flows := make(map[string]float64, len(pumps))
	for _, p := range pumps {
		flows[p.ID] = 0
	}
	remaining := total
	for _, p := range pumps {
		if remaining < p.MinFlowM3h {
			break
		}
		f := math.Min(remaining, p.MaxFlowM3h)
		flows[p.ID] = f
		remaining -= f
	}
	return flows
}
