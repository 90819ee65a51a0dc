// Package plan turns a forecast into a per-pump flow schedule over a rolling
// horizon. The Planner solves a linear program; ReactiveController is the
// threshold baseline. Both implement Proposer so the coordinator is agnostic
// to the strategy it holds.
package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/model"
)

// ErrInfeasible indicates the LP had no feasible solution for the committed
// pump pattern.
var ErrInfeasible = errors.New("plan: lp infeasible")

// ErrTimeout indicates the solver exceeded its time budget.
var ErrTimeout = errors.New("plan: solve timeout")

// Proposer is the strategy capability: propose a flow schedule from the
// current state, the forecast and the flows applied on the previous tick.
type Proposer interface {
	Propose(ctx context.Context, state model.TunnelState, fc forecast.Result, lastFlows map[string]float64) (model.ScheduleProposal, error)
}

// Config holds the planning parameters. Soft-preference weights are in EUR per
// unit of deviation so they compose with the electricity-cost objective.
type Config struct {
	HorizonSteps int `json:"horizon_steps"`
	StepMinutes  int `json:"step_minutes"`
	// Hard level bounds the plan must respect, tightened by VolumeMarginM3.
	HardMinLevelM  float64 `json:"hard_min_level_m"`
	HardMaxLevelM  float64 `json:"hard_max_level_m"`
	VolumeMarginM3 float64 `json:"volume_margin_m3"`
	// Aggregate flow band enforced whenever any pump is on.
	FlowFloorM3h   float64 `json:"flow_floor_m3h"`
	FlowCeilingM3h float64 `json:"flow_ceiling_m3h"`
	// RampMaxM3h bounds per-pump flow change between consecutive running
	// steps; start and stop transitions are exempt.
	RampMaxM3h float64 `json:"ramp_max_m3h"`
	// DriftMaxM3 bounds |V(end) - V(start)| so the horizon cannot trivially
	// drain or fill the tunnel.
	DriftMaxM3   float64 `json:"drift_max_m3"`
	TargetLevelM float64 `json:"target_level_m"`
	// TargetWeight penalizes |V - Vtarget| per m3, ChurnWeight penalizes
	// total-flow change per m3/h, BalanceWeight penalizes per-pump usage
	// deviation from the fleet mean per m3/h.
	TargetWeight   float64 `json:"target_weight"`
	ChurnWeight    float64 `json:"churn_weight"`
	BalanceWeight  float64 `json:"balance_weight"`
	SolveTimeoutMS int     `json:"solve_timeout_ms"`
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.HorizonSteps == 0 {
		c.HorizonSteps = 8
	}
	if c.StepMinutes == 0 {
		c.StepMinutes = 15
	}
	if c.HardMinLevelM == 0 {
		c.HardMinLevelM = 0.5
	}
	if c.HardMaxLevelM == 0 {
		c.HardMaxLevelM = 7.5
	}
	if c.VolumeMarginM3 == 0 {
		c.VolumeMarginM3 = 50
	}
	if c.FlowFloorM3h == 0 {
		c.FlowFloorM3h = 1400
	}
	if c.FlowCeilingM3h == 0 {
		c.FlowCeilingM3h = 16000
	}
	if c.RampMaxM3h == 0 {
		c.RampMaxM3h = 600
	}
	if c.DriftMaxM3 == 0 {
		c.DriftMaxM3 = 2000
	}
	if c.TargetLevelM == 0 {
		c.TargetLevelM = 3.8
	}
	if c.TargetWeight == 0 {
		c.TargetWeight = 0.002
	}
	if c.ChurnWeight == 0 {
		c.ChurnWeight = 0.0005
	}
	if c.BalanceWeight == 0 {
		c.BalanceWeight = 0.0002
	}
	if c.SolveTimeoutMS == 0 {
		c.SolveTimeoutMS = 2000
	}
}

// Validate checks the planning parameters.
func (c Config) Validate() error {
	if c.HorizonSteps <= 0 || c.StepMinutes <= 0 {
		return fmt.Errorf("plan: horizon and step must be positive")
	}
	if c.HardMinLevelM >= c.HardMaxLevelM {
		return fmt.Errorf("plan: hard min level %.2f must be below hard max %.2f", c.HardMinLevelM, c.HardMaxLevelM)
	}
	if c.FlowFloorM3h < 0 || c.FlowCeilingM3h <= c.FlowFloorM3h {
		return fmt.Errorf("plan: flow band [%.0f, %.0f] is invalid", c.FlowFloorM3h, c.FlowCeilingM3h)
	}
	if c.RampMaxM3h <= 0 || c.DriftMaxM3 <= 0 {
		return fmt.Errorf("plan: ramp and drift bounds must be positive")
	}
	if c.TargetWeight < 0 || c.ChurnWeight < 0 || c.BalanceWeight < 0 {
		return fmt.Errorf("plan: penalty weights must be non-negative")
	}
	return nil
}

// DtHours returns the step duration in hours.
func (c Config) DtHours() float64 { return float64(c.StepMinutes) / 60 }

// SolveTimeout returns the solver budget as a duration.
func (c Config) SolveTimeout() time.Duration {
	return time.Duration(c.SolveTimeoutMS) * time.Millisecond
}
