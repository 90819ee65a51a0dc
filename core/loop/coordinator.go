// Package loop runs the rolling-horizon control cycle: observe, forecast,
// plan, enforce, integrate, record. Each tick re-solves the full horizon and
// executes only the first step.
package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Sukarth/wastewater-optimization/core/events"
	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/logger"
	"github.com/Sukarth/wastewater-optimization/core/metrics"
	"github.com/Sukarth/wastewater-optimization/core/model"
	"github.com/Sukarth/wastewater-optimization/core/physics"
	"github.com/Sukarth/wastewater-optimization/core/plan"
	"github.com/Sukarth/wastewater-optimization/core/safety"
	"github.com/Sukarth/wastewater-optimization/core/tags"
	"github.com/Sukarth/wastewater-optimization/core/ticklog"
	"github.com/Sukarth/wastewater-optimization/data"
	"github.com/Sukarth/wastewater-optimization/internal/eventbus"
)

// Config holds the loop parameters.
type Config struct {
	StepMinutes int `json:"step_minutes"`
	// HistorySteps bounds the observation ring fed to the forecaster.
	HistorySteps int `json:"history_steps"`
	// RefitEverySteps re-trains the forecast models on the rolling window.
	RefitEverySteps int `json:"refit_every_steps"`
	// TickBudgetMS bounds the whole decision phase of a tick; past it the
	// loop degrades to the safety agent's conservative command.
	TickBudgetMS  int     `json:"tick_budget_ms"`
	AckTimeoutMS  int     `json:"ack_timeout_ms"`
	InitialLevelM float64 `json:"initial_level_m"`
}

// SetDefaults applies the plant cadence: 15-minute ticks, a week of history,
// daily refits.
func (c *Config) SetDefaults() {
	if c.StepMinutes == 0 {
		c.StepMinutes = 15
	}
	if c.HistorySteps == 0 {
		c.HistorySteps = 672
	}
	if c.RefitEverySteps == 0 {
		c.RefitEverySteps = 96
	}
	if c.TickBudgetMS == 0 {
		c.TickBudgetMS = 5000
	}
	if c.AckTimeoutMS == 0 {
		c.AckTimeoutMS = 1000
	}
	if c.InitialLevelM == 0 {
		c.InitialLevelM = 3.5
	}
}

// Validate checks the loop parameters.
func (c Config) Validate() error {
	if c.StepMinutes <= 0 {
		return fmt.Errorf("loop: step minutes must be positive")
	}
	if c.HistorySteps <= 0 {
		return fmt.Errorf("loop: history steps must be positive")
	}
	if c.TickBudgetMS <= 0 {
		return fmt.Errorf("loop: tick budget must be positive")
	}
	return nil
}

// DtHours returns the tick duration in hours.
func (c Config) DtHours() float64 { return float64(c.StepMinutes) / 60 }

// Fitter is implemented by forecasters that train on the rolling window.
type Fitter interface {
	Fit(history []model.Observation) error
}

// Deps wires the coordinator's collaborators. Engine, Planner, Agent and
// Forecaster are required; the rest default to no-ops.
type Deps struct {
	Engine     *physics.Engine
	Pumps      []model.PumpSpec
	Forecaster forecast.Forecaster
	Planner    plan.Proposer
	Agent      *safety.Agent
	Store      ticklog.Store
	Sink       metrics.Sink
	Bus        eventbus.EventBus
	TagWriter  tags.Writer
	TagReader  tags.Reader
	Log        logger.Logger
}

// Coordinator drives one control loop over a single tunnel.
type Coordinator struct {
	cfg   Config
	runID string
	deps  Deps
	log   logger.Logger

	state     model.TunnelState
	history   []model.Observation
	lastFlows map[string]float64
	step      int

	totalEnergyKWh float64
	totalCostEUR   float64
}

// New builds a Coordinator with a fresh run ID.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Engine == nil || deps.Forecaster == nil || deps.Planner == nil || deps.Agent == nil {
		return nil, fmt.Errorf("loop: engine, forecaster, planner and agent are required")
	}
	if len(deps.Pumps) == 0 {
		return nil, fmt.Errorf("loop: no pumps configured")
	}
	if deps.Store == nil {
		deps.Store = ticklog.NopStore{}
	}
	if deps.Sink == nil {
		deps.Sink = metrics.NopSink{}
	}
	if deps.Log == nil {
		deps.Log = &logger.NopLogger{}
	}
	deps.Pumps = model.SortPumps(deps.Pumps)
	return &Coordinator{
		cfg:       cfg,
		runID:     uuid.NewString(),
		deps:      deps,
		log:       deps.Log,
		state:     deps.Engine.StateAtLevel(cfg.InitialLevelM, time.Time{}),
		lastFlows: make(map[string]float64, len(deps.Pumps)),
	}, nil
}

// RunID identifies this run in the tick log and metrics.
func (c *Coordinator) RunID() string { return c.runID }

// State returns the current twin state.
func (c *Coordinator) State() model.TunnelState { return c.state }

// Step returns the number of completed ticks.
func (c *Coordinator) Step() int { return c.step }

// Totals returns the realized energy and cost so far.
func (c *Coordinator) Totals() (energyKWh, costEUR float64) {
	return c.totalEnergyKWh, c.totalCostEUR
}

// Run consumes the source until exhaustion or context cancellation.
func (c *Coordinator) Run(ctx context.Context, src data.Source) error {
	c.log.Infof("run %s starting at level %.2f m", c.runID, c.state.LevelM)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		obs, err := src.Next()
		if errors.Is(err, io.EOF) {
			c.log.Infof("run %s finished after %d ticks, %.1f kWh, %.2f EUR",
				c.runID, c.step, c.totalEnergyKWh, c.totalCostEUR)
			return nil
		}
		if err != nil {
			return fmt.Errorf("loop: observation source: %w", err)
		}
		if err := c.Tick(ctx, obs); err != nil {
			return err
		}
	}
}

// Tick executes one full control cycle for the given observation.
func (c *Coordinator) Tick(ctx context.Context, obs model.Observation) error {
	c.state.Timestamp = obs.Timestamp
	before := c.state
	c.observe(obs)

	mode := c.mode()
	c.maybeRefit()

	fc := c.forecastNow(obs)

	var proposal model.ScheduleProposal
	var cmd model.AppliedCommand
	switch mode {
	case tags.ModeEmergency:
		cmd = c.deps.Agent.Conservative(c.state)
		proposal = model.ScheduleProposal{Feasible: false, FallbackReason: "emergency_mode"}
	case tags.ModeManual:
		// Operators drive the pumps; the loop observes and records only.
		proposal = model.ScheduleProposal{Feasible: false, FallbackReason: "manual_mode"}
		cmd = model.AppliedCommand{PerPumpFlowNow: map[string]float64{}, OverrideReason: "manual_mode"}
	default:
		proposal = c.propose(ctx, fc)
		cmd = c.deps.Agent.Enforce(c.state, proposal, fc, obs.InflowM3h)
	}

	if mode != tags.ModeManual {
		c.writeSetpoints(cmd)
	}

	dt := c.cfg.DtHours()
	head := c.deps.Engine.Head(c.state.LevelM)
	next, boundary := c.deps.Engine.Step(c.state, obs.InflowM3h, cmd.TotalFlow(), dt)
	next.Timestamp = obs.Timestamp.Add(time.Duration(c.cfg.StepMinutes) * time.Minute)

	energy := c.deps.Engine.EnergyForCommand(c.deps.Pumps, cmd.PerPumpFlowNow, head, dt)
	cost := energy * obs.PriceEURPerKWh
	c.totalEnergyKWh += energy
	c.totalCostEUR += cost

	c.record(ctx, before, next, obs, fc, proposal, cmd, energy, cost, boundary)

	c.deps.Agent.PostStep(next, obs.InflowM3h, cmd)
	for _, p := range c.deps.Pumps {
		c.lastFlows[p.ID] = cmd.PerPumpFlowNow[p.ID]
	}
	c.state = next
	c.step++
	return nil
}

func (c *Coordinator) observe(obs model.Observation) {
	c.history = append(c.history, obs)
	if len(c.history) > c.cfg.HistorySteps {
		c.history = c.history[len(c.history)-c.cfg.HistorySteps:]
	}
}

func (c *Coordinator) mode() tags.Mode {
	if c.deps.TagReader == nil {
		return tags.ModeAuto
	}
	mode, err := c.deps.TagReader.Mode()
	if err != nil {
		c.log.Warnf("mode read failed, assuming auto: %v", err)
		return tags.ModeAuto
	}
	return mode
}

func (c *Coordinator) maybeRefit() {
	fitter, ok := c.deps.Forecaster.(Fitter)
	if !ok || c.step%c.cfg.RefitEverySteps != 0 {
		return
	}
	if err := fitter.Fit(c.history); err != nil {
		if errors.Is(err, forecast.ErrInsufficientHistory) {
			c.log.Debugf("forecast refit skipped: %v", err)
		} else {
			c.log.Warnf("forecast refit failed: %v", err)
		}
	}
}

func (c *Coordinator) forecastNow(obs model.Observation) forecast.Result {
	fc, err := c.deps.Forecaster.Forecast(c.history, obs.Timestamp)
	if err != nil {
		c.log.Warnf("forecast failed, holding current conditions flat: %v", err)
		return forecast.Flat(1, obs.InflowM3h, obs.PriceEURPerKWh, "forecast_error")
	}
	return fc
}

// propose runs the planner inside the tick budget. A planner that errors or
// blows the budget degrades to the safety agent's conservative command via a
// hold-last-flows proposal.
func (c *Coordinator) propose(ctx context.Context, fc forecast.Result) model.ScheduleProposal {
	budgetCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TickBudgetMS)*time.Millisecond)
	defer cancel()

	start := time.Now()
	proposal, err := c.deps.Planner.Propose(budgetCtx, c.state, fc, c.lastFlows)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Errorf("planner failed: %v", err)
		proposal = model.ScheduleProposal{Feasible: false, FallbackReason: "planner_error"}
	}

	action := "lp_solved"
	if !proposal.Feasible {
		action = "fallback"
	}
	c.publish(events.SolveEvent{
		RunID:        c.runID,
		Step:         c.step,
		Time:         c.state.Timestamp,
		Action:       action,
		Duration:     elapsed,
		ObjectiveEUR: proposal.ObjectiveEUR,
		Feasible:     proposal.Feasible,
	})
	return proposal
}

func (c *Coordinator) writeSetpoints(cmd model.AppliedCommand) {
	if c.deps.TagWriter == nil {
		return
	}
	timeout := time.Duration(c.cfg.AckTimeoutMS) * time.Millisecond
	for _, p := range c.deps.Pumps {
		cmdID, err := c.deps.TagWriter.WriteSetpoint(p.ID, cmd.PerPumpFlowNow[p.ID])
		if err != nil {
			c.log.Errorf("setpoint write for %s failed: %v", p.ID, err)
			continue
		}
		if ok, err := c.deps.TagWriter.WaitForAck(cmdID, timeout); !ok {
			c.log.Warnf("setpoint %s for %s not acknowledged: %v", cmdID, p.ID, err)
		}
	}
}

func (c *Coordinator) record(ctx context.Context, before, after model.TunnelState, obs model.Observation,
	fc forecast.Result, proposal model.ScheduleProposal, cmd model.AppliedCommand,
	energy, cost float64, boundary physics.BoundaryEvent) {

	boundaryStr := ""
	if boundary != physics.BoundaryNone {
		boundaryStr = boundary.String()
		c.log.Warnf("volume clamped at %s (level %.2f m)", boundaryStr, after.LevelM)
		c.publish(events.BoundaryEvent{
			RunID: c.runID, Step: c.step, Time: obs.Timestamp,
			Event: boundaryStr, State: after,
		})
	}
	if cmd.Overridden {
		c.publish(events.OverrideEvent{
			RunID: c.runID, Step: c.step, Time: obs.Timestamp, Reason: cmd.OverrideReason,
		})
	}

	rec := ticklog.TickRecord{
		RunID:                  c.runID,
		Step:                   c.step,
		Timestamp:              obs.Timestamp,
		StateBefore:            before,
		StateAfter:             after,
		InflowM3h:              obs.InflowM3h,
		PriceEURPerKWh:         obs.PriceEURPerKWh,
		ForecastInflowM3h:      fc.InflowM3h,
		ForecastPriceEURPerKWh: fc.PriceEURPerKWh,
		ForecastDegraded:       fc.Degraded,
		DegradedReason:         fc.DegradedReason,
		Proposal:               proposal,
		Applied:                cmd,
		EnergyKWh:              energy,
		CostEUR:                cost,
		BoundaryEvent:          boundaryStr,
	}
	if err := c.deps.Store.Append(ctx, rec); err != nil {
		c.log.Errorf("tick log append failed: %v", err)
	}

	pumpsOn := 0
	for _, f := range cmd.PerPumpFlowNow {
		if f > 0 {
			pumpsOn++
		}
	}
	ev := metrics.TickEvent{
		RunID:          c.runID,
		Step:           c.step,
		Time:           obs.Timestamp,
		LevelM:         after.LevelM,
		VolumeM3:       after.VolumeM3,
		InflowM3h:      obs.InflowM3h,
		PriceEURPerKWh: obs.PriceEURPerKWh,
		TotalFlowM3h:   cmd.TotalFlow(),
		PumpsOn:        pumpsOn,
		EnergyKWh:      energy,
		CostEUR:        cost,
		Feasible:       proposal.Feasible,
		Overridden:     cmd.Overridden,
		OverrideReason: cmd.OverrideReason,
		BoundaryEvent:  boundaryStr,
		Degraded:       fc.Degraded,
	}
	if err := c.deps.Sink.RecordTick(ev); err != nil {
		c.log.Errorf("metrics sink failed: %v", err)
	}

	c.publish(events.TickEvent{
		RunID:     c.runID,
		Step:      c.step,
		Time:      obs.Timestamp,
		State:     after,
		Applied:   cmd,
		InflowM3h: obs.InflowM3h,
		EnergyKWh: energy,
		CostEUR:   cost,
		Degraded:  fc.Degraded,
	})
}

func (c *Coordinator) publish(ev eventbus.Event) {
	if c.deps.Bus != nil {
		c.deps.Bus.Publish(ev)
	}
}
