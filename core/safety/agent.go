// Package safety applies the plant's hard rules to planner output before
// anything reaches the pumps. The rules are evaluated in strict priority
// order each tick and the first one that fires decides the command; the
// planner is advisory, this package is authoritative.
package safety

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/logger"
	"github.com/Sukarth/wastewater-optimization/core/model"
	"github.com/Sukarth/wastewater-optimization/core/physics"
)

// Override reason codes, in priority order.
const (
	ReasonBelowMinimum  = "below_minimum_level"
	ReasonPostFlushHold = "post_flush_hold"
	ReasonOverflowRisk  = "overflow_risk"
	ReasonFreqFloor     = "frequency_floor"
	ReasonCycleLock     = "cycle_lock"
	ReasonFlushForced   = "flush_forced"
	ReasonFlushDeferred = "flush_deferred"
	ReasonEmergencyHold = "emergency_hold"
)

// RunMode is a pump's cycling state.
type RunMode string

const (
	ModeRunning RunMode = "running"
	ModeResting RunMode = "resting"
)

// PumpRuntime tracks how long a pump has been in its current mode, in ticks.
type PumpRuntime struct {
	Mode    RunMode `json:"mode"`
	Elapsed int     `json:"elapsed"`
}

// Memory is the agent's persistent state between ticks. It is updated from
// the command actually applied, never from the raw proposal.
type Memory struct {
	LastFlushDate time.Time              `json:"last_flush_date"`
	FlushedToday  bool                   `json:"flushed_today"`
	FlushActive   bool                   `json:"flush_active"`
	PendingFlush  bool                   `json:"pending_flush"`
	PostFlushHold int                    `json:"post_flush_hold"`
	StormTicks    int                    `json:"storm_ticks"`
	PumpRuntime   map[string]PumpRuntime `json:"pump_runtime"`
}

// Agent enforces level limits, pump cycling rules and the daily flush.
type Agent struct {
	cfg   Config
	pumps []model.PumpSpec
	curve *physics.Curve
	log   logger.Logger

	mem          Memory
	dailyRuntime map[string]int
	lastApplied  map[string]float64
	currentDay   time.Time
}

// New builds an agent for the given pump fleet. Pumps are kept sorted
// smallest capacity first so flush allocation fills small units before
// large ones.
func New(cfg Config, pumps []model.PumpSpec, curve *physics.Curve, log logger.Logger) (*Agent, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(pumps) == 0 {
		return nil, fmt.Errorf("safety: no pumps configured")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	sorted := model.SortPumps(pumps)
	a := &Agent{
		cfg:          cfg,
		pumps:        sorted,
		curve:        curve,
		log:          log,
		dailyRuntime: make(map[string]int, len(sorted)),
		lastApplied:  make(map[string]float64, len(sorted)),
	}
	a.mem.PumpRuntime = make(map[string]PumpRuntime, len(sorted))
	for _, p := range sorted {
		a.mem.PumpRuntime[p.ID] = PumpRuntime{Mode: ModeResting, Elapsed: cfg.MinOffTicks}
	}
	return a, nil
}

// Snapshot returns a copy of the agent's memory for logging.
func (a *Agent) Snapshot() Memory {
	cp := a.mem
	cp.PumpRuntime = make(map[string]PumpRuntime, len(a.mem.PumpRuntime))
	for id, rt := range a.mem.PumpRuntime {
		cp.PumpRuntime[id] = rt
	}
	return cp
}

// Enforce validates the first step of a proposal against the hard rules and
// returns the command to apply this tick. inflowM3h is the currently
// observed inflow, fc the forecast the proposal was planned against.
func (a *Agent) Enforce(state model.TunnelState, proposal model.ScheduleProposal, fc forecast.Result, inflowM3h float64) model.AppliedCommand {
	a.rollDay(state.Timestamp)

	base := a.clampToCapacity(proposal.FirstStep())

	// Rule 1: never drain through the hard minimum.
	if state.LevelM <= a.cfg.HardMinLevelM && !a.mem.FlushActive {
		a.log.Warnf("level %.2f m at hard minimum, stopping all pumps", state.LevelM)
		return a.override(zeroFlows(a.pumps), ReasonBelowMinimum)
	}

	// Rule 2: after a flush the tunnel refills undisturbed.
	if a.mem.PostFlushHold > 0 && state.LevelM < a.cfg.PostFlushHoldLevelM {
		return a.override(zeroFlows(a.pumps), ReasonPostFlushHold)
	}

	// Rule 3: imminent overflow trumps everything else, cycling included.
	if state.LevelM >= a.cfg.HardMaxLevelM {
		a.log.Warnf("level %.2f m at hard maximum, forcing maximum drain", state.LevelM)
		total := math.Min(a.fleetCapacity(), a.cfg.MaxFlushFlowM3h)
		return a.override(a.allocateBalanced(total), ReasonOverflowRisk)
	}

	// Rules 4 and 5 are a single pass: frequency-floor corrections first,
	// then dwell-time locks over the corrected flows, so flooring one pump
	// can never bypass another pump's cycle lock.
	//
	// Rule 4: a pump cannot run below its minimum frequency. Commands in the
	// dead band are rounded to off; commands below minimum on a running pump
	// are lifted to the floor.
	floored := false
	for _, p := range a.pumps {
		f := base[p.ID]
		if f < a.cfg.ActivationThresholdM3h {
			if f != 0 {
				base[p.ID] = 0
				floored = true
			}
			continue
		}
		if f < p.MinFlowM3h {
			if a.isRunning(p.ID) {
				base[p.ID] = p.MinFlowM3h
			} else {
				base[p.ID] = 0
			}
			floored = true
		}
	}

	// Rule 5: minimum on/off dwell times.
	locked := false
	for _, p := range a.pumps {
		rt := a.mem.PumpRuntime[p.ID]
		wantsOn := base[p.ID] >= a.cfg.ActivationThresholdM3h
		switch {
		case rt.Mode == ModeRunning && rt.Elapsed < a.cfg.MinOnTicks && !wantsOn:
			base[p.ID] = math.Max(p.MinFlowM3h, math.Min(a.lastApplied[p.ID], p.MaxFlowM3h))
			locked = true
		case rt.Mode == ModeResting && rt.Elapsed < a.cfg.MinOffTicks && wantsOn:
			base[p.ID] = 0
			locked = true
		}
	}
	if floored {
		return a.override(base, ReasonFreqFloor)
	}
	if locked {
		return a.override(base, ReasonCycleLock)
	}

	// Rule 6: the daily flush. Past the deadline (or carrying an unfulfilled
	// flush from yesterday) the tunnel is drained to the flush level, unless
	// a storm is observed or forecast, in which case the flush is deferred
	// and capacity kept available.
	if a.flushDue(state) {
		if a.stormy(fc, inflowM3h) {
			a.mem.PendingFlush = true
			a.log.Infof("flush deferred, storm inflow observed or forecast")
			cmd := model.AppliedCommand{PerPumpFlowNow: base, Overridden: true, OverrideReason: ReasonFlushDeferred}
			return cmd
		}
		a.mem.FlushActive = true
		total := a.flushFlow(state, inflowM3h)
		a.log.Infof("forcing flush at %.0f m3/h from level %.2f m", total, state.LevelM)
		return a.override(a.allocateBalanced(total), ReasonFlushForced)
	}

	return model.AppliedCommand{PerPumpFlowNow: base}
}

// Conservative returns a safe command for ticks where no proposal is
// available at all (planner crash or tick budget blown): hold the last
// applied flows, or stop if the level is at the hard minimum.
func (a *Agent) Conservative(state model.TunnelState) model.AppliedCommand {
	if state.LevelM <= a.cfg.HardMinLevelM {
		return a.override(zeroFlows(a.pumps), ReasonBelowMinimum)
	}
	held := make(map[string]float64, len(a.pumps))
	for _, p := range a.pumps {
		held[p.ID] = a.lastApplied[p.ID]
	}
	return a.override(held, ReasonEmergencyHold)
}

// PostStep updates the agent's memory from the state after integration and
// the command that was actually applied.
func (a *Agent) PostStep(next model.TunnelState, inflowM3h float64, applied model.AppliedCommand) {
	a.rollDay(next.Timestamp)

	if inflowM3h >= a.cfg.StormInflowM3h {
		a.mem.StormTicks = a.cfg.StormReliefTicks
	} else if a.mem.StormTicks > 0 {
		a.mem.StormTicks--
	}

	if a.mem.FlushActive && next.VolumeM3 <= a.curve.VolumeFromLevel(a.cfg.FlushLevelM)+a.cfg.FlushToleranceM3 {
		a.mem.FlushActive = false
		a.mem.PendingFlush = false
		a.mem.FlushedToday = true
		a.mem.LastFlushDate = dateOf(next.Timestamp)
		a.mem.PostFlushHold = a.cfg.PostFlushHoldTicks
		a.log.Infof("flush completed at %.0f m3 (%.2f m)", next.VolumeM3, next.LevelM)
	}

	if a.mem.PostFlushHold > 0 {
		if next.LevelM >= a.cfg.PostFlushHoldLevelM {
			a.mem.PostFlushHold = 0
		} else {
			a.mem.PostFlushHold--
		}
	}

	for _, p := range a.pumps {
		f := applied.PerPumpFlowNow[p.ID]
		on := f >= a.cfg.ActivationThresholdM3h
		rt := a.mem.PumpRuntime[p.ID]
		switch {
		case on && rt.Mode == ModeRunning:
			rt.Elapsed++
		case on:
			rt = PumpRuntime{Mode: ModeRunning, Elapsed: 1}
		case rt.Mode == ModeResting:
			rt.Elapsed++
		default:
			rt = PumpRuntime{Mode: ModeResting, Elapsed: 1}
		}
		a.mem.PumpRuntime[p.ID] = rt
		if on {
			a.dailyRuntime[p.ID]++
		}
		a.lastApplied[p.ID] = f
	}
}

func (a *Agent) override(flows map[string]float64, reason string) model.AppliedCommand {
	return model.AppliedCommand{PerPumpFlowNow: flows, Overridden: true, OverrideReason: reason}
}

func (a *Agent) flushDue(state model.TunnelState) bool {
	if a.mem.FlushActive {
		return true
	}
	if a.mem.FlushedToday {
		return false
	}
	if state.LevelM <= a.cfg.FlushLevelM {
		return false
	}
	return a.mem.PendingFlush || state.Timestamp.Hour() >= a.cfg.FlushDeadlineHour
}

func (a *Agent) stormy(fc forecast.Result, inflowM3h float64) bool {
	if a.mem.StormTicks > 0 || inflowM3h >= a.cfg.StormInflowM3h {
		return true
	}
	return fc.MaxInflow() >= a.cfg.StormInflowM3h
}

// flushFlow sizes the drain so the flush level is reached within one tick
// when possible, bounded by the flush cap and the fleet.
func (a *Agent) flushFlow(state model.TunnelState, inflowM3h float64) float64 {
	target := a.curve.VolumeFromLevel(a.cfg.FlushLevelM)
	needed := (state.VolumeM3-target)/a.cfg.DtHours() + inflowM3h
	total := math.Min(needed, a.cfg.MaxFlushFlowM3h)
	total = math.Min(total, a.fleetCapacity())
	return math.Max(total, a.pumps[0].MinFlowM3h)
}

func (a *Agent) fleetCapacity() float64 {
	var sum float64
	for _, p := range a.pumps {
		sum += p.MaxFlowM3h
	}
	return sum
}

func (a *Agent) isRunning(id string) bool {
	return a.mem.PumpRuntime[id].Mode == ModeRunning
}

func (a *Agent) clampToCapacity(flows map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(a.pumps))
	for _, p := range a.pumps {
		f := flows[p.ID]
		if f < 0 {
			f = 0
		}
		if f > p.MaxFlowM3h {
			f = p.MaxFlowM3h
		}
		out[p.ID] = f
	}
	return out
}

// allocateBalanced spreads a total flow over the fleet, favouring pumps with
// the least runtime today so forced drains wear the fleet evenly. Each pump
// used gets at least its minimum flow; a second pass tops pumps up to
// capacity if the first pass could not place everything.
func (a *Agent) allocateBalanced(total float64) map[string]float64 {
	out := zeroFlows(a.pumps)
	order := make([]model.PumpSpec, len(a.pumps))
	copy(order, a.pumps)
	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := a.dailyRuntime[order[i].ID], a.dailyRuntime[order[j].ID]
		if ri != rj {
			return ri < rj
		}
		return order[i].MaxFlowM3h < order[j].MaxFlowM3h
	})

	remaining := total
	for _, p := range order {
		if remaining < p.MinFlowM3h {
			continue
		}
		f := math.Min(remaining, p.MaxFlowM3h)
		out[p.ID] = f
		remaining -= f
	}
	if remaining > 0 {
		for _, p := range order {
			if out[p.ID] == 0 || out[p.ID] >= p.MaxFlowM3h {
				continue
			}
			add := math.Min(remaining, p.MaxFlowM3h-out[p.ID])
			out[p.ID] += add
			remaining -= add
			if remaining <= 0 {
				break
			}
		}
	}
	return out
}

func (a *Agent) rollDay(ts time.Time) {
	day := dateOf(ts)
	if a.currentDay.IsZero() {
		a.currentDay = day
		return
	}
	if day.After(a.currentDay) {
		if !a.mem.FlushedToday {
			a.mem.PendingFlush = true
		}
		a.mem.FlushedToday = false
		a.dailyRuntime = make(map[string]int, len(a.pumps))
		a.currentDay = day
	}
}

func zeroFlows(pumps []model.PumpSpec) map[string]float64 {
	out := make(map[string]float64, len(pumps))
	for _, p := range pumps {
		out[p.ID] = 0
	}
	return out
}

func dateOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}
