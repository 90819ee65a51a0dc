package model

import "time"

// TunnelState is a snapshot of the storage tunnel. Volume and level are two
// views of the same quantity and must agree through the volume curve; only the
// physics engine produces new states.
type TunnelState struct {
	VolumeM3  float64   `json:"volume_m3"`
	LevelM    float64   `json:"level_m"`
	Timestamp time.Time `json:"timestamp"`
}

// Observation is one sample of the measured operating conditions, taken at the
// feed's fixed cadence.
type Observation struct {
	Timestamp      time.Time `json:"timestamp"`
	InflowM3h      float64   `json:"inflow_m3h"`
	PriceEURPerKWh float64   `json:"price_eur_per_kwh"`
}

// ScheduleProposal is a planner's flow schedule over its horizon. Only the
// first step of each pump's sequence is ever executed; the remainder is
// advisory and recomputed next tick.
type ScheduleProposal struct {
	PerPumpFlow map[string][]float64 `json:"per_pump_flow"`
	// ObjectiveEUR is the electricity-cost part of the solved objective. The
	// realized cost differs because the planner evaluates efficiency at the
	// nominal operating point while the twin uses the full curve.
	ObjectiveEUR   float64 `json:"objective_eur"`
	Feasible       bool    `json:"feasible"`
	FallbackReason string  `json:"fallback_reason,omitempty"`
}

// FirstStep returns the flow commanded for each pump at the first horizon step.
func (p ScheduleProposal) FirstStep() map[string]float64 {
	out := make(map[string]float64, len(p.PerPumpFlow))
	for id, seq := range p.PerPumpFlow {
		if len(seq) > 0 {
			out[id] = seq[0]
		} else {
			out[id] = 0
		}
	}
	return out
}

// AppliedCommand is the per-pump flow actually sent to the pumps for one tick,
// after safety enforcement.
type AppliedCommand struct {
	PerPumpFlowNow map[string]float64 `json:"per_pump_flow_now"`
	Overridden     bool               `json:"overridden"`
	OverrideReason string             `json:"override_reason,omitempty"`
}

// TotalFlow returns the aggregate commanded outflow in m3/h.
func (c AppliedCommand) TotalFlow() float64 {
	var sum float64
	for _, f := range c.PerPumpFlowNow {
		sum += f
	}
	return sum
}
