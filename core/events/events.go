// Package events defines the control-loop events emitted on the event bus.
//
// Available event types:
//   - TickEvent: a completed control tick
//   - OverrideEvent: the safety agent changed a planner command
//   - BoundaryEvent: the tunnel hit its minimum or maximum volume
//   - SolveEvent: one planner solve attempt
package events

import (
	"time"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// TickEvent is published once per tick, after integration.
type TickEvent struct {
	RunID     string
	Step      int
	Time      time.Time
	State     model.TunnelState
	Applied   model.AppliedCommand
	InflowM3h float64
	EnergyKWh float64
	CostEUR   float64
	Degraded  bool
}

// OverrideEvent is published whenever the applied command differs from the
// planner's proposal.
type OverrideEvent struct {
	RunID  string
	Step   int
	Time   time.Time
	Reason string
}

// BoundaryEvent is published when integration clamps the volume at a bound.
type BoundaryEvent struct {
	RunID string
	Step  int
	Time  time.Time
	Event string
	State model.TunnelState
}

// SolveEvent is published for each planner solve. Action is "lp_solved",
// "lp_retry", or "fallback".
type SolveEvent struct {
	RunID        string
	Step         int
	Time         time.Time
	Action       string
	Duration     time.Duration
	ObjectiveEUR float64
	Feasible     bool
}
