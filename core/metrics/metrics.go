// Package metrics defines the observability contracts for the control loop.
// Sinks receive one TickEvent per tick plus solve timings; implementations
// live under infra/metrics.
package metrics

import "time"

// TickEvent is the per-tick snapshot recorded for observability.
type TickEvent struct {
	RunID          string
	Step           int
	Time           time.Time
	LevelM         float64
	VolumeM3       float64
	InflowM3h      float64
	PriceEURPerKWh float64
	TotalFlowM3h   float64
	PumpsOn        int
	EnergyKWh      float64
	CostEUR        float64
	Feasible       bool
	Overridden     bool
	OverrideReason string
	BoundaryEvent  string
	Degraded       bool
}

// Sink records tick events for observability purposes.
type Sink interface {
	RecordTick(ev TickEvent) error
}

// SolveEvent captures one planner solve attempt.
type SolveEvent struct {
	Time     time.Time
	Duration time.Duration
	Action   string
	Feasible bool
}

// SolveRecorder is implemented by sinks able to record solve timings.
type SolveRecorder interface {
	RecordSolve(ev SolveEvent) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickEvent) error   { return nil }
func (NopSink) RecordSolve(SolveEvent) error { return nil }
