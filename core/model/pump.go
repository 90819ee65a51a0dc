package model

import (
	"fmt"
	"sort"
)

// PumpClass groups pumps sharing a hydraulic design.
type PumpClass string

const (
	PumpSmall PumpClass = "small"
	PumpLarge PumpClass = "large"
)

// EfficiencyPoint is one sampled point of a pump's efficiency curve.
type EfficiencyPoint struct {
	FlowM3h float64 `json:"flow_m3h"`
	Eta     float64 `json:"eta"`
}

// PumpSpec is the immutable configuration of one pump. It is loaded once and
// shared read-only by the planner, the safety agent and the physics engine.
type PumpSpec struct {
	ID      string    `json:"id"`
	Class   PumpClass `json:"class"`
	PowerKW float64   `json:"power_kw"`
	// MinFlowM3h is the flow at the minimum safe drive frequency. Commands
	// between zero and this value are not valid operating points.
	MinFlowM3h float64           `json:"min_flow_m3h"`
	MaxFlowM3h float64           `json:"max_flow_m3h"`
	Efficiency []EfficiencyPoint `json:"efficiency"`
}

// Validate checks that the pump configuration is sound.
func (p PumpSpec) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("pump id is required")
	}
	if p.Class != PumpSmall && p.Class != PumpLarge {
		return fmt.Errorf("pump %s: unknown class %q", p.ID, p.Class)
	}
	if p.MaxFlowM3h <= 0 {
		return fmt.Errorf("pump %s: max flow must be positive", p.ID)
	}
	if p.MinFlowM3h < 0 || p.MinFlowM3h > p.MaxFlowM3h {
		return fmt.Errorf("pump %s: min flow %.1f outside [0, %.1f]", p.ID, p.MinFlowM3h, p.MaxFlowM3h)
	}
	if len(p.Efficiency) == 0 {
		return fmt.Errorf("pump %s: efficiency curve is empty", p.ID)
	}
	if !sort.SliceIsSorted(p.Efficiency, func(i, j int) bool {
		return p.Efficiency[i].FlowM3h < p.Efficiency[j].FlowM3h
	}) {
		return fmt.Errorf("pump %s: efficiency samples must be sorted by flow", p.ID)
	}
	for _, pt := range p.Efficiency {
		if pt.Eta <= 0 || pt.Eta > 1 {
			return fmt.Errorf("pump %s: efficiency %.3f at %.0f m3/h outside (0,1]", p.ID, pt.Eta, pt.FlowM3h)
		}
	}
	return nil
}

// EfficiencyAt interpolates the efficiency curve at the given flow. Flows
// outside the sampled range clamp to the nearest sample.
func (p PumpSpec) EfficiencyAt(flowM3h float64) float64 {
	pts := p.Efficiency
	if len(pts) == 0 {
		return 0
	}
	if flowM3h <= pts[0].FlowM3h {
		return pts[0].Eta
	}
	last := pts[len(pts)-1]
	if flowM3h >= last.FlowM3h {
		return last.Eta
	}
	for i := 1; i < len(pts); i++ {
		if flowM3h <= pts[i].FlowM3h {
			lo, hi := pts[i-1], pts[i]
			span := hi.FlowM3h - lo.FlowM3h
			if span <= 0 {
				return lo.Eta
			}
			frac := (flowM3h - lo.FlowM3h) / span
			return lo.Eta + frac*(hi.Eta-lo.Eta)
		}
	}
	return last.Eta
}

// NominalEfficiency is the efficiency at the pump's best sampled point, used by
// the planner as its linearization point.
func (p PumpSpec) NominalEfficiency() float64 {
	best := 0.0
	for _, pt := range p.Efficiency {
		if pt.Eta > best {
			best = pt.Eta
		}
	}
	if best == 0 {
		return 0.8
	}
	return best
}

// SortPumps orders pumps smallest capacity first with the ID as tie-breaker,
// the order used when stacking pumps to meet a total flow.
func SortPumps(pumps []PumpSpec) []PumpSpec {
	out := make([]PumpSpec, len(pumps))
	copy(out, pumps)
	sort.Slice(out, func(i, j int) bool {
		if out[i].MaxFlowM3h != out[j].MaxFlowM3h {
			return out[i].MaxFlowM3h < out[j].MaxFlowM3h
		}
		return out[i].ID < out[j].ID
	})
	return out
}
