package physics

import (
	"fmt"
	"time"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// BoundaryEvent flags that a step clamped the volume at a physical bound,
// signaling potential overflow or underflow to the caller.
type BoundaryEvent int

const (
	BoundaryNone BoundaryEvent = iota
	BoundaryMin
	BoundaryMax
)

func (e BoundaryEvent) String() string {
	switch e {
	case BoundaryMin:
		return "volume_min"
	case BoundaryMax:
		return "volume_max"
	default:
		return "none"
	}
}

// EngineConfig holds the hydraulic constants of the energy model.
type EngineConfig struct {
	WaterDensityKgM3 float64 `json:"water_density_kg_m3"`
	GravityMS2       float64 `json:"gravity_m_s2"`
	// SourceLevelM is the discharge elevation at the treatment plant; the pump
	// head is this elevation minus the tunnel level.
	SourceLevelM float64 `json:"source_level_m"`
}

// DefaultEngineConfig returns the plant constants.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{WaterDensityKgM3: 1000, GravityMS2: 9.81, SourceLevelM: 30}
}

// Validate checks the hydraulic constants.
func (c EngineConfig) Validate() error {
	if c.WaterDensityKgM3 <= 0 || c.GravityMS2 <= 0 {
		return fmt.Errorf("density and gravity must be positive")
	}
	if c.SourceLevelM <= 0 {
		return fmt.Errorf("source level must be positive")
	}
	return nil
}

// Engine is the deterministic digital twin of the tunnel. It owns no state;
// callers pass TunnelState by value and receive the successor.
type Engine struct {
	cfg   EngineConfig
	curve *Curve
}

// NewEngine builds an engine over a validated curve.
func NewEngine(cfg EngineConfig, curve *Curve) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, curve: curve}, nil
}

// Curve exposes the level-volume conversions.
func (e *Engine) Curve() *Curve { return e.curve }

// StateAtLevel builds a consistent state from a measured level.
func (e *Engine) StateAtLevel(levelM float64, ts time.Time) model.TunnelState {
	lvl := e.curve.ClampLevel(levelM)
	return model.TunnelState{
		LevelM:    lvl,
		VolumeM3:  e.curve.VolumeFromLevel(lvl),
		Timestamp: ts,
	}
}

// Step advances the tunnel one timestep given net flow. The volume is clamped
// to the curve's bounds and any clamping is reported as a boundary event.
func (e *Engine) Step(state model.TunnelState, inflowM3h, outflowM3h, dtHours float64) (model.TunnelState, BoundaryEvent) {
	volume := state.VolumeM3 + (inflowM3h-outflowM3h)*dtHours
	event := BoundaryNone
	if volume < e.curve.VolumeMin() {
		volume = e.curve.VolumeMin()
		event = BoundaryMin
	} else if volume > e.curve.VolumeMax() {
		volume = e.curve.VolumeMax()
		event = BoundaryMax
	}
	return model.TunnelState{
		VolumeM3:  volume,
		LevelM:    e.curve.LevelFromVolume(volume),
		Timestamp: state.Timestamp,
	}, event
}

// Head returns the lift the pumps work against at the given tunnel level.
func (e *Engine) Head(levelM float64) float64 {
	return e.cfg.SourceLevelM - levelM
}

// EnergyForPump returns the energy in kWh spent moving the given flow for
// dtHours against the given head, using the pump's sampled efficiency curve.
// Zero flow costs zero energy regardless of efficiency.
func (e *Engine) EnergyForPump(pump model.PumpSpec, flowM3h, headM, dtHours float64) float64 {
	if flowM3h <= 0 || headM <= 0 {
		return 0
	}
	eta := pump.EfficiencyAt(flowM3h)
	if eta <= 0 {
		return 0
	}
	powerKW := flowM3h * headM * e.cfg.WaterDensityKgM3 * e.cfg.GravityMS2 / (3.6e6 * eta)
	return powerKW * dtHours
}

// EnergyForCommand sums EnergyForPump over an applied command.
func (e *Engine) EnergyForCommand(pumps []model.PumpSpec, flows map[string]float64, headM, dtHours float64) float64 {
	var total float64
	for _, p := range pumps {
		total += e.EnergyForPump(p, flows[p.ID], headM, dtHours)
	}
	return total
}
