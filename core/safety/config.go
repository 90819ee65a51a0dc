package safety

import "fmt"

// Config holds the hard limits and equipment-cycling rules. These are the
// plant's non-negotiable envelope; the planner's own bounds live in its
// config and may be tighter, never looser.
type Config struct {
	HardMinLevelM float64 `json:"hard_min_level_m"`
	HardMaxLevelM float64 `json:"hard_max_level_m"`
	// FlushLevelM is the level the daily flush drains to.
	FlushLevelM       float64 `json:"flush_level_m"`
	FlushDeadlineHour int     `json:"flush_deadline_hour"`
	FlushToleranceM3  float64 `json:"flush_tolerance_m3"`
	MaxFlushFlowM3h   float64 `json:"max_flush_flow_m3h"`
	// StormInflowM3h defers a pending flush while the forecast exceeds it.
	StormInflowM3h   float64 `json:"storm_inflow_m3h"`
	StormReliefTicks int     `json:"storm_relief_ticks"`
	// Cycling rules: a pump on for less than MinOnTicks may not stop, a pump
	// resting for less than MinOffTicks may not start.
	MinOnTicks  int `json:"min_on_ticks"`
	MinOffTicks int `json:"min_off_ticks"`
	// ActivationThresholdM3h separates "on" from "off" when classifying an
	// applied flow.
	ActivationThresholdM3h float64 `json:"activation_threshold_m3h"`
	// After a flush completes the tunnel is allowed to refill undisturbed
	// until it reaches PostFlushHoldLevelM or the hold window expires.
	PostFlushHoldLevelM float64 `json:"post_flush_hold_level_m"`
	PostFlushHoldTicks  int     `json:"post_flush_hold_ticks"`
	StepMinutes         int     `json:"step_minutes"`
}

// SetDefaults applies the plant defaults (15-minute ticks, 2-hour cycling
// windows, 10:00 flush deadline).
func (c *Config) SetDefaults() {
	if c.HardMinLevelM == 0 {
		c.HardMinLevelM = 0.5
	}
	if c.HardMaxLevelM == 0 {
		c.HardMaxLevelM = 7.5
	}
	if c.FlushLevelM == 0 {
		c.FlushLevelM = 0.5
	}
	if c.FlushDeadlineHour == 0 {
		c.FlushDeadlineHour = 10
	}
	if c.FlushToleranceM3 == 0 {
		c.FlushToleranceM3 = 150
	}
	if c.MaxFlushFlowM3h == 0 {
		c.MaxFlushFlowM3h = 12000
	}
	if c.StormInflowM3h == 0 {
		c.StormInflowM3h = 2600
	}
	if c.StormReliefTicks == 0 {
		c.StormReliefTicks = 12
	}
	if c.MinOnTicks == 0 {
		c.MinOnTicks = 8
	}
	if c.MinOffTicks == 0 {
		c.MinOffTicks = 8
	}
	if c.ActivationThresholdM3h == 0 {
		c.ActivationThresholdM3h = 50
	}
	if c.PostFlushHoldLevelM == 0 {
		c.PostFlushHoldLevelM = 1.8
	}
	if c.PostFlushHoldTicks == 0 {
		c.PostFlushHoldTicks = 12
	}
	if c.StepMinutes == 0 {
		c.StepMinutes = 15
	}
}

// Validate checks the envelope.
func (c Config) Validate() error {
	if c.HardMinLevelM >= c.HardMaxLevelM {
		return fmt.Errorf("safety: hard min level %.2f must be below hard max %.2f", c.HardMinLevelM, c.HardMaxLevelM)
	}
	if c.FlushLevelM < c.HardMinLevelM {
		return fmt.Errorf("safety: flush level %.2f below hard minimum %.2f", c.FlushLevelM, c.HardMinLevelM)
	}
	if c.FlushDeadlineHour < 0 || c.FlushDeadlineHour > 23 {
		return fmt.Errorf("safety: flush deadline hour %d outside [0,23]", c.FlushDeadlineHour)
	}
	if c.MinOnTicks < 0 || c.MinOffTicks < 0 {
		return fmt.Errorf("safety: cycling windows must be non-negative")
	}
	if c.StepMinutes <= 0 {
		return fmt.Errorf("safety: step minutes must be positive")
	}
	return nil
}

// DtHours returns the tick duration in hours.
func (c Config) DtHours() float64 { return float64(c.StepMinutes) / 60 }
