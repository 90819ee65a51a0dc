package physics

import (
	"fmt"
	"math"
)

// CurveConfig describes the piecewise level-to-volume geometry of the tunnel.
// Four bands: a fixed minimum below LevelMinM, quadratic growth up to
// LevelQuadTopM, linear growth up to LevelLinTopM and an inverted parabola
// approaching the fixed maximum at LevelMaxM.
type CurveConfig struct {
	LevelMinM     float64 `json:"level_min_m"`
	LevelQuadTopM float64 `json:"level_quad_top_m"`
	LevelLinTopM  float64 `json:"level_lin_top_m"`
	LevelMaxM     float64 `json:"level_max_m"`
	VolumeMinM3   float64 `json:"volume_min_m3"`
	QuadCoeff     float64 `json:"quad_coeff"`
	LinCoeff      float64 `json:"lin_coeff"`
	InvQuadCoeff  float64 `json:"inv_quad_coeff"`
}

// DefaultCurveConfig returns the surveyed Blominmaki tunnel geometry.
func DefaultCurveConfig() CurveConfig {
	return CurveConfig{
		LevelMinM:     0.4,
		LevelQuadTopM: 5.9,
		LevelLinTopM:  8.6,
		LevelMaxM:     14.1,
		VolumeMinM3:   350,
		QuadCoeff:     2500,
		LinCoeff:      27500,
		InvQuadCoeff:  2500,
	}
}

// Validate checks the geometric constants. Any failure here is a fatal
// configuration error: the conversions assume strictly increasing breakpoints
// and positive band coefficients.
func (c CurveConfig) Validate() error {
	if !(c.LevelMinM < c.LevelQuadTopM && c.LevelQuadTopM < c.LevelLinTopM && c.LevelLinTopM < c.LevelMaxM) {
		return fmt.Errorf("curve breakpoints must be strictly increasing, got %.2f/%.2f/%.2f/%.2f",
			c.LevelMinM, c.LevelQuadTopM, c.LevelLinTopM, c.LevelMaxM)
	}
	if c.QuadCoeff <= 0 || c.LinCoeff <= 0 || c.InvQuadCoeff <= 0 {
		return fmt.Errorf("curve coefficients must be positive")
	}
	if c.VolumeMinM3 < 0 {
		return fmt.Errorf("minimum volume must be non-negative")
	}
	return nil
}

// Curve converts between tunnel level and stored volume. Both directions are
// closed-form per band; the inverse selects the band by volume range.
type Curve struct {
	cfg CurveConfig
	// volume checkpoints at the band boundaries, derived once
	volQuadTop float64
	volLinTop  float64
	volMax     float64
}

// NewCurve validates the configuration and precomputes the volume checkpoints.
func NewCurve(cfg CurveConfig) (*Curve, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Curve{cfg: cfg}
	dq := cfg.LevelQuadTopM - cfg.LevelMinM
	c.volQuadTop = cfg.VolumeMinM3 + cfg.QuadCoeff*dq*dq
	c.volLinTop = c.volQuadTop + cfg.LinCoeff*(cfg.LevelLinTopM-cfg.LevelQuadTopM)
	di := cfg.LevelMaxM - cfg.LevelLinTopM
	c.volMax = c.volLinTop + cfg.InvQuadCoeff*di*di
	return c, nil
}

// VolumeFromLevel maps a level in meters to the stored volume in cubic meters.
func (c *Curve) VolumeFromLevel(levelM float64) float64 {
	cfg := c.cfg
	switch {
	case levelM < cfg.LevelMinM:
		return cfg.VolumeMinM3
	case levelM < cfg.LevelQuadTopM:
		d := levelM - cfg.LevelMinM
		return cfg.VolumeMinM3 + cfg.QuadCoeff*d*d
	case levelM < cfg.LevelLinTopM:
		return c.volQuadTop + cfg.LinCoeff*(levelM-cfg.LevelQuadTopM)
	case levelM <= cfg.LevelMaxM:
		d := cfg.LevelMaxM - levelM
		return c.volMax - cfg.InvQuadCoeff*d*d
	default:
		return c.volMax
	}
}

// LevelFromVolume is the analytic inverse of VolumeFromLevel on each band.
func (c *Curve) LevelFromVolume(volumeM3 float64) float64 {
	cfg := c.cfg
	switch {
	case volumeM3 <= cfg.VolumeMinM3:
		return cfg.LevelMinM
	case volumeM3 <= c.volQuadTop:
		return cfg.LevelMinM + math.Sqrt(math.Max(volumeM3-cfg.VolumeMinM3, 0)/cfg.QuadCoeff)
	case volumeM3 <= c.volLinTop:
		return cfg.LevelQuadTopM + (volumeM3-c.volQuadTop)/cfg.LinCoeff
	case volumeM3 <= c.volMax:
		return cfg.LevelMaxM - math.Sqrt(math.Max(c.volMax-volumeM3, 0)/cfg.InvQuadCoeff)
	default:
		return cfg.LevelMaxM
	}
}

// VolumeMin returns the smallest representable volume.
func (c *Curve) VolumeMin() float64 { return c.cfg.VolumeMinM3 }

// VolumeMax returns the largest representable volume.
func (c *Curve) VolumeMax() float64 { return c.volMax }

// LevelMin returns the level at the minimum volume.
func (c *Curve) LevelMin() float64 { return c.cfg.LevelMinM }

// LevelMax returns the level at the maximum volume.
func (c *Curve) LevelMax() float64 { return c.cfg.LevelMaxM }

// ClampLevel clamps a level to the physical bounds of the tunnel.
func (c *Curve) ClampLevel(levelM float64) float64 {
	return math.Min(math.Max(levelM, c.cfg.LevelMinM), c.cfg.LevelMaxM)
}
