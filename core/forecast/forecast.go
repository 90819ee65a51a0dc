// Package forecast produces short-horizon inflow and price predictions from a
// rolling window of observations. Multi-step forecasts are recursive: each
// one-step prediction is fed back as the newest lag. That needs only one model
// per target but compounds error with the horizon, a documented property of
// the design bounded by tests rather than a defect.
package forecast

import (
	"errors"
	"time"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// ErrInsufficientHistory signals that fewer than lag samples were supplied.
// Callers degrade to a flat forecast instead of failing the control loop.
var ErrInsufficientHistory = errors.New("forecast: insufficient history")

// Config holds the forecaster's shape parameters.
type Config struct {
	HorizonSteps int     `json:"horizon_steps"`
	LagSteps     int     `json:"lag_steps"`
	StepMinutes  int     `json:"step_minutes"`
	RidgeAlpha   float64 `json:"ridge_alpha"`
}

// SetDefaults applies the operating defaults: 8-step horizon and lag window at
// a 15-minute cadence, unit L2 regularization.
func (c *Config) SetDefaults() {
	if c.HorizonSteps == 0 {
		c.HorizonSteps = 8
	}
	if c.LagSteps == 0 {
		c.LagSteps = 8
	}
	if c.StepMinutes == 0 {
		c.StepMinutes = 15
	}
	if c.RidgeAlpha == 0 {
		c.RidgeAlpha = 1.0
	}
}

// Validate checks the shape parameters.
func (c Config) Validate() error {
	if c.HorizonSteps <= 0 || c.LagSteps <= 0 || c.StepMinutes <= 0 {
		return errors.New("forecast: horizon, lag and step must be positive")
	}
	if c.RidgeAlpha < 0 {
		return errors.New("forecast: ridge alpha must be non-negative")
	}
	return nil
}

// Result is one horizon of predictions. Both series have HorizonSteps entries
// and are floored at zero; neither inflow nor price is negative in this
// domain. Degraded results hold the last known value flat.
type Result struct {
	HorizonSteps   int       `json:"horizon_steps"`
	InflowM3h      []float64 `json:"inflow_m3h"`
	PriceEURPerKWh []float64 `json:"price_eur_per_kwh"`
	Degraded       bool      `json:"degraded"`
	DegradedReason string    `json:"degraded_reason,omitempty"`
}

// MaxInflow returns the largest forecast inflow, used for storm detection.
func (r Result) MaxInflow() float64 {
	var max float64
	for _, v := range r.InflowM3h {
		if v > max {
			max = v
		}
	}
	return max
}

// Forecaster predicts inflow and price for the next horizon.
type Forecaster interface {
	Forecast(history []model.Observation, now time.Time) (Result, error)
}

// Flat builds a degraded result holding the given values for every step.
func Flat(horizon int, inflow, price float64, reason string) Result {
	r := Result{
		HorizonSteps:   horizon,
		InflowM3h:      make([]float64, horizon),
		PriceEURPerKWh: make([]float64, horizon),
		Degraded:       true,
		DegradedReason: reason,
	}
	if inflow < 0 {
		inflow = 0
	}
	if price < 0 {
		price = 0
	}
	for i := 0; i < horizon; i++ {
		r.InflowM3h[i] = inflow
		r.PriceEURPerKWh[i] = price
	}
	return r
}
