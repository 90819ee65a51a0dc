package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/Sukarth/wastewater-optimization/core/logger"
	"github.com/Sukarth/wastewater-optimization/core/model"
)

// featureDim is lag values plus day/week seasonality encodings, window mean
// and std, and the intercept.
func featureDim(lag int) int { return lag + 7 }

// featureVector builds the regression features for one prediction. window is
// ordered oldest to newest; lag_1 (most recent) comes first in the output.
// The identical builder is used when fitting and when predicting, so a
// train/inference feature mismatch cannot occur.
func featureVector(window []float64, ts time.Time) []float64 {
	lag := len(window)
	x := make([]float64, featureDim(lag))
	for i := 0; i < lag; i++ {
		x[i] = window[lag-1-i]
	}
	minutes := float64(ts.Hour()*60 + ts.Minute())
	x[lag] = math.Sin(2 * math.Pi * minutes / 1440)
	x[lag+1] = math.Cos(2 * math.Pi * minutes / 1440)
	dow := float64(ts.Weekday())
	x[lag+2] = math.Sin(2 * math.Pi * dow / 7)
	x[lag+3] = math.Cos(2 * math.Pi * dow / 7)
	var mean float64
	for _, v := range window {
		mean += v
	}
	mean /= float64(lag)
	var variance float64
	for _, v := range window {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(lag)
	x[lag+4] = mean
	x[lag+5] = math.Sqrt(variance)
	x[lag+6] = 1 // intercept
	return x
}

// ridgeModel holds one fitted L2-regularized linear regression.
type ridgeModel struct {
	weights []float64
}

func (m *ridgeModel) predict(x []float64) float64 {
	var sum float64
	for i, w := range m.weights {
		sum += w * x[i]
	}
	return sum
}

// fitRidge solves (X'X + alpha*I) w = X'y in closed form.
func fitRidge(rows [][]float64, y []float64, alpha float64) (*ridgeModel, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("forecast: no training rows")
	}
	n, d := len(rows), len(rows[0])
	x := mat.NewDense(n, d, nil)
	for i, r := range rows {
		x.SetRow(i, r)
	}
	yv := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for i := 0; i < d; i++ {
		xtx.Set(i, i, xtx.At(i, i)+alpha)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)

	var w mat.VecDense
	if err := w.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("forecast: ridge solve: %w", err)
	}
	weights := make([]float64, d)
	copy(weights, w.RawVector().Data)
	return &ridgeModel{weights: weights}, nil
}

// RidgeForecaster predicts inflow and price with one ridge regression per
// target. Weights are fitted once from the bootstrap history (or loaded from
// offline-trained parameters) and stay fixed during inference.
type RidgeForecaster struct {
	cfg    Config
	log    logger.Logger
	inflow *ridgeModel
	price  *ridgeModel
}

// NewRidge builds an unfitted forecaster. Until Fit or SetParams is called it
// always degrades to a flat forecast.
func NewRidge(cfg Config, log logger.Logger) (*RidgeForecaster, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RidgeForecaster{cfg: cfg, log: log}, nil
}

// Config returns the forecaster's shape parameters.
func (f *RidgeForecaster) Config() Config { return f.cfg }

// Fit fits both target models from history. It needs at least lag+2 samples;
// fewer is ErrInsufficientHistory.
func (f *RidgeForecaster) Fit(history []model.Observation) error {
	if len(history) < f.cfg.LagSteps+2 {
		return fmt.Errorf("%w: %d samples, need %d", ErrInsufficientHistory, len(history), f.cfg.LagSteps+2)
	}
	inflowRows, inflowY := f.trainingMatrix(history, func(o model.Observation) float64 { return o.InflowM3h })
	priceRows, priceY := f.trainingMatrix(history, func(o model.Observation) float64 { return o.PriceEURPerKWh })

	in, err := fitRidge(inflowRows, inflowY, f.cfg.RidgeAlpha)
	if err != nil {
		return err
	}
	pr, err := fitRidge(priceRows, priceY, f.cfg.RidgeAlpha)
	if err != nil {
		return err
	}
	f.inflow, f.price = in, pr
	return nil
}

func (f *RidgeForecaster) trainingMatrix(history []model.Observation, value func(model.Observation) float64) ([][]float64, []float64) {
	lag := f.cfg.LagSteps
	var rows [][]float64
	var y []float64
	for i := lag; i < len(history); i++ {
		window := make([]float64, lag)
		for j := 0; j < lag; j++ {
			window[j] = value(history[i-lag+j])
		}
		rows = append(rows, featureVector(window, history[i].Timestamp))
		y = append(y, value(history[i]))
	}
	return rows, y
}

// Forecast implements Forecaster. Short history or an unfitted model degrades
// to a flat forecast holding the last known value (zero on empty history);
// the loop is never failed from here.
func (f *RidgeForecaster) Forecast(history []model.Observation, now time.Time) (Result, error) {
	h := f.cfg.HorizonSteps
	if len(history) < f.cfg.LagSteps {
		lastInflow, lastPrice := lastValues(history)
		if f.log != nil {
			f.log.Warnf("degraded forecast: %d of %d lag samples", len(history), f.cfg.LagSteps)
		}
		return Flat(h, lastInflow, lastPrice, "insufficient_history"), nil
	}
	if f.inflow == nil || f.price == nil {
		lastInflow, lastPrice := lastValues(history)
		if f.log != nil {
			f.log.Warnf("degraded forecast: model not fitted")
		}
		return Flat(h, lastInflow, lastPrice, "model_not_fitted"), nil
	}

	step := time.Duration(f.cfg.StepMinutes) * time.Minute
	res := Result{
		HorizonSteps:   h,
		InflowM3h:      f.recursive(f.inflow, history, func(o model.Observation) float64 { return o.InflowM3h }, now, step),
		PriceEURPerKWh: f.recursive(f.price, history, func(o model.Observation) float64 { return o.PriceEURPerKWh }, now, step),
	}
	return res, nil
}

func (f *RidgeForecaster) recursive(m *ridgeModel, history []model.Observation, value func(model.Observation) float64, now time.Time, step time.Duration) []float64 {
	lag := f.cfg.LagSteps
	buffer := make([]float64, lag)
	for i := 0; i < lag; i++ {
		buffer[i] = value(history[len(history)-lag+i])
	}
	out := make([]float64, f.cfg.HorizonSteps)
	ts := now
	for i := range out {
		ts = ts.Add(step)
		v := m.predict(featureVector(buffer, ts))
		if v < 0 {
			v = 0
		}
		out[i] = v
		copy(buffer, buffer[1:])
		buffer[lag-1] = v
	}
	return out
}

func lastValues(history []model.Observation) (inflow, price float64) {
	if len(history) == 0 {
		return 0, 0
	}
	last := history[len(history)-1]
	return last.InflowM3h, last.PriceEURPerKWh
}
