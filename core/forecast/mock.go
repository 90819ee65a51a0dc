package forecast

import (
	"time"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// MockForecaster returns fixed series, for planner and loop tests.
type MockForecaster struct {
	Inflow []float64
	Price  []float64
	Err    error
}

// Forecast returns copies of the configured series.
func (m MockForecaster) Forecast(history []model.Observation, now time.Time) (Result, error) {
	if m.Err != nil {
		return Result{}, m.Err
	}
	inflow := make([]float64, len(m.Inflow))
	copy(inflow, m.Inflow)
	price := make([]float64, len(m.Price))
	copy(price, m.Price)
	return Result{HorizonSteps: len(inflow), InflowM3h: inflow, PriceEURPerKWh: price}, nil
}
