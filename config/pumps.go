package config

import (
	"fmt"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// DefaultPumps returns the station fleet: four small and four large pumps.
// Efficiency points are sampled from the manufacturer curves around each
// pump's nominal flow.
func DefaultPumps() []model.PumpSpec {
	small := []model.EfficiencyPoint{
		{FlowM3h: 1336, Eta: 0.790},
		{FlowM3h: 1503, Eta: 0.805},
		{FlowM3h: 1670, Eta: 0.816},
		{FlowM3h: 1837, Eta: 0.805},
		{FlowM3h: 2004, Eta: 0.780},
	}
	large := []model.EfficiencyPoint{
		{FlowM3h: 2497.5, Eta: 0.810},
		{FlowM3h: 2830.5, Eta: 0.835},
		{FlowM3h: 3163.5, Eta: 0.845},
		{FlowM3h: 3496.5, Eta: 0.848},
		{FlowM3h: 3829.5, Eta: 0.835},
		{FlowM3h: 4329.0, Eta: 0.800},
	}
	pumps := make([]model.PumpSpec, 0, 8)
	for i := 1; i <= 4; i++ {
		pumps = append(pumps, model.PumpSpec{
			ID:         pumpID("S", i),
			Class:      model.PumpSmall,
			PowerKW:    250,
			MinFlowM3h: 1400,
			MaxFlowM3h: 1700,
			Efficiency: small,
		})
	}
	for i := 1; i <= 4; i++ {
		pumps = append(pumps, model.PumpSpec{
			ID:         pumpID("L", i),
			Class:      model.PumpLarge,
			PowerKW:    400,
			MinFlowM3h: 3000,
			MaxFlowM3h: 3350,
			Efficiency: large,
		})
	}
	return pumps
}

func pumpID(class string, n int) string {
	return fmt.Sprintf("P%s%d", class, n)
}
