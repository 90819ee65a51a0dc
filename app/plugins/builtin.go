package plugins

import (
	"github.com/Sukarth/wastewater-optimization/core/plan"
)

func init() {
	RegisterController("lp", func(deps ControllerDeps) (plan.Proposer, error) {
		return plan.NewPlanner(deps.Plan, deps.Pumps, deps.Engine, deps.Log)
	})
	RegisterController("reactive", func(deps ControllerDeps) (plan.Proposer, error) {
		return plan.NewReactiveController(deps.Reactive, deps.Pumps)
	})
}
