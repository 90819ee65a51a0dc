package plugins

import (
	"github.com/Sukarth/wastewater-optimization/core/logger"
	"github.com/Sukarth/wastewater-optimization/core/model"
	"github.com/Sukarth/wastewater-optimization/core/physics"
	"github.com/Sukarth/wastewater-optimization/core/plan"
)

// ControllerDeps carries everything a planning strategy may need at build
// time.
type ControllerDeps struct {
	Plan     plan.Config
	Reactive plan.ReactiveConfig
	Pumps    []model.PumpSpec
	Engine   *physics.Engine
	Log      logger.Logger
}

// ControllerFactory builds a planning strategy from its dependencies.
type ControllerFactory func(deps ControllerDeps) (plan.Proposer, error)

var Controllers = map[string]ControllerFactory{}

func RegisterController(name string, f ControllerFactory) { Controllers[name] = f }
