// Package scenarios replays YAML-described weeks of plant operation through
// the full control loop and checks operational envelopes: level bounds,
// boundary events, override and fallback rates.
package scenarios

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sukarth/wastewater-optimization/simulator"
)

// FeedDef selects the synthetic feed for a scenario.
type FeedDef struct {
	Days         int     `yaml:"days"`
	Seed         int64   `yaml:"seed"`
	StormsPerDay float64 `yaml:"storms_per_day"`
	StormPeakM3h float64 `yaml:"storm_peak_m3h"`
	Start        string  `yaml:"start,omitempty"`
}

// ToConfig maps the definition onto the generator config.
func (f FeedDef) ToConfig() (simulator.FeedConfig, error) {
	cfg := simulator.FeedConfig{
		Days:         f.Days,
		Seed:         f.Seed,
		StormsPerDay: f.StormsPerDay,
		StormPeakM3h: f.StormPeakM3h,
	}
	if f.Start != "" {
		start, err := time.Parse("2006-01-02", f.Start)
		if err != nil {
			return cfg, err
		}
		cfg.Start = start
	}
	return cfg, nil
}

// Expected is the operational envelope the run must stay inside.
type Expected struct {
	MaxLevelM         float64 `yaml:"max_level_m"`
	MinLevelM         float64 `yaml:"min_level_m"`
	MaxBoundaryEvents int     `yaml:"max_boundary_events"`
	MinOverrides      int     `yaml:"min_overrides"`
	MaxFallbackRatio  float64 `yaml:"max_fallback_ratio"`
}

type Scenario struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description,omitempty"`
	Controller    string   `yaml:"controller"`
	InitialLevelM float64  `yaml:"initial_level_m"`
	Feed          FeedDef  `yaml:"feed"`
	Expected      Expected `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
