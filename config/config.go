package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/loop"
	"github.com/Sukarth/wastewater-optimization/core/metrics"
	"github.com/Sukarth/wastewater-optimization/core/model"
	"github.com/Sukarth/wastewater-optimization/core/physics"
	"github.com/Sukarth/wastewater-optimization/core/plan"
	"github.com/Sukarth/wastewater-optimization/core/safety"
	"github.com/Sukarth/wastewater-optimization/core/ticklog"
	"github.com/Sukarth/wastewater-optimization/data"
)

// Controller strategy names accepted by Config.Controller.
const (
	ControllerLP       = "lp"
	ControllerReactive = "reactive"
)

type Config struct {
	Curve    physics.CurveConfig  `json:"curve"`
	Engine   physics.EngineConfig `json:"engine"`
	Pumps    []model.PumpSpec     `json:"pumps"`
	Forecast forecast.Config      `json:"forecast"`
	// ForecastParamsPath points at offline-trained ridge weights. When empty
	// the forecaster trains on the rolling observation window instead.
	ForecastParamsPath string `json:"forecast_params_path"`
	// Controller selects the planning strategy: "lp" or "reactive".
	Controller string              `json:"controller"`
	Plan       plan.Config         `json:"plan"`
	Reactive   plan.ReactiveConfig `json:"reactive"`
	Safety     safety.Config       `json:"safety"`
	Loop       loop.Config         `json:"loop"`
	TickLog    ticklog.Config      `json:"ticklog"`
	Metrics    metrics.Config      `json:"metrics"`
	Tags       TagsConfig          `json:"tags"`
	Data       data.LoaderConfig   `json:"data"`
	API        APIConfig           `json:"api"`
	Market     MarketConfig        `json:"market"`
	Sentry     SentryConfig        `json:"sentry"`
}

// Load reads the configuration file, applies K_ environment overrides and
// fills section defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section with the plant defaults.
func (c *Config) SetDefaults() {
	if c.Curve == (physics.CurveConfig{}) {
		c.Curve = physics.DefaultCurveConfig()
	}
	if c.Engine == (physics.EngineConfig{}) {
		c.Engine = physics.DefaultEngineConfig()
	}
	if len(c.Pumps) == 0 {
		c.Pumps = DefaultPumps()
	}
	if c.Controller == "" {
		c.Controller = ControllerLP
	}
	c.Forecast.SetDefaults()
	c.Plan.SetDefaults()
	c.Reactive.SetDefaults()
	c.Safety.SetDefaults()
	c.Loop.SetDefaults()
	c.TickLog.SetDefaults()
	c.Tags.SetDefaults()
	c.Data.SetDefaults()
	c.API.SetDefaults()
	c.Market.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Curve.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if len(c.Pumps) == 0 {
		return fmt.Errorf("config: at least one pump is required")
	}
	for _, p := range c.Pumps {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if c.Controller != ControllerLP && c.Controller != ControllerReactive {
		return fmt.Errorf("config: unknown controller %q", c.Controller)
	}
	if err := c.Forecast.Validate(); err != nil {
		return err
	}
	if err := c.Plan.Validate(); err != nil {
		return err
	}
	if err := c.Reactive.Validate(); err != nil {
		return err
	}
	if err := c.Safety.Validate(); err != nil {
		return err
	}
	if err := c.Loop.Validate(); err != nil {
		return err
	}
	return c.Tags.Validate()
}
