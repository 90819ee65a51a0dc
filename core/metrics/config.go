package metrics

import "github.com/Sukarth/wastewater-optimization/core/factory"

// Config selects the tick metrics sinks and the scrape endpoint port.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	PrometheusPort int                    `json:"prometheus_port"`
}
