package config

import (
	"fmt"

	infratags "github.com/Sukarth/wastewater-optimization/infra/tags"
)

// TagsConfig selects the tag transport that carries pump setpoints to the
// station PLC. "memory" keeps everything in-process for replays and tests,
// "mqtt" publishes over the broker configured in Mqtt.
type TagsConfig struct {
	Transport string          `json:"transport"`
	Mqtt      infratags.Config `json:"mqtt"`
}

// SetDefaults keeps replays self-contained.
func (c *TagsConfig) SetDefaults() {
	if c.Transport == "" {
		c.Transport = "memory"
	}
}

// Validate checks the transport selector.
func (c TagsConfig) Validate() error {
	switch c.Transport {
	case "memory":
		return nil
	case "mqtt":
		if c.Mqtt.Broker == "" {
			return fmt.Errorf("config: tags.mqtt.broker is required")
		}
		return nil
	default:
		return fmt.Errorf("config: unknown tag transport %q", c.Transport)
	}
}
