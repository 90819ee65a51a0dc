package config

import "github.com/Sukarth/wastewater-optimization/auth"

// MarketConfig holds the credentials and client selection for the day-ahead
// price connector. It is used by the prices command, never by the control
// loop itself.
type MarketConfig struct {
	Client  string    `json:"client"`
	BaseURL string    `json:"base_url"`
	Auth    auth.Conf `json:"auth"`
}

// SetDefaults selects the day-ahead client.
func (c *MarketConfig) SetDefaults() {
	if c.Client == "" {
		c.Client = "day_ahead"
	}
}
