package config

// APIConfig defines the HTTP API for querying tick logs.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	// Token, when set, is required as a Bearer token on every request.
	Token string `json:"token"`
}

// SetDefaults binds the API to the conventional local port.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8880"
	}
}
