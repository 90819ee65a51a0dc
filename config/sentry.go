package config

// SentryConfig configures error reporting. With an empty DSN the service
// keeps the no-op monitor and never talks to the outside.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
	Debug            bool    `json:"debug"`
}
