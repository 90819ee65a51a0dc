// Package infra holds the technical adapters around the control core: the
// MQTT tag transport, metrics exporters, the zerolog logger and the Sentry
// monitor. Adapters depend on core interfaces only, never the other way
// around, so the core stays testable without brokers or exporters.
package infra
