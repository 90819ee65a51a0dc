// Package factory builds pluggable backends from configuration. A backend is
// named by a type string and parameterized by a raw settings map; metrics
// sinks and price clients register themselves here so the configuration file
// alone decides which implementations run.
package factory

import (
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// ModuleConfig selects one backend: its registered type name plus the raw
// settings the backend's factory will decode.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Factory turns a raw settings map into a ready backend.
type Factory[T any] func(map[string]any) (T, error)

// Registry maps type names to factories for one backend kind.
type Registry[T any] struct {
	mu      sync.RWMutex
	builder map[string]Factory[T]
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{builder: make(map[string]Factory[T])}
}

// Register binds a type name to its factory. Names are bound once; a second
// registration under the same name is a programming error and rejected.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	if f == nil {
		return fmt.Errorf("factory: nil factory for %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builder[name]; ok {
		return fmt.Errorf("factory: %q already registered", name)
	}
	r.builder[name] = f
	return nil
}

// Create looks the type name up and hands the raw settings to its factory.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	r.mu.RLock()
	f, ok := r.builder[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("factory: unknown type %q", cfg.Type)
	}
	return f(cfg.Conf)
}

// Decode maps raw settings onto a typed struct via its json tags, so backend
// settings use the same tag convention as the rest of the configuration.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: out})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
