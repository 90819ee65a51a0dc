// Package ticklog persists one record per control tick so runs can be
// replayed, audited and exported after the fact.
package ticklog

import (
	"context"
	"fmt"
	"time"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// TickRecord captures everything decided and observed during one tick.
type TickRecord struct {
	RunID     string    `json:"run_id"`
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`

	StateBefore model.TunnelState `json:"state_before"`
	StateAfter  model.TunnelState `json:"state_after"`

	InflowM3h      float64 `json:"inflow_m3h"`
	PriceEURPerKWh float64 `json:"price_eur_per_kwh"`

	ForecastInflowM3h      []float64 `json:"forecast_inflow_m3h"`
	ForecastPriceEURPerKWh []float64 `json:"forecast_price_eur_per_kwh"`
	ForecastDegraded       bool      `json:"forecast_degraded"`
	DegradedReason         string    `json:"degraded_reason,omitempty"`

	Proposal model.ScheduleProposal `json:"proposal"`
	Applied  model.AppliedCommand   `json:"applied"`

	EnergyKWh     float64 `json:"energy_kwh"`
	CostEUR       float64 `json:"cost_eur"`
	BoundaryEvent string  `json:"boundary_event,omitempty"`
}

// TickQuery defines filters for retrieving records.
type TickQuery struct {
	Start          time.Time
	End            time.Time
	RunID          string
	OverriddenOnly bool
}

func (q TickQuery) matches(r TickRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.OverriddenOnly && !r.Applied.Overridden {
		return false
	}
	return true
}

// Store persists TickRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec TickRecord) error
	Query(ctx context.Context, q TickQuery) ([]TickRecord, error)
	Close() error
}

// Config selects and parameterizes a store backend.
type Config struct {
	// Type is one of "none", "jsonl", "jsonl_rotating", "sqlite".
	Type       string `json:"type"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies the rotation defaults used when the backend needs them.
func (c *Config) SetDefaults() {
	if c.Type == "" {
		c.Type = "jsonl"
	}
	if c.Path == "" {
		c.Path = "ticklog.jsonl"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 50
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 30
	}
}

// NewStore builds the store named by cfg.Type.
func NewStore(cfg Config) (Store, error) {
	cfg.SetDefaults()
	switch cfg.Type {
	case "none":
		return NopStore{}, nil
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "jsonl_rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("ticklog: unknown store type %q", cfg.Type)
	}
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, TickRecord) error          { return nil }
func (NopStore) Query(context.Context, TickQuery) ([]TickRecord, error) { return nil, nil }
func (NopStore) Close() error                                      { return nil }
