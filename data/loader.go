// Package data loads the historical plant feed and replays it as
// observations for the control loop.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// LoaderConfig describes the historical CSV feed. The plant exports prices in
// a minor unit (cents), so PriceDivisor converts them to EUR/kWh.
type LoaderConfig struct {
	Path            string  `json:"path"`
	StepMinutes     int     `json:"step_minutes"`
	PriceDivisor    float64 `json:"price_divisor"`
	TimestampColumn string  `json:"timestamp_column"`
	InflowColumn    string  `json:"inflow_column"`
	PriceColumn     string  `json:"price_column"`
}

// SetDefaults applies the plant export conventions.
func (c *LoaderConfig) SetDefaults() {
	if c.StepMinutes == 0 {
		c.StepMinutes = 15
	}
	if c.PriceDivisor == 0 {
		c.PriceDivisor = 100
	}
	if c.TimestampColumn == "" {
		c.TimestampColumn = "timestamp"
	}
	if c.InflowColumn == "" {
		c.InflowColumn = "inflow_m3h"
	}
	if c.PriceColumn == "" {
		c.PriceColumn = "price"
	}
}

// Validate checks the feed description.
func (c LoaderConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("data: feed path is required")
	}
	if c.StepMinutes <= 0 {
		return fmt.Errorf("data: step minutes must be positive")
	}
	if c.PriceDivisor <= 0 {
		return fmt.Errorf("data: price divisor must be positive")
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// LoadObservations reads the CSV feed, forward-fills blank cells and checks
// the fixed cadence. Rows must be in chronological order.
func LoadObservations(cfg LoaderConfig) ([]model.Observation, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("data: open feed: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("data: read header: %w", err)
	}
	tsIdx, inIdx, prIdx := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case cfg.TimestampColumn:
			tsIdx = i
		case cfg.InflowColumn:
			inIdx = i
		case cfg.PriceColumn:
			prIdx = i
		}
	}
	if tsIdx < 0 || inIdx < 0 || prIdx < 0 {
		return nil, fmt.Errorf("data: feed is missing columns %q, %q or %q", cfg.TimestampColumn, cfg.InflowColumn, cfg.PriceColumn)
	}

	step := time.Duration(cfg.StepMinutes) * time.Minute
	var obs []model.Observation
	var lastInflow, lastPrice float64
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("data: line %d: %w", line+1, err)
		}
		line++
		ts, err := parseTimestamp(rec[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("data: line %d: %w", line, err)
		}
		inflow, ok, err := parseFloat(rec[inIdx])
		if err != nil {
			return nil, fmt.Errorf("data: line %d: bad inflow: %w", line, err)
		}
		if ok {
			lastInflow = inflow
		} else if len(obs) == 0 {
			return nil, fmt.Errorf("data: line %d: inflow missing with nothing to fill from", line)
		}
		price, ok, err := parseFloat(rec[prIdx])
		if err != nil {
			return nil, fmt.Errorf("data: line %d: bad price: %w", line, err)
		}
		if ok {
			lastPrice = price
		} else if len(obs) == 0 {
			return nil, fmt.Errorf("data: line %d: price missing with nothing to fill from", line)
		}

		if n := len(obs); n > 0 {
			gap := ts.Sub(obs[n-1].Timestamp)
			if gap != step {
				return nil, fmt.Errorf("data: line %d: expected %s cadence, got %s", line, step, gap)
			}
		}
		obs = append(obs, model.Observation{
			Timestamp:      ts,
			InflowM3h:      lastInflow,
			PriceEURPerKWh: lastPrice / cfg.PriceDivisor,
		})
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("data: feed %s contains no rows", cfg.Path)
	}
	return obs, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseFloat returns (value, present, error); blank cells are absent, not errors.
func parseFloat(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
