// Package export renders tick records for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/Sukarth/wastewater-optimization/core/ticklog"
)

// WriteJSON writes the tick records to w in JSON format.
func WriteJSON(w io.Writer, records []ticklog.TickRecord) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCSV writes one row per tick with the columns analysts work with.
func WriteCSV(w io.Writer, records []ticklog.TickRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"run_id", "step", "timestamp", "level_m", "volume_m3",
		"inflow_m3h", "price_eur_kwh", "total_flow_m3h",
		"energy_kwh", "cost_eur", "feasible", "overridden",
		"override_reason", "boundary_event",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.RunID,
			strconv.Itoa(r.Step),
			r.Timestamp.Format(time.RFC3339),
			formatFloat(r.StateAfter.LevelM),
			formatFloat(r.StateAfter.VolumeM3),
			formatFloat(r.InflowM3h),
			formatFloat(r.PriceEURPerKWh),
			formatFloat(r.Applied.TotalFlow()),
			formatFloat(r.EnergyKWh),
			formatFloat(r.CostEUR),
			strconv.FormatBool(r.Proposal.Feasible),
			strconv.FormatBool(r.Applied.Overridden),
			r.Applied.OverrideReason,
			r.BoundaryEvent,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary aggregates the key performance figures of a run.
type Summary struct {
	RunID          string        `json:"run_id"`
	Ticks          int           `json:"ticks"`
	Duration       time.Duration `json:"duration"`
	EnergyKWh      float64       `json:"energy_kwh"`
	CostEUR        float64       `json:"cost_eur"`
	LevelMinM      float64       `json:"level_min_m"`
	LevelMeanM     float64       `json:"level_mean_m"`
	LevelMaxM      float64       `json:"level_max_m"`
	Overrides      int           `json:"overrides"`
	Fallbacks      int           `json:"fallbacks"`
	BoundaryEvents int           `json:"boundary_events"`
}

// Summarize computes run totals from tick records.
func Summarize(records []ticklog.TickRecord) Summary {
	s := Summary{LevelMinM: math.Inf(1), LevelMaxM: math.Inf(-1)}
	if len(records) == 0 {
		return Summary{}
	}
	s.RunID = records[0].RunID
	s.Ticks = len(records)
	s.Duration = records[len(records)-1].Timestamp.Sub(records[0].Timestamp)

	var levelSum float64
	for _, r := range records {
		s.EnergyKWh += r.EnergyKWh
		s.CostEUR += r.CostEUR
		lvl := r.StateAfter.LevelM
		levelSum += lvl
		s.LevelMinM = math.Min(s.LevelMinM, lvl)
		s.LevelMaxM = math.Max(s.LevelMaxM, lvl)
		if r.Applied.Overridden {
			s.Overrides++
		}
		if !r.Proposal.Feasible {
			s.Fallbacks++
		}
		if r.BoundaryEvent != "" {
			s.BoundaryEvents++
		}
	}
	s.LevelMeanM = levelSum / float64(len(records))
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
