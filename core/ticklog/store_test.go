package ticklog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

func sampleRecord(ts time.Time, runID string, overridden bool) TickRecord {
	return TickRecord{
		RunID:     runID,
		Step:      1,
		Timestamp: ts,
		StateBefore: model.TunnelState{
			VolumeM3: 17250, LevelM: 3.0, Timestamp: ts,
		},
		InflowM3h:      2000,
		PriceEURPerKWh: 0.08,
		Applied: model.AppliedCommand{
			PerPumpFlowNow: map[string]float64{"P1": 1500},
			Overridden:     overridden,
			OverrideReason: "cycle_lock",
		},
		EnergyKWh: 25,
		CostEUR:   2,
	}
}

func TestJSONLStore_AppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	now := time.Now()
	_ = store.Append(context.Background(), sampleRecord(now, "run-a", false))
	_ = store.Append(context.Background(), sampleRecord(now.Add(15*time.Minute), "run-a", true))
	_ = store.Append(context.Background(), sampleRecord(now.Add(30*time.Minute), "run-b", false))

	out, err := store.Query(context.Background(), TickQuery{RunID: "run-a"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}

	out, err = store.Query(context.Background(), TickQuery{OverriddenOnly: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].Applied.OverrideReason != "cycle_lock" {
		t.Fatalf("expected the overridden record, got %+v", out)
	}

	out, err = store.Query(context.Background(), TickQuery{Start: now.Add(20 * time.Minute)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record after start filter, got %d", len(out))
	}
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	rec := sampleRecord(time.Now(), "run-a", false)
	rec.ForecastInflowM3h = make([]float64, 960)
	for i := 0; i < 2000; i++ {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, _ := filepath.Glob(path + "*")
	if len(files) == 0 {
		t.Fatalf("expected rotated files")
	}
	out, err := store.Query(context.Background(), TickQuery{RunID: "run-a"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected records across rotated files")
	}
}

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:ticklog_test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	now := time.Now()
	if err := store.Append(context.Background(), sampleRecord(now, "run-a", true)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(context.Background(), sampleRecord(now, "run-b", false)); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := store.Query(context.Background(), TickQuery{RunID: "run-a", OverriddenOnly: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Applied.PerPumpFlowNow["P1"] != 1500 {
		t.Fatalf("record round-trip lost flows: %+v", out[0].Applied)
	}
}

func TestNewStore_UnknownType(t *testing.T) {
	if _, err := NewStore(Config{Type: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown store type")
	}
}
