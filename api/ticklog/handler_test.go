package ticklog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coreticklog "github.com/Sukarth/wastewater-optimization/core/ticklog"
	"github.com/Sukarth/wastewater-optimization/pkg/export"
)

type memStore struct{ recs []coreticklog.TickRecord }

func (m *memStore) Append(_ context.Context, r coreticklog.TickRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q coreticklog.TickQuery) ([]coreticklog.TickRecord, error) {
	var res []coreticklog.TickRecord
	for _, r := range m.recs {
		if q.RunID != "" && r.RunID != q.RunID {
			continue
		}
		if q.OverriddenOnly && !r.Applied.Overridden {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestLogHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	_ = store.Append(context.Background(), coreticklog.TickRecord{
		RunID: "run-1", Timestamp: time.Now(), EnergyKWh: 10,
	})
	_ = store.Append(context.Background(), coreticklog.TickRecord{
		RunID: "run-2", Timestamp: time.Now(),
	})
	h := NewLogHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/ticks?run_id=run-1", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []coreticklog.TickRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].RunID != "run-1" {
		t.Fatalf("expected the run-1 record, got %+v", out)
	}

	// unauthorized
	req = httptest.NewRequest("GET", "/api/ticks", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}

	// wrong method
	req = httptest.NewRequest("POST", "/api/ticks", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestSummaryHandler(t *testing.T) {
	store := &memStore{}
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_ = store.Append(context.Background(), coreticklog.TickRecord{
		RunID: "run-1", Step: 0, Timestamp: start, EnergyKWh: 10, CostEUR: 1,
	})
	_ = store.Append(context.Background(), coreticklog.TickRecord{
		RunID: "run-1", Step: 1, Timestamp: start.Add(15 * time.Minute), EnergyKWh: 20, CostEUR: 2,
	})
	h := NewSummaryHandler(store, "")

	req := httptest.NewRequest("GET", "/api/ticks/summary?run_id=run-1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var s export.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Ticks != 2 || s.EnergyKWh != 30 || s.CostEUR != 3 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
