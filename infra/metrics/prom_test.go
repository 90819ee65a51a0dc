package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/Sukarth/wastewater-optimization/core/metrics"
)

func TestPromSink_RecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink, ok := sinkIf.(*PromSink)
	if !ok {
		t.Fatalf("expected PromSink")
	}

	ev := coremetrics.TickEvent{
		RunID:          "run-1",
		Step:           3,
		Time:           time.Now(),
		LevelM:         3.2,
		VolumeM3:       19950,
		InflowM3h:      2100,
		PriceEURPerKWh: 0.08,
		TotalFlowM3h:   3100,
		PumpsOn:        2,
		EnergyKWh:      55,
		CostEUR:        4.4,
		Feasible:       true,
		Overridden:     true,
		OverrideReason: "cycle_lock",
	}
	if err := sink.RecordTick(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := sink.RecordSolve(coremetrics.SolveEvent{Action: "lp_solved", Duration: 40 * time.Millisecond, Feasible: true}); err != nil {
		t.Fatalf("solve error: %v", err)
	}

	if got := testutil.ToFloat64(sink.level); got != 3.2 {
		t.Errorf("level gauge = %v", got)
	}
	if got := testutil.ToFloat64(sink.energy); got != 55 {
		t.Errorf("energy counter = %v", got)
	}

	expected := `
# HELP safety_overrides_total Safety agent overrides by reason
# TYPE safety_overrides_total counter
safety_overrides_total{reason="cycle_lock"} 1
`
	if err := testutil.CollectAndCompare(sink.overrides, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if c := testutil.CollectAndCount(sink.solve); c == 0 {
		t.Errorf("solve duration not recorded")
	}
}

func TestPromSink_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second registration should reuse collectors: %v", err)
	}
}
