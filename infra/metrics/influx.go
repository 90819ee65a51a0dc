package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/Sukarth/wastewater-optimization/core/metrics"
	"github.com/Sukarth/wastewater-optimization/infra/logger"
)

// InfluxSink writes tick events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTick writes the tick snapshot as a line protocol point.
func (s *InfluxSink) RecordTick(ev coremetrics.TickEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("control_tick").
		AddTag("run_id", ev.RunID).
		AddTag("feasible", strconv.FormatBool(ev.Feasible)).
		AddTag("component", "control_loop").
		AddField("step", ev.Step).
		AddField("level_m", round3(ev.LevelM)).
		AddField("volume_m3", round3(ev.VolumeM3)).
		AddField("inflow_m3h", round3(ev.InflowM3h)).
		AddField("price_eur_kwh", round3(ev.PriceEURPerKWh)).
		AddField("total_flow_m3h", round3(ev.TotalFlowM3h)).
		AddField("pumps_on", ev.PumpsOn).
		AddField("energy_kwh", round3(ev.EnergyKWh)).
		AddField("cost_eur", round3(ev.CostEUR)).
		SetTime(ev.Time)
	if ev.Overridden {
		p.AddTag("override_reason", ev.OverrideReason)
	}
	if ev.BoundaryEvent != "" {
		p.AddTag("boundary_event", ev.BoundaryEvent)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSolve writes one planner solve attempt.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("planner_solve").
		AddTag("action", ev.Action).
		AddTag("feasible", strconv.FormatBool(ev.Feasible)).
		AddTag("component", "planner").
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts the underlying client down.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
