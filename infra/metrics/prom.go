package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/Sukarth/wastewater-optimization/core/metrics"
	"github.com/Sukarth/wastewater-optimization/infra/logger"
)

// PromSink records tick events in Prometheus metrics.
type PromSink struct {
	level      prometheus.Gauge
	volume     prometheus.Gauge
	inflow     prometheus.Gauge
	price      prometheus.Gauge
	totalFlow  prometheus.Gauge
	pumpsOn    prometheus.Gauge
	energy     prometheus.Counter
	cost       prometheus.Counter
	overrides  *prometheus.CounterVec
	boundaries *prometheus.CounterVec
	fallbacks  prometheus.Counter
	solve      *prometheus.HistogramVec
}

// NewPromSink registers tunnel metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tunnel_level_m",
			Help: "Current water level in the storage tunnel",
		}),
		volume: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tunnel_volume_m3",
			Help: "Current stored volume in the tunnel",
		}),
		inflow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tunnel_inflow_m3h",
			Help: "Observed inflow to the tunnel",
		}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "electricity_price_eur_kwh",
			Help: "Observed electricity price",
		}),
		totalFlow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pump_total_flow_m3h",
			Help: "Aggregate commanded pump flow",
		}),
		pumpsOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pumps_running",
			Help: "Number of pumps currently running",
		}),
		energy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pump_energy_kwh_total",
			Help: "Cumulative pumping energy",
		}),
		cost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pump_cost_eur_total",
			Help: "Cumulative pumping electricity cost",
		}),
		overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_overrides_total",
			Help: "Safety agent overrides by reason",
		}, []string{"reason"}),
		boundaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boundary_events_total",
			Help: "Volume clamps at the tunnel bounds",
		}, []string{"event"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_fallbacks_total",
			Help: "Ticks where the planner returned a fallback schedule",
		}),
		solve: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planner_solve_seconds",
			Help:    "Planner solve duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
	}

	collectors := []prometheus.Collector{
		s.level, s.volume, s.inflow, s.price, s.totalFlow, s.pumpsOn,
		s.energy, s.cost, s.overrides, s.boundaries, s.fallbacks, s.solve,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	s.level = collectors[0].(prometheus.Gauge)
	s.volume = collectors[1].(prometheus.Gauge)
	s.inflow = collectors[2].(prometheus.Gauge)
	s.price = collectors[3].(prometheus.Gauge)
	s.totalFlow = collectors[4].(prometheus.Gauge)
	s.pumpsOn = collectors[5].(prometheus.Gauge)
	s.energy = collectors[6].(prometheus.Counter)
	s.cost = collectors[7].(prometheus.Counter)
	s.overrides = collectors[8].(*prometheus.CounterVec)
	s.boundaries = collectors[9].(*prometheus.CounterVec)
	s.fallbacks = collectors[10].(prometheus.Counter)
	s.solve = collectors[11].(*prometheus.HistogramVec)

	return s, nil
}

// RecordTick updates the gauges and counters from the tick snapshot.
func (s *PromSink) RecordTick(ev coremetrics.TickEvent) error {
	s.level.Set(ev.LevelM)
	s.volume.Set(ev.VolumeM3)
	s.inflow.Set(ev.InflowM3h)
	s.price.Set(ev.PriceEURPerKWh)
	s.totalFlow.Set(ev.TotalFlowM3h)
	s.pumpsOn.Set(float64(ev.PumpsOn))
	if ev.EnergyKWh > 0 {
		s.energy.Add(ev.EnergyKWh)
	}
	if ev.CostEUR > 0 {
		s.cost.Add(ev.CostEUR)
	}
	if ev.Overridden {
		s.overrides.WithLabelValues(ev.OverrideReason).Inc()
	}
	if ev.BoundaryEvent != "" {
		s.boundaries.WithLabelValues(ev.BoundaryEvent).Inc()
	}
	if !ev.Feasible {
		s.fallbacks.Inc()
	}
	return nil
}

// RecordSolve records the solve duration histogram.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solve.WithLabelValues(ev.Action).Observe(ev.Duration.Seconds())
	return nil
}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the
// given address. The server runs until the provided context is canceled.
// A dedicated ServeMux is used to avoid interfering with other handlers.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	log := logger.New("prom-server")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
