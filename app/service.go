package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Sukarth/wastewater-optimization/api/ticklog"
	"github.com/Sukarth/wastewater-optimization/app/plugins"
	"github.com/Sukarth/wastewater-optimization/config"
	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/loop"
	coremetrics "github.com/Sukarth/wastewater-optimization/core/metrics"
	coremon "github.com/Sukarth/wastewater-optimization/core/monitoring"
	"github.com/Sukarth/wastewater-optimization/core/physics"
	"github.com/Sukarth/wastewater-optimization/core/safety"
	coreticklog "github.com/Sukarth/wastewater-optimization/core/ticklog"
	"github.com/Sukarth/wastewater-optimization/data"
	"github.com/Sukarth/wastewater-optimization/infra/logger"
	inframetrics "github.com/Sukarth/wastewater-optimization/infra/metrics"
	"github.com/Sukarth/wastewater-optimization/infra/monitoring"
	infratags "github.com/Sukarth/wastewater-optimization/infra/tags"
	"github.com/Sukarth/wastewater-optimization/internal/eventbus"
)

// Service wires the whole control stack: physics twin, forecaster, planner,
// safety agent, tag transport, tick log, metrics and the query API.
type Service struct {
	cfg   *config.Config
	coord *loop.Coordinator
	store coreticklog.Store
	sink  coremetrics.Sink
	bus   eventbus.EventBus
	mqtt  *infratags.MqttTags
	log   logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	curve, err := physics.NewCurve(cfg.Curve)
	if err != nil {
		return nil, fmt.Errorf("curve: %w", err)
	}
	engine, err := physics.NewEngine(cfg.Engine, curve)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	forecaster, err := forecast.NewRidge(cfg.Forecast, logger.New("forecast"))
	if err != nil {
		return nil, fmt.Errorf("forecaster: %w", err)
	}
	if cfg.ForecastParamsPath != "" {
		params, err := forecast.LoadParams(cfg.ForecastParamsPath)
		if err != nil {
			return nil, fmt.Errorf("forecast params: %w", err)
		}
		if err := forecaster.SetParams(params); err != nil {
			return nil, fmt.Errorf("forecast params: %w", err)
		}
	}

	factory, ok := plugins.Controllers[cfg.Controller]
	if !ok {
		return nil, fmt.Errorf("unknown controller %q", cfg.Controller)
	}
	controller, err := factory(plugins.ControllerDeps{
		Plan:     cfg.Plan,
		Reactive: cfg.Reactive,
		Pumps:    cfg.Pumps,
		Engine:   engine,
		Log:      logger.New("planner"),
	})
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	agent, err := safety.New(cfg.Safety, cfg.Pumps, curve, logger.New("safety"))
	if err != nil {
		return nil, fmt.Errorf("safety agent: %w", err)
	}

	store, err := coreticklog.NewStore(cfg.TickLog)
	if err != nil {
		return nil, fmt.Errorf("tick log: %w", err)
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc := &Service{cfg: cfg, store: store, sink: sink, bus: eventbus.New(), log: logg}

	deps := loop.Deps{
		Engine:     engine,
		Pumps:      cfg.Pumps,
		Forecaster: forecaster,
		Planner:    controller,
		Agent:      agent,
		Store:      store,
		Sink:       sink,
		Bus:        svc.bus,
		Log:        logger.New("loop"),
	}
	switch cfg.Tags.Transport {
	case "mqtt":
		mq, err := infratags.NewMqttTags(cfg.Tags.Mqtt)
		if err != nil {
			return nil, fmt.Errorf("mqtt tags: %w", err)
		}
		svc.mqtt = mq
		deps.TagWriter = mq
		deps.TagReader = mq
	default:
		mem := infratags.NewMemoryTags()
		deps.TagWriter = mem
		deps.TagReader = mem
	}

	coord, err := loop.New(cfg.Loop, deps)
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	svc.coord = coord
	return svc, nil
}

// Coordinator exposes the control loop, mainly for the CLI and tests.
func (s *Service) Coordinator() *loop.Coordinator { return s.coord }

// Store exposes the tick log for offline export.
func (s *Service) Store() coreticklog.Store { return s.store }

// Run replays the configured observation feed through the control loop and
// blocks until it is exhausted. When the API is enabled the HTTP server keeps
// serving queries until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusPort > 0 {
		addr := fmt.Sprintf(":%d", s.cfg.Metrics.PrometheusPort)
		go func() {
			if err := inframetrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	inframetrics.StartEventCollector(ctx, s.bus, s.sink)

	if s.cfg.API.Enabled {
		go s.serveAPI(ctx)
	}

	if err := s.cfg.Data.Validate(); err != nil {
		return fmt.Errorf("data feed: %w", err)
	}
	src, err := data.OpenReplay(s.cfg.Data)
	if err != nil {
		return fmt.Errorf("data feed: %w", err)
	}
	if err := s.coord.Run(ctx, src); err != nil {
		coremon.CaptureException(err, map[string]string{"run_id": s.coord.RunID()})
		return err
	}

	if s.cfg.API.Enabled {
		s.log.Infof("replay finished, API serving on %s", s.cfg.API.Addr)
		<-ctx.Done()
	}
	return nil
}

func (s *Service) serveAPI(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/api/ticks", ticklog.NewLogHandler(s.store, s.cfg.API.Token))
	mux.Handle("/api/ticks/summary", ticklog.NewSummaryHandler(s.store, s.cfg.API.Token))
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Errorf("api server: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	coremon.Flush(2 * time.Second)
	return s.store.Close()
}
