package scenarios

import (
	"context"
	"sync"
	"testing"

	"github.com/Sukarth/wastewater-optimization/config"
	"github.com/Sukarth/wastewater-optimization/core/forecast"
	"github.com/Sukarth/wastewater-optimization/core/logger"
	"github.com/Sukarth/wastewater-optimization/core/loop"
	"github.com/Sukarth/wastewater-optimization/core/physics"
	"github.com/Sukarth/wastewater-optimization/core/plan"
	"github.com/Sukarth/wastewater-optimization/core/safety"
	"github.com/Sukarth/wastewater-optimization/core/ticklog"
	"github.com/Sukarth/wastewater-optimization/data"
	"github.com/Sukarth/wastewater-optimization/simulator"
)

// memStore collects tick records in memory for assertions.
type memStore struct {
	mu      sync.Mutex
	records []ticklog.TickRecord
}

func (s *memStore) Append(_ context.Context, rec ticklog.TickRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) Query(_ context.Context, q ticklog.TickQuery) ([]ticklog.TickRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ticklog.TickRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *memStore) Close() error { return nil }

// RunScenario replays the scenario's synthetic feed through a fully wired
// control loop and checks the expected envelope.
func RunScenario(t *testing.T, sc *Scenario) {
	feedCfg, err := sc.Feed.ToConfig()
	if err != nil {
		t.Fatalf("feed config: %v", err)
	}
	obs, err := simulator.Generate(feedCfg)
	if err != nil {
		t.Fatalf("generate feed: %v", err)
	}

	curve, err := physics.NewCurve(physics.DefaultCurveConfig())
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	engine, err := physics.NewEngine(physics.DefaultEngineConfig(), curve)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	pumps := config.DefaultPumps()

	var proposer plan.Proposer
	switch sc.Controller {
	case "", "lp":
		proposer, err = plan.NewPlanner(plan.Config{}, pumps, engine, &logger.NopLogger{})
	case "reactive":
		proposer, err = plan.NewReactiveController(plan.ReactiveConfig{}, pumps)
	default:
		t.Fatalf("unknown controller %q", sc.Controller)
	}
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	agent, err := safety.New(safety.Config{}, pumps, curve, &logger.NopLogger{})
	if err != nil {
		t.Fatalf("safety agent: %v", err)
	}
	forecaster, err := forecast.NewRidge(forecast.Config{}, &logger.NopLogger{})
	if err != nil {
		t.Fatalf("forecaster: %v", err)
	}

	store := &memStore{}
	cfg := loop.Config{}
	if sc.InitialLevelM > 0 {
		cfg.InitialLevelM = sc.InitialLevelM
	}
	coord, err := loop.New(cfg, loop.Deps{
		Engine:     engine,
		Pumps:      pumps,
		Forecaster: forecaster,
		Planner:    proposer,
		Agent:      agent,
		Store:      store,
		Log:        &logger.NopLogger{},
	})
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}

	if err := coord.Run(context.Background(), data.NewReplaySource(obs)); err != nil {
		t.Fatalf("run: %v", err)
	}

	records, _ := store.Query(context.Background(), ticklog.TickQuery{})
	if len(records) != len(obs) {
		t.Fatalf("expected %d records, got %d", len(obs), len(records))
	}
	checkEnvelope(t, sc, records)
}

func checkEnvelope(t *testing.T, sc *Scenario, records []ticklog.TickRecord) {
	boundaryEvents := 0
	overrides := 0
	fallbacks := 0
	for _, r := range records {
		if sc.Expected.MaxLevelM > 0 && r.StateAfter.LevelM > sc.Expected.MaxLevelM {
			t.Errorf("step %d: level %.2f above %.2f", r.Step, r.StateAfter.LevelM, sc.Expected.MaxLevelM)
		}
		if sc.Expected.MinLevelM > 0 && r.StateAfter.LevelM < sc.Expected.MinLevelM {
			t.Errorf("step %d: level %.2f below %.2f", r.Step, r.StateAfter.LevelM, sc.Expected.MinLevelM)
		}
		if r.BoundaryEvent != "" && r.BoundaryEvent != "none" {
			boundaryEvents++
		}
		if r.Applied.Overridden {
			overrides++
		}
		if !r.Proposal.Feasible {
			fallbacks++
		}
	}
	if boundaryEvents > sc.Expected.MaxBoundaryEvents {
		t.Errorf("scenario %s: %d boundary events, allowed %d", sc.Name, boundaryEvents, sc.Expected.MaxBoundaryEvents)
	}
	if overrides < sc.Expected.MinOverrides {
		t.Errorf("scenario %s: %d overrides, expected at least %d", sc.Name, overrides, sc.Expected.MinOverrides)
	}
	if sc.Expected.MaxFallbackRatio > 0 {
		ratio := float64(fallbacks) / float64(len(records))
		if ratio > sc.Expected.MaxFallbackRatio {
			t.Errorf("scenario %s: fallback ratio %.2f above %.2f", sc.Name, ratio, sc.Expected.MaxFallbackRatio)
		}
	}
}
