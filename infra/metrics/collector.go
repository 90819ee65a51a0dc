package metrics

import (
	"context"

	"github.com/Sukarth/wastewater-optimization/core/events"
	coremetrics "github.com/Sukarth/wastewater-optimization/core/metrics"
	"github.com/Sukarth/wastewater-optimization/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// control-loop events. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.SolveEvent:
					if r, ok := sink.(coremetrics.SolveRecorder); ok {
						_ = r.RecordSolve(coremetrics.SolveEvent{
							Time:     e.Time,
							Duration: e.Duration,
							Action:   e.Action,
							Feasible: e.Feasible,
						})
					}
				}
			}
		}
	}()
}
