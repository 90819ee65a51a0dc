// Package monitoring provides the Sentry-backed error tracker. Without a DSN
// configured the service falls back to the no-op monitor, so air-gapped plant
// deployments run unchanged.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Sukarth/wastewater-optimization/config"
	coremon "github.com/Sukarth/wastewater-optimization/core/monitoring"
)

// NewSentryMonitor initializes the Sentry SDK from the configuration and
// returns the monitor to install. An empty DSN selects the no-op monitor.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		Debug:            cfg.Debug,
	}); err != nil {
		return nil, err
	}
	return sentryMonitor{}, nil
}

type sentryMonitor struct{}

func (sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if len(tags) == 0 {
		sentry.CaptureException(err)
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Recover reports the panic, flushes, and re-raises so the process still
// crashes loudly.
func (sentryMonitor) Recover() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(2 * time.Second)
		panic(r)
	}
}

func (sentryMonitor) Flush(timeout time.Duration) { sentry.Flush(timeout) }
