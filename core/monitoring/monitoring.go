// Package monitoring reports control-loop failures to an external error
// tracker. The concrete backend is installed once at startup; everything else
// calls the package-level helpers so a run without a tracker costs nothing.
package monitoring

import "time"

// Monitor receives errors and panics worth an operator's attention.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor swallows everything. It is the default until Init is called.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var active Monitor = NopMonitor{}

// Init installs the monitor used by the package-level helpers. A nil monitor
// leaves the current one in place.
func Init(m Monitor) {
	if m != nil {
		active = m
	}
}

// CaptureException forwards the error with identifying tags, typically the
// run ID of the control loop that hit it.
func CaptureException(err error, tags map[string]string) {
	active.CaptureException(err, tags)
}

// Recover reports a panic in the calling goroutine and re-raises it.
func Recover() {
	active.Recover()
}

// Flush blocks until buffered reports are delivered or the timeout passes.
func Flush(d time.Duration) {
	active.Flush(d)
}
