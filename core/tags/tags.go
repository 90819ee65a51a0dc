// Package tags defines the plant-facing I/O contracts: pump setpoints go out
// as tag writes, the operating mode comes back as a tag read. Implementations
// live under infra/tags.
package tags

import (
	"errors"
	"fmt"
	"time"
)

// ErrAckTimeout is returned when no acknowledgment is received before the timeout.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// Mode is the plant operating mode. In manual mode operators drive the pumps
// and the loop only observes; emergency mode bypasses the planner entirely.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeManual    Mode = "manual"
	ModeEmergency Mode = "emergency"
)

// ParseMode converts a raw tag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeManual, ModeEmergency:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("tags: unknown mode %q", s)
	}
}

// Writer publishes pump commands to the plant.
type Writer interface {
	// WriteSetpoint sends a flow setpoint to one pump and returns the command
	// identifier used to track the acknowledgment.
	WriteSetpoint(pumpID string, flowM3h float64) (commandID string, err error)

	// WaitForAck waits for an acknowledgment for the provided command
	// identifier or until the timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}

// Reader exposes plant state the loop needs before each tick.
type Reader interface {
	Mode() (Mode, error)
}
