package tags

import (
	"sync"
	"time"

	"github.com/google/uuid"

	coretags "github.com/Sukarth/wastewater-optimization/core/tags"
)

// MemoryTags is an in-process Writer and Reader used for replay runs and
// tests: every write acknowledges immediately and is kept for inspection.
type MemoryTags struct {
	mu        sync.Mutex
	mode      coretags.Mode
	setpoints map[string]float64
	writes    int
}

// NewMemoryTags returns a MemoryTags in auto mode.
func NewMemoryTags() *MemoryTags {
	return &MemoryTags{mode: coretags.ModeAuto, setpoints: make(map[string]float64)}
}

func (m *MemoryTags) WriteSetpoint(pumpID string, flowM3h float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setpoints[pumpID] = flowM3h
	m.writes++
	return uuid.NewString(), nil
}

func (m *MemoryTags) WaitForAck(string, time.Duration) (bool, error) {
	return true, nil
}

func (m *MemoryTags) Mode() (coretags.Mode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode, nil
}

// SetMode changes the mode returned to the loop.
func (m *MemoryTags) SetMode(mode coretags.Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// Setpoint returns the last written setpoint for a pump.
func (m *MemoryTags) Setpoint(pumpID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setpoints[pumpID]
}

// Writes returns the number of setpoint writes seen.
func (m *MemoryTags) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
