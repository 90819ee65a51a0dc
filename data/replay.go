package data

import (
	"io"
	"sync"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// Source yields one observation per control tick. io.EOF signals the end of
// the feed.
type Source interface {
	Next() (model.Observation, error)
}

// ReplaySource replays a loaded feed in order. It is safe for use from a
// single loop goroutine plus inspection from tests.
type ReplaySource struct {
	mu  sync.Mutex
	obs []model.Observation
	pos int
}

// NewReplaySource wraps already-loaded observations.
func NewReplaySource(obs []model.Observation) *ReplaySource {
	return &ReplaySource{obs: obs}
}

// OpenReplay loads the feed described by cfg and wraps it.
func OpenReplay(cfg LoaderConfig) (*ReplaySource, error) {
	obs, err := LoadObservations(cfg)
	if err != nil {
		return nil, err
	}
	return NewReplaySource(obs), nil
}

// Next returns the next observation or io.EOF when the feed is exhausted.
func (r *ReplaySource) Next() (model.Observation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.obs) {
		return model.Observation{}, io.EOF
	}
	o := r.obs[r.pos]
	r.pos++
	return o, nil
}

// Remaining returns how many observations are left to replay.
func (r *ReplaySource) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.obs) - r.pos
}
