package main

import (
	"encoding/json"
	"sync"
	"time"
)

// targetState is the most recent payload applied to one dashboard target.
type targetState struct {
	Payload    json.RawMessage `json:"payload"`
	RenderedAt time.Time       `json:"rendered_at"`
}

// latestStore keeps the newest rendered payload per target. It is the
// daemon's stand-in for a dashboard: the bridge renders into it and the
// debug HTTP endpoint reads it back out.
type latestStore struct {
	mu      sync.RWMutex
	targets map[string]targetState
}

func newLatestStore() *latestStore {
	return &latestStore{
		targets: make(map[string]targetState),
	}
}

// Render implements bridge.Renderer.
func (s *latestStore) Render(targetID string, payload json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[targetID] = targetState{
		Payload:    payload,
		RenderedAt: time.Now(),
	}
}

// Snapshot returns a copy of the current per-target state.
func (s *latestStore) Snapshot() map[string]targetState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]targetState, len(s.targets))
	for k, v := range s.targets {
		out[k] = v
	}
	return out
}
