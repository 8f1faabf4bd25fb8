package service

import (
	"sync/atomic"
	"time"
)

// State is the process readiness and uptime.
type State struct {
	ready     atomic.Bool
	startedAt time.Time
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
