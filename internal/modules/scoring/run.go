package scoring

import (
	"sync"
	"sync/atomic"

	"scoring_engine/internal/models"
)

// RunHandle is the state of one run, owned by whoever started it. The running
// flag is advisory: ProcessSymbols polls it between symbols.
type RunHandle struct {
	running atomic.Bool
	closed  atomic.Bool

	mu  sync.Mutex
	run models.Run
}

func newRunHandle(r models.Run) *RunHandle {
	h := &RunHandle{run: r}
	h.running.Store(true)
	return h
}

func (h *RunHandle) ID() string { return h.run.ID }

func (h *RunHandle) Running() bool { return h.running.Load() }

// Stop asks the symbol loop to halt before the next symbol.
func (h *RunHandle) Stop() { h.running.Store(false) }

func (h *RunHandle) Closed() bool { return h.closed.Load() }

// Snapshot returns a copy of the run record.
func (h *RunHandle) Snapshot() models.Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.run
}

func (h *RunHandle) update(f func(r *models.Run)) models.Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	f(&h.run)
	return h.run
}
