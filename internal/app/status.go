package app

import (
	"time"

	"github.com/JakeFAU/integra-harvester/internal/writer"
)

// Run phases.
const (
	PhaseIdle      = "idle"
	PhaseHarvest   = "harvest"
	PhaseNormalize = "normalize"
)

// RunStatus is the live view served on /v1/status.
type RunStatus struct {
	RunID     string                   `json:"run_id,omitempty"`
	Phase     string                   `json:"phase"`
	StartedAt time.Time                `json:"started_at,omitzero"`
	Sources   map[string]writer.Counts `json:"sources,omitempty"`
}

// Status returns a snapshot of the current run.
func (a *App) Status() RunStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return RunStatus{Phase: PhaseIdle}
	}
	out := *a.current
	if a.writer != nil {
		out.Sources = a.writer.Counts()
	}
	return out
}

func (a *App) begin(s RunStatus, w *writer.Writer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = &s
	a.writer = w
}

func (a *App) end() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = nil
	a.writer = nil
}
