package router

import (
	"time"

	"github.com/banshee-data/tesseract/internal/debounce"
	"github.com/banshee-data/tesseract/internal/presentation"
	"github.com/banshee-data/tesseract/internal/targets"
)

// Status is a read-only snapshot of the pipeline, refreshed at the end of
// every tick.
type Status struct {
	SessionID   string             `json:"session_id"`
	Ticks       uint64             `json:"ticks"`
	Packets     uint64             `json:"packets"`
	LastRaw     int                `json:"last_raw"`
	Debounce    debounce.State     `json:"debounce"`
	Active      int                `json:"active"`
	Project     *targets.Project   `json:"project,omitempty"`
	Alive       bool               `json:"alive"`
	LastAdvance time.Time          `json:"last_advance,omitzero"`
	Tracked     bool               `json:"tracked"`
	State       presentation.State `json:"state"`
	Since       time.Time          `json:"since"`
	HoldUntil   time.Time          `json:"hold_until,omitzero"`
	IngestError string             `json:"ingest_error,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at,omitzero"`
}

// Status returns the latest snapshot. Safe from any goroutine.
func (r *Router) Status() Status {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	s := r.status
	if s.Project != nil {
		p := *s.Project
		s.Project = &p
	}
	return s
}

// SetIngestError records a source startup failure for operators. The
// pipeline keeps running and settles into NotConnected.
func (r *Router) SetIngestError(err error) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	if err == nil {
		r.status.IngestError = ""
		return
	}
	r.status.IngestError = err.Error()
}

func (r *Router) publishStatus(now time.Time, reading uint64, alive bool, tracked bool, state presentation.State) {
	var project *targets.Project
	if p, ok := r.switcher.ActiveProject(); ok {
		project = &p
	}
	snap := r.monitor.Snapshot(now)

	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	r.status.Ticks = r.ticks
	r.status.Packets = reading
	r.status.LastRaw = r.lastRaw
	r.status.Debounce = r.filter.State()
	r.status.Active = r.switcher.Active()
	r.status.Project = project
	r.status.Alive = alive
	r.status.LastAdvance = snap.LastAdvance
	r.status.Tracked = tracked
	r.status.State = state
	r.status.Since = r.machine.Since()
	r.status.HoldUntil = r.machine.HoldUntil()
	r.status.UpdatedAt = now
}
