package router

import (
	"sync/atomic"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// TrackingSignal is the tracking collaborator's report of whether the active
// target is currently tracked. Report may be called from any goroutine; the
// evaluation loop polls Tracked once per tick.
type TrackingSignal struct {
	tracked atomic.Bool
}

// Report records the collaborator's latest tracking status.
func (s *TrackingSignal) Report(tracked bool) {
	if s.tracked.Swap(tracked) != tracked {
		monitoring.Logf("[router] tracking reported %v", tracked)
	}
}

// Tracked returns the last reported status, false until the first report.
func (s *TrackingSignal) Tracked() bool { return s.tracked.Load() }
