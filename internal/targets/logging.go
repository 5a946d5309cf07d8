package targets

import (
	"sync"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// LoggingTarget is a Target that records its flags and logs every call.
// The binary uses it when no rendering engine is attached.
type LoggingTarget struct {
	Name string

	mu       sync.Mutex
	visible  bool
	tracking bool
}

// NewLoggingTarget creates a LoggingTarget with both flags off.
func NewLoggingTarget(name string) *LoggingTarget {
	return &LoggingTarget{Name: name}
}

// SetVisible implements Target.
func (t *LoggingTarget) SetVisible(visible bool) {
	t.mu.Lock()
	changed := t.visible != visible
	t.visible = visible
	t.mu.Unlock()
	if changed {
		monitoring.Logf("[targets] %s visible=%v", t.Name, visible)
	}
}

// SetTrackingEnabled implements Target.
func (t *LoggingTarget) SetTrackingEnabled(enabled bool) {
	t.mu.Lock()
	changed := t.tracking != enabled
	t.tracking = enabled
	t.mu.Unlock()
	if changed {
		monitoring.Logf("[targets] %s tracking=%v", t.Name, enabled)
	}
}

// Visible reports the last visibility set.
func (t *LoggingTarget) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// Tracking reports the last tracking flag set.
func (t *LoggingTarget) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}
