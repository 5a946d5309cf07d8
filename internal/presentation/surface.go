package presentation

import (
	"sync"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// Surface is a UI element the machine shows or hides.
type Surface interface {
	Show()
	Hide()
}

// LogSurface is a Surface that logs visibility changes. The binary uses it
// when no display is attached.
type LogSurface struct {
	Name string

	mu      sync.Mutex
	visible bool
}

// NewLogSurface creates a hidden LogSurface.
func NewLogSurface(name string) *LogSurface {
	return &LogSurface{Name: name}
}

// Show implements Surface.
func (s *LogSurface) Show() { s.set(true) }

// Hide implements Surface.
func (s *LogSurface) Hide() { s.set(false) }

func (s *LogSurface) set(v bool) {
	s.mu.Lock()
	changed := s.visible != v
	s.visible = v
	s.mu.Unlock()
	if !changed {
		return
	}
	if v {
		monitoring.Logf("[presentation] show %s", s.Name)
	} else {
		monitoring.Logf("[presentation] hide %s", s.Name)
	}
}

// Visible reports the last Show/Hide.
func (s *LogSurface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// LogSurfaces returns one LogSurface per state, keyed for MachineConfig.
func LogSurfaces() map[State]Surface {
	m := make(map[State]Surface, len(States))
	for _, st := range States {
		m[st] = NewLogSurface(st.String())
	}
	return m
}
