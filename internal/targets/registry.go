// Package targets owns the N mutually exclusive visual targets and the
// ordered deactivate/settle/activate switch between them.
package targets

import (
	"fmt"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// Target is the handle the rendering engine exposes for one face.
type Target interface {
	SetVisible(visible bool)
	SetTrackingEnabled(enabled bool)
}

// Project is the content metadata shown when a target is active.
type Project struct {
	Name        string `json:"name"`
	CreatorName string `json:"creator_name,omitempty"`
	CreatorURL  string `json:"creator_url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Slot binds a target handle to its project. A nil Target marks the index
// as permanently unreachable.
type Slot struct {
	Target  Target
	Project Project
}

// Registry is a fixed set of N slots addressed 1..N. Index 0 is reserved
// for the sensor's undefined reading. It is immutable after construction.
type Registry struct {
	slots []Slot // slots[0] unused
}

// NewRegistry builds a registry of exactly n slots from the given list,
// which is addressed from index 1. Missing or nil entries are logged once
// and left unreachable.
func NewRegistry(n int, slots []Slot) (*Registry, error) {
	if n < 1 {
		return nil, fmt.Errorf("registry needs at least one slot, got %d", n)
	}
	if len(slots) > n {
		return nil, fmt.Errorf("%d slots given for a registry of %d", len(slots), n)
	}
	r := &Registry{slots: make([]Slot, n+1)}
	copy(r.slots[1:], slots)
	for i := 1; i <= n; i++ {
		if r.slots[i].Target == nil {
			monitoring.Warnf("[targets] index %d has no target assigned and is unreachable", i)
		}
	}
	return r, nil
}

// Len returns N.
func (r *Registry) Len() int { return len(r.slots) - 1 }

// InRange reports whether index addresses a slot.
func (r *Registry) InRange(index int) bool { return index >= 1 && index <= r.Len() }

// Target returns the handle at index, or nil if unassigned or out of range.
func (r *Registry) Target(index int) Target {
	if !r.InRange(index) {
		return nil
	}
	return r.slots[index].Target
}

// Project returns the project metadata at index.
func (r *Registry) Project(index int) (Project, bool) {
	if !r.InRange(index) {
		return Project{}, false
	}
	return r.slots[index].Project, true
}
