// Package tui renders the presentation surfaces in a terminal with
// bubbletea. The machine toggles flag surfaces from the evaluation loop and
// the model reads them back on its own refresh tick.
package tui

import (
	"sync/atomic"

	"github.com/banshee-data/tesseract/internal/presentation"
)

type flagSurface struct {
	visible atomic.Bool
}

func (f *flagSurface) Show() { f.visible.Store(true) }

func (f *flagSurface) Hide() { f.visible.Store(false) }

func (f *flagSurface) Visible() bool { return f.visible.Load() }

// Surfaces holds one terminal surface per presentation state plus the blur
// overlay and the splash subtitle.
type Surfaces struct {
	states   map[presentation.State]*flagSurface
	blur     *flagSurface
	subtitle *flagSurface
}

// NewSurfaces creates hidden surfaces for every state.
func NewSurfaces() *Surfaces {
	s := &Surfaces{
		states:   make(map[presentation.State]*flagSurface, len(presentation.States)),
		blur:     &flagSurface{},
		subtitle: &flagSurface{},
	}
	for _, st := range presentation.States {
		s.states[st] = &flagSurface{}
	}
	return s
}

// Attach installs the surfaces into cfg, replacing any already set.
func (s *Surfaces) Attach(cfg *presentation.MachineConfig) {
	cfg.Surfaces = make(map[presentation.State]presentation.Surface, len(s.states))
	for st, f := range s.states {
		cfg.Surfaces[st] = f
	}
	cfg.Blur = s.blur
	cfg.SplashSubtitle = s.subtitle
}

// Visible returns the state whose surface is shown. ok is false before the
// machine has applied its first state.
func (s *Surfaces) Visible() (st presentation.State, ok bool) {
	for _, st := range presentation.States {
		if s.states[st].Visible() {
			return st, true
		}
	}
	return 0, false
}

// Blurred reports whether the blur overlay is shown.
func (s *Surfaces) Blurred() bool { return s.blur.Visible() }

// SubtitleShown reports whether the splash subtitle is shown.
func (s *Surfaces) SubtitleShown() bool { return s.subtitle.Visible() }
