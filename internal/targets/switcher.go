package targets

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/tesseract/internal/monitoring"
	"github.com/banshee-data/tesseract/internal/timeutil"
)

var (
	// ErrOutOfRange is returned for an index outside [1, N].
	ErrOutOfRange = errors.New("target index out of range")
	// ErrUnassigned is returned for an index whose slot has no target.
	ErrUnassigned = errors.New("target not assigned")
)

// DefaultSettleInterval is the pause between deactivating the old target
// and activating the new one, letting the tracking engine release it.
const DefaultSettleInterval = 50 * time.Millisecond

// SwitcherConfig configures a Switcher.
type SwitcherConfig struct {
	SettleInterval time.Duration
	Clock          timeutil.Clock
}

// Switcher keeps at most one target active. It is owned by the evaluation
// loop and is not safe for concurrent use.
type Switcher struct {
	reg    *Registry
	settle time.Duration
	clock  timeutil.Clock
	active int
}

// NewSwitcher creates a Switcher with no active target. A negative settle
// interval is treated as zero; zero uses DefaultSettleInterval.
func NewSwitcher(reg *Registry, cfg SwitcherConfig) *Switcher {
	settle := cfg.SettleInterval
	if settle == 0 {
		settle = DefaultSettleInterval
	}
	if settle < 0 {
		settle = 0
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Switcher{reg: reg, settle: settle, clock: clock}
}

// DeactivateAll hides every assigned target and clears the active index.
// Called once at startup so no target is live before the first selection.
func (s *Switcher) DeactivateAll() {
	for i := 1; i <= s.reg.Len(); i++ {
		if t := s.reg.Target(i); t != nil {
			deactivate(t)
		}
	}
	s.active = 0
}

// SwitchTo makes index the only active target. Switching to the active
// index is a no-op. An invalid index leaves the current target untouched.
func (s *Switcher) SwitchTo(index int) (changed bool, err error) {
	if !s.reg.InRange(index) {
		return false, fmt.Errorf("switch to %d: %w (valid 1..%d)", index, ErrOutOfRange, s.reg.Len())
	}
	next := s.reg.Target(index)
	if next == nil {
		return false, fmt.Errorf("switch to %d: %w", index, ErrUnassigned)
	}
	if index == s.active {
		return false, nil
	}

	if cur := s.reg.Target(s.active); cur != nil {
		deactivate(cur)
		if s.settle > 0 {
			s.clock.Sleep(s.settle)
		}
	}

	// visible before tracking so the engine never tracks a hidden object
	next.SetVisible(true)
	next.SetTrackingEnabled(true)

	monitoring.Logf("[targets] active target %d -> %d", s.active, index)
	s.active = index
	return true, nil
}

// tracking first so no frame has two tracked targets
func deactivate(t Target) {
	t.SetTrackingEnabled(false)
	t.SetVisible(false)
}

// Active returns the active index, 0 when none.
func (s *Switcher) Active() int { return s.active }

// ActiveProject returns the project bound to the active target.
func (s *Switcher) ActiveProject() (Project, bool) {
	if s.active == 0 {
		return Project{}, false
	}
	return s.reg.Project(s.active)
}

// Len returns the number of selectable targets.
func (s *Switcher) Len() int { return s.reg.Len() }
