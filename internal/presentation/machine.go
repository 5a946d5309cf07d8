package presentation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tesseract/internal/metrics"
	"github.com/banshee-data/tesseract/internal/monitoring"
)

// Default holds.
const (
	DefaultSplashIntro    = 2 * time.Second
	DefaultSplashHold     = time.Second
	DefaultTransitionHold = 2 * time.Second
)

// subscriberBuffer is the per-subscriber backlog before changes are dropped.
const subscriberBuffer = 16

// MachineConfig configures a Machine. Zero durations take the defaults;
// nil surfaces are skipped.
type MachineConfig struct {
	SplashIntro    time.Duration
	SplashHold     time.Duration
	TransitionHold time.Duration
	HoldPolicy     HoldPolicy
	Surfaces       map[State]Surface
	Blur           Surface
	SplashSubtitle Surface
}

// Change is published to subscribers on every state entry.
type Change struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Machine is the presentation state machine. Evaluate and SelectionChanged
// are called from the evaluation loop; Current, Since and the subscriber
// methods are safe from any goroutine. Surfaces are called with the
// machine's lock held and must not call back into it.
type Machine struct {
	splashIntro    time.Duration
	splashHold     time.Duration
	transitionHold time.Duration
	holdPolicy     HoldPolicy
	surfaces       map[State]Surface
	blur           Surface
	subtitle       Surface

	mu             sync.Mutex
	current        State
	since          time.Time
	splashStart    time.Time
	subtitleHidden bool
	holdUntil      time.Time
	pendingSelect  bool
	subs           map[string]chan Change
}

// NewMachine creates a machine in Splash at now, with the splash surface,
// subtitle and blur shown and every other surface hidden.
func NewMachine(cfg MachineConfig, now time.Time) *Machine {
	m := &Machine{
		splashIntro:    orDefault(cfg.SplashIntro, DefaultSplashIntro),
		splashHold:     orDefault(cfg.SplashHold, DefaultSplashHold),
		transitionHold: orDefault(cfg.TransitionHold, DefaultTransitionHold),
		holdPolicy:     cfg.HoldPolicy,
		surfaces:       cfg.Surfaces,
		blur:           cfg.Blur,
		subtitle:       cfg.SplashSubtitle,
		current:        Splash,
		since:          now,
		splashStart:    now,
		subs:           make(map[string]chan Change),
	}
	m.applySurfaces(Splash)
	if m.subtitle != nil {
		m.subtitle.Show()
	}
	for _, st := range States {
		metrics.PresentationState.WithLabelValues(st.String()).Set(0)
	}
	metrics.PresentationState.WithLabelValues(Splash.String()).Set(1)
	return m
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Evaluate advances the machine to now given the current signals and
// returns the resulting state.
func (m *Machine) Evaluate(now time.Time, sig Signals) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.current {
	case Splash:
		elapsed := now.Sub(m.splashStart)
		if !m.subtitleHidden && elapsed >= m.splashIntro {
			m.subtitleHidden = true
			if m.subtitle != nil {
				m.subtitle.Hide()
			}
		}
		if elapsed >= m.splashIntro+m.splashHold {
			if m.pendingSelect {
				m.pendingSelect = false
				m.enterTransition(now)
			} else {
				m.enter(Derive(sig), now)
			}
		}
	case Transition:
		if !now.Before(m.holdUntil) {
			m.enter(Derive(sig), now)
		}
	default:
		if next := Derive(sig); next != m.current {
			m.enter(next, now)
		}
	}
	return m.current
}

// SelectionChanged reports that the active target changed at now. Outside
// Splash it forces Transition. During Splash it is remembered and the
// transition starts when the splash ends.
func (m *Machine) SelectionChanged(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.current {
	case Splash:
		m.pendingSelect = true
	case Transition:
		if m.holdPolicy == HoldRestart {
			m.holdUntil = now.Add(m.transitionHold)
		}
	default:
		m.enterTransition(now)
	}
}

func (m *Machine) enterTransition(now time.Time) {
	m.holdUntil = now.Add(m.transitionHold)
	m.enter(Transition, now)
}

func (m *Machine) enter(next State, now time.Time) {
	from := m.current
	m.current = next
	m.since = now
	m.applySurfaces(next)

	if from == Splash && m.subtitle != nil && !m.subtitleHidden {
		m.subtitleHidden = true
		m.subtitle.Hide()
	}

	metrics.PresentationState.WithLabelValues(from.String()).Set(0)
	metrics.PresentationState.WithLabelValues(next.String()).Set(1)
	metrics.PresentationTransitionsTotal.WithLabelValues(from.String(), next.String()).Inc()
	monitoring.Logf("[presentation] %s -> %s", from, next)

	ch := Change{From: from, To: next, At: now}
	for _, sub := range m.subs {
		select {
		case sub <- ch:
		default:
		}
	}
}

// applySurfaces hides every surface but the one for st, then shows it.
func (m *Machine) applySurfaces(st State) {
	for _, other := range States {
		if other == st {
			continue
		}
		if s := m.surfaces[other]; s != nil {
			s.Hide()
		}
	}
	if s := m.surfaces[st]; s != nil {
		s.Show()
	}
	if m.blur != nil {
		if st.blurred() {
			m.blur.Show()
		} else {
			m.blur.Hide()
		}
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Since returns when the current state was entered.
func (m *Machine) Since() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.since
}

// HoldUntil returns the transition deadline, zero outside Transition.
func (m *Machine) HoldUntil() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != Transition {
		return time.Time{}
	}
	return m.holdUntil
}

// Subscribe registers for state changes. Changes are dropped for a
// subscriber whose buffer is full.
func (m *Machine) Subscribe() (string, <-chan Change) {
	id := uuid.NewString()
	ch := make(chan Change, subscriberBuffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Machine) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subs[id]; ok {
		close(ch)
		delete(m.subs, id)
	}
}
