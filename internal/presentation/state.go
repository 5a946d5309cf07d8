// Package presentation chooses which UI surface is shown from connectivity,
// tracking and selection-change inputs, with timed splash and transition
// holds.
package presentation

import (
	"fmt"
	"strings"
)

// State is one of the mutually exclusive presentation states.
type State int

const (
	Splash State = iota
	NotConnected
	Connected
	Tracking
	Transition
)

// States lists every state in declaration order.
var States = []State{Splash, NotConnected, Connected, Tracking, Transition}

var stateNames = [...]string{
	Splash:       "splash",
	NotConnected: "not_connected",
	Connected:    "connected",
	Tracking:     "tracking",
	Transition:   "transition",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// blurred reports whether the overlay is shown in this state.
func (s State) blurred() bool { return s == Splash || s == Transition }

// Signals are the per-tick inputs from the connectivity monitor and the
// tracking collaborator.
type Signals struct {
	Connected bool
	Tracking  bool
}

// Derive maps signals to a steady state. It never yields Splash or
// Transition.
func Derive(sig Signals) State {
	switch {
	case !sig.Connected:
		return NotConnected
	case !sig.Tracking:
		return Connected
	default:
		return Tracking
	}
}

// HoldPolicy decides what a selection change does during an active
// transition hold.
type HoldPolicy int

const (
	// HoldAbsorb keeps the pending deadline.
	HoldAbsorb HoldPolicy = iota
	// HoldRestart moves the deadline to a full hold from the new change.
	HoldRestart
)

// ParseHoldPolicy maps a config token ("absorb", "restart") to a HoldPolicy.
func ParseHoldPolicy(s string) (HoldPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absorb":
		return HoldAbsorb, nil
	case "restart":
		return HoldRestart, nil
	}
	return HoldAbsorb, fmt.Errorf("unknown hold policy %q", s)
}

func (p HoldPolicy) String() string {
	if p == HoldRestart {
		return "restart"
	}
	return "absorb"
}
