// Package debounce confirms a selection only after the same nonzero
// reading has been seen a threshold number of consecutive times.
package debounce

import (
	"fmt"
	"strings"
)

// DefaultThreshold is the number of consecutive identical readings needed
// to confirm a selection.
const DefaultThreshold = 3

// ZeroPolicy decides how the undefined reading 0 affects a run.
type ZeroPolicy int

const (
	// ZeroIgnore leaves the run untouched; 0 is invisible to the filter.
	ZeroIgnore ZeroPolicy = iota
	// ZeroBreaksRun resets the run so that counting starts over.
	ZeroBreaksRun
)

// ParseZeroPolicy maps a config token ("ignore", "break") to a ZeroPolicy.
func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return ZeroIgnore, nil
	case "break":
		return ZeroBreaksRun, nil
	}
	return ZeroIgnore, fmt.Errorf("unknown zero policy %q", s)
}

func (p ZeroPolicy) String() string {
	if p == ZeroBreaksRun {
		return "break"
	}
	return "ignore"
}

// Config configures a Filter.
type Config struct {
	Threshold  int
	ZeroPolicy ZeroPolicy
}

// State is the filter's internal run bookkeeping.
type State struct {
	Pending   int `json:"pending"`
	Count     int `json:"count"`
	Confirmed int `json:"confirmed"`
}

// Filter is not safe for concurrent use; the evaluation loop owns it.
type Filter struct {
	threshold  int
	zeroPolicy ZeroPolicy
	state      State
}

// New creates a Filter. A threshold below 1 uses DefaultThreshold.
func New(cfg Config) *Filter {
	threshold := cfg.Threshold
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Filter{threshold: threshold, zeroPolicy: cfg.ZeroPolicy}
}

// Ingest feeds one raw reading and returns the confirmed selection, with
// changed set when this reading confirmed a new value.
//
// Confirmed never becomes 0. A run that reaches the threshold for the value
// already confirmed does not re-trigger; its count keeps growing until a
// different value starts a new run.
func (f *Filter) Ingest(raw int) (confirmed int, changed bool) {
	if raw == 0 {
		if f.zeroPolicy == ZeroBreaksRun {
			f.state.Pending = 0
			f.state.Count = 0
		}
		return f.state.Confirmed, false
	}

	if raw == f.state.Pending {
		f.state.Count++
	} else {
		f.state.Pending = raw
		f.state.Count = 1
	}

	if f.state.Count >= f.threshold && raw != f.state.Confirmed {
		f.state.Confirmed = raw
		f.state.Count = 0
		return raw, true
	}
	return f.state.Confirmed, false
}

// Confirmed returns the last confirmed selection, 0 before the first.
func (f *Filter) Confirmed() int { return f.state.Confirmed }

// State returns a copy of the run bookkeeping.
func (f *Filter) State() State { return f.state }

// Threshold returns the effective threshold.
func (f *Filter) Threshold() int { return f.threshold }

// Override records a selection made outside the filter, such as a manual
// select. The pending value is kept but its count restarts, so a sensor
// still reporting another face takes control back only after a full run.
func (f *Filter) Override(confirmed int) {
	if confirmed > 0 {
		f.state.Confirmed = confirmed
		f.state.Count = 0
	}
}

// Reset clears the run and the confirmed value.
func (f *Filter) Reset() { f.state = State{} }
