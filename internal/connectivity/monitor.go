// Package connectivity derives sensor liveness from packet counter progress.
package connectivity

import "time"

// DefaultTimeout is how long the counter may stall before the sensor is
// considered disconnected.
const DefaultTimeout = 3 * time.Second

// Snapshot is a point-in-time view of the monitor.
type Snapshot struct {
	LastCounterSeen uint64    `json:"last_counter_seen"`
	LastAdvance     time.Time `json:"last_advance"`
	Alive           bool      `json:"alive"`
}

// Monitor tracks when the packet counter last advanced. It is owned by the
// evaluation loop and is not safe for concurrent use.
type Monitor struct {
	timeout     time.Duration
	lastCounter uint64
	lastAdvance time.Time
}

// New creates a Monitor. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{timeout: timeout}
}

// Observe records the counter value seen at now. Only a strictly larger
// counter counts as progress.
func (m *Monitor) Observe(counter uint64, now time.Time) {
	if counter > m.lastCounter {
		m.lastCounter = counter
		m.lastAdvance = now
	}
}

// Alive reports whether the counter advanced within the timeout before now.
// It is false until the first advance.
func (m *Monitor) Alive(now time.Time) bool {
	return !m.lastAdvance.IsZero() && now.Sub(m.lastAdvance) < m.timeout
}

// Snapshot returns the monitor's state as of now.
func (m *Monitor) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		LastCounterSeen: m.lastCounter,
		LastAdvance:     m.lastAdvance,
		Alive:           m.Alive(now),
	}
}

// Timeout returns the effective timeout.
func (m *Monitor) Timeout() time.Duration { return m.timeout }
