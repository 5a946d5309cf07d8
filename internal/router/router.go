// Package router runs the per-tick evaluation pipeline: reading cell,
// debounce, target switch, connectivity and presentation, in that order.
package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tesseract/internal/connectivity"
	"github.com/banshee-data/tesseract/internal/debounce"
	"github.com/banshee-data/tesseract/internal/ingest"
	"github.com/banshee-data/tesseract/internal/metrics"
	"github.com/banshee-data/tesseract/internal/monitoring"
	"github.com/banshee-data/tesseract/internal/presentation"
	"github.com/banshee-data/tesseract/internal/targets"
	"github.com/banshee-data/tesseract/internal/timeutil"
)

// DefaultTickInterval is the evaluation period.
const DefaultTickInterval = 50 * time.Millisecond

const overrideBuffer = 8

// ErrOverrideQueueFull is returned by Select when manual selections arrive
// faster than the evaluation loop drains them.
var ErrOverrideQueueFull = errors.New("manual selection queue full")

// Config configures the evaluation loop.
type Config struct {
	TickInterval time.Duration
}

// Deps are the pipeline components. All are required except Tracking and
// Clock, which default to an unreported signal and the real clock.
type Deps struct {
	Cell     *ingest.ReadingCell
	Filter   *debounce.Filter
	Monitor  *connectivity.Monitor
	Switcher *targets.Switcher
	Machine  *presentation.Machine
	Tracking *TrackingSignal
	Clock    timeutil.Clock
}

// Router owns the evaluation loop. Tick and Run must be called from a single
// goroutine; Select, Status and the tracking signal are safe from any.
type Router struct {
	tickInterval time.Duration
	cell         *ingest.ReadingCell
	filter       *debounce.Filter
	monitor      *connectivity.Monitor
	switcher     *targets.Switcher
	machine      *presentation.Machine
	tracking     *TrackingSignal
	clock        timeutil.Clock
	overrides    chan int

	ticks   uint64
	lastSeq uint64
	lastRaw int

	statusMu sync.Mutex
	status   Status
}

// New wires a Router.
func New(cfg Config, deps Deps) (*Router, error) {
	switch {
	case deps.Cell == nil:
		return nil, errors.New("router: reading cell is required")
	case deps.Filter == nil:
		return nil, errors.New("router: stability filter is required")
	case deps.Monitor == nil:
		return nil, errors.New("router: connectivity monitor is required")
	case deps.Switcher == nil:
		return nil, errors.New("router: target switcher is required")
	case deps.Machine == nil:
		return nil, errors.New("router: presentation machine is required")
	}
	tracking := deps.Tracking
	if tracking == nil {
		tracking = &TrackingSignal{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}

	r := &Router{
		tickInterval: tick,
		cell:         deps.Cell,
		filter:       deps.Filter,
		monitor:      deps.Monitor,
		switcher:     deps.Switcher,
		machine:      deps.Machine,
		tracking:     tracking,
		clock:        clock,
		overrides:    make(chan int, overrideBuffer),
	}
	r.status = Status{
		SessionID: uuid.NewString(),
		State:     deps.Machine.Current(),
		Since:     deps.Machine.Since(),
	}
	return r, nil
}

// Tracking returns the signal collaborators report into.
func (r *Router) Tracking() *TrackingSignal { return r.tracking }

// Select queues a manual selection for the next tick. It bypasses the
// stability filter.
func (r *Router) Select(index int) error {
	select {
	case r.overrides <- index:
		return nil
	default:
		return ErrOverrideQueueFull
	}
}

// Run ticks until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.tickInterval)
	defer ticker.Stop()
	monitoring.Logf("[router] evaluating every %v", r.tickInterval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			r.Tick(r.clock.Now())
		}
	}
}

// Tick runs one evaluation pass at now. Within a tick a confirmed change,
// its target switch and the resulting Transition all happen together.
func (r *Router) Tick(now time.Time) {
	start := time.Now()
	r.ticks++

	r.drainOverrides(now)

	reading := r.cell.Load()
	if reading.Seq != r.lastSeq {
		r.lastSeq = reading.Seq
		r.lastRaw = reading.Value
		if confirmed, changed := r.filter.Ingest(reading.Value); changed {
			metrics.DebounceConfirmationsTotal.Inc()
			monitoring.Logf("[router] confirmed face %d", confirmed)
			r.apply(confirmed, now, "sensor")
		}
	}

	r.monitor.Observe(reading.Seq, now)
	alive := r.monitor.Alive(now)
	tracked := r.tracking.Tracked()

	state := r.machine.Evaluate(now, presentation.Signals{Connected: alive, Tracking: tracked})
	r.publishStatus(now, reading.Seq, alive, tracked, state)

	if alive {
		metrics.ConnectivityAlive.Set(1)
	} else {
		metrics.ConnectivityAlive.Set(0)
	}
	metrics.RouterTicksTotal.Inc()
	metrics.RouterTickLatency.Observe(time.Since(start).Seconds())
}

func (r *Router) drainOverrides(now time.Time) {
	for {
		select {
		case index := <-r.overrides:
			monitoring.Logf("[router] manual selection %d", index)
			if r.apply(index, now, "manual") {
				r.filter.Override(index)
			}
		default:
			return
		}
	}
}

// apply switches targets and reports a real change to the machine. It
// returns false when the switch was rejected.
func (r *Router) apply(index int, now time.Time, origin string) bool {
	changed, err := r.switcher.SwitchTo(index)
	if err != nil {
		reason := "other"
		switch {
		case errors.Is(err, targets.ErrOutOfRange):
			reason = "out_of_range"
		case errors.Is(err, targets.ErrUnassigned):
			reason = "unassigned"
		}
		metrics.TargetSwitchErrors.WithLabelValues(reason).Inc()
		monitoring.Warnf("[router] %s selection rejected: %v", origin, err)
		return false
	}
	if changed {
		metrics.TargetSwitchesTotal.WithLabelValues(origin).Inc()
		metrics.TargetActive.Set(float64(index))
		r.machine.SelectionChanged(now)
	}
	return true
}
