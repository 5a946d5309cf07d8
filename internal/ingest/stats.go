package ingest

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tesseract/internal/metrics"
	"github.com/banshee-data/tesseract/internal/monitoring"
	"github.com/banshee-data/tesseract/internal/timeutil"
)

// StatsRecorder receives per-datagram accounting from a reading source.
type StatsRecorder interface {
	AddBytes(n int)
	AddAccepted()
	AddRejected()
	AddReadError()
	LogStats()
}

// noopStats is a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddBytes(int)  {}
func (noopStats) AddAccepted()  {}
func (noopStats) AddRejected()  {}
func (noopStats) AddReadError() {}
func (noopStats) LogStats()     {}

// maxIntervals caps the inter-arrival samples kept between resets.
const maxIntervals = 4096

// PacketStats accumulates counters for one source between log reports and
// mirrors every increment to the Prometheus series labelled with the source.
type PacketStats struct {
	mu          sync.Mutex
	source      string
	clock       timeutil.Clock
	accepted    int64
	rejected    int64
	readErrors  int64
	bytes       int64
	intervals   []float64
	lastArrival time.Time
	lastReset   time.Time
}

// StatsSnapshot is the result of GetAndReset.
type StatsSnapshot struct {
	Accepted     int64
	Rejected     int64
	ReadErrors   int64
	Bytes        int64
	Duration     time.Duration
	MeanInterval time.Duration
	StdInterval  time.Duration
}

// NewPacketStats creates a PacketStats for source. A nil clock uses the
// real clock.
func NewPacketStats(source string, clock timeutil.Clock) *PacketStats {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &PacketStats{
		source:    source,
		clock:     clock,
		lastReset: clock.Now(),
	}
}

// AddBytes counts received payload bytes, accepted or not.
func (ps *PacketStats) AddBytes(n int) {
	ps.mu.Lock()
	ps.bytes += int64(n)
	ps.mu.Unlock()
	metrics.IngestBytesTotal.WithLabelValues(ps.source).Add(float64(n))
}

// AddAccepted counts a reading written to the cell and records the
// interval since the previous one.
func (ps *PacketStats) AddAccepted() {
	ps.mu.Lock()
	now := ps.clock.Now()
	if !ps.lastArrival.IsZero() && len(ps.intervals) < maxIntervals {
		ps.intervals = append(ps.intervals, now.Sub(ps.lastArrival).Seconds())
	}
	ps.lastArrival = now
	ps.accepted++
	ps.mu.Unlock()
	metrics.IngestDatagramsTotal.WithLabelValues(ps.source).Inc()
}

// AddRejected counts a discarded datagram.
func (ps *PacketStats) AddRejected() {
	ps.mu.Lock()
	ps.rejected++
	ps.mu.Unlock()
	metrics.IngestRejectedTotal.WithLabelValues(ps.source).Inc()
}

// AddReadError counts a non-timeout read failure.
func (ps *PacketStats) AddReadError() {
	ps.mu.Lock()
	ps.readErrors++
	ps.mu.Unlock()
	metrics.IngestReadErrors.WithLabelValues(ps.source).Inc()
}

// GetAndReset returns current stats and resets counters.
func (ps *PacketStats) GetAndReset() StatsSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := ps.clock.Now()
	snap := StatsSnapshot{
		Accepted:   ps.accepted,
		Rejected:   ps.rejected,
		ReadErrors: ps.readErrors,
		Bytes:      ps.bytes,
		Duration:   now.Sub(ps.lastReset),
	}
	if len(ps.intervals) > 0 {
		mean, std := stat.MeanStdDev(ps.intervals, nil)
		if len(ps.intervals) == 1 {
			std = 0
		}
		snap.MeanInterval = time.Duration(math.Round(mean * float64(time.Second)))
		snap.StdInterval = time.Duration(math.Round(std * float64(time.Second)))
	}

	ps.accepted = 0
	ps.rejected = 0
	ps.readErrors = 0
	ps.bytes = 0
	ps.intervals = ps.intervals[:0]
	ps.lastReset = now
	return snap
}

// LogStats logs the counters since the last report, then resets them.
// Nothing is logged for an idle interval.
func (ps *PacketStats) LogStats() {
	s := ps.GetAndReset()
	if s.Accepted == 0 && s.Rejected == 0 && s.ReadErrors == 0 {
		return
	}
	msg := fmt.Sprintf("[ingest] %s stats: %d accepted", ps.source, s.Accepted)
	if s.Duration > 0 {
		msg += fmt.Sprintf(" (%.1f readings/sec)", float64(s.Accepted)/s.Duration.Seconds())
	}
	msg += fmt.Sprintf(", %d rejected", s.Rejected)
	if s.MeanInterval > 0 {
		msg += fmt.Sprintf(", interval %v ± %v",
			s.MeanInterval.Round(time.Millisecond), s.StdInterval.Round(time.Millisecond))
	}
	if s.ReadErrors > 0 {
		msg += fmt.Sprintf(", %d read errors", s.ReadErrors)
	}
	monitoring.Logf("%s", msg)
}
