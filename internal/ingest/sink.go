package ingest

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// Discard warnings are limited to warnBurst lines, refilled at one per
// warnEvery. Rejected readings are always counted.
const (
	warnBurst = 10
	warnEvery = time.Second
)

// sink is the parse-and-store path shared by every reading source.
type sink struct {
	source   string
	cell     *ReadingCell
	stats    StatsRecorder
	maxValue int
	warn     *rate.Limiter
}

func newSink(source string, cell *ReadingCell, stats StatsRecorder, maxValue int) sink {
	return sink{
		source:   source,
		cell:     cell,
		stats:    stats,
		maxValue: maxValue,
		warn:     rate.NewLimiter(rate.Every(warnEvery), warnBurst),
	}
}

// accept parses payload and, if valid, stores it in the cell. Invalid
// payloads are logged and counted, never stored.
func (s *sink) accept(payload []byte, from string) bool {
	s.stats.AddBytes(len(payload))
	v, err := ParseReading(payload, s.maxValue)
	if err != nil {
		if s.warn == nil || s.warn.Allow() {
			monitoring.Warnf("[ingest] %s: discarding reading from %s: %v", s.source, from, err)
		}
		s.stats.AddRejected()
		return false
	}
	s.cell.Store(v)
	s.stats.AddAccepted()
	return true
}
