package ingest

import "sync"

// Reading is the most recent accepted value and the packet counter at the
// time it was written.
type Reading struct {
	Value int
	Seq   uint64
}

// ReadingCell is the single shared value between a receive goroutine and
// the evaluation loop. The value and its counter always move together.
type ReadingCell struct {
	mu sync.Mutex
	r  Reading
}

// Store sets the value and increments the counter, returning the new count.
func (c *ReadingCell) Store(v int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.r.Value = v
	c.r.Seq++
	return c.r.Seq
}

// Load returns a consistent copy of the value and counter.
func (c *ReadingCell) Load() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r
}

// Seq returns the packet counter.
func (c *ReadingCell) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r.Seq
}
