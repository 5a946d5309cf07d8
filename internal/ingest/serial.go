package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// SerialPort is the minimal port surface the serial source needs.
type SerialPort interface {
	io.Reader
	io.Closer
}

// SerialOpener opens a port. Tests substitute an in-memory pipe.
type SerialOpener func(path string, mode *serial.Mode) (SerialPort, error)

func openSerial(path string, mode *serial.Mode) (SerialPort, error) {
	return serial.Open(path, mode)
}

// SerialConfig configures a SerialSource.
type SerialConfig struct {
	Path     string
	Options  PortOptions
	MaxValue int
	Stats    StatsRecorder
	Cell     *ReadingCell
	Opener   SerialOpener
}

// SerialSource reads newline-delimited readings from a wired sensor and
// feeds them through the same parse path as the UDP receiver.
type SerialSource struct {
	path   string
	opts   PortOptions
	open   SerialOpener
	sink   sink
	mu     sync.Mutex
	port   SerialPort
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewSerialSource creates a serial source. It does not open the port.
func NewSerialSource(cfg SerialConfig) *SerialSource {
	stats := cfg.Stats
	if stats == nil {
		stats = noopStats{}
	}
	open := cfg.Opener
	if open == nil {
		open = openSerial
	}
	maxValue := cfg.MaxValue
	if maxValue <= 0 {
		maxValue = 6
	}
	cell := cfg.Cell
	if cell == nil {
		cell = &ReadingCell{}
	}
	return &SerialSource{
		path: cfg.Path,
		opts: cfg.Options,
		open: open,
		sink: newSink("serial", cell, stats, maxValue),
		done: make(chan struct{}),
	}
}

// Start opens the port and begins reading lines. An open failure is
// returned; it disables this source only.
func (s *SerialSource) Start(ctx context.Context) error {
	mode, err := s.opts.SerialMode()
	if err != nil {
		return fmt.Errorf("invalid serial options: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return errors.New("serial source already started")
	}

	port, err := s.open(s.path, mode)
	if err != nil {
		if ports, lerr := serial.GetPortsList(); lerr == nil && len(ports) > 0 {
			return fmt.Errorf("failed to open serial port %s (available: %s): %w", s.path, strings.Join(ports, ", "), err)
		}
		return fmt.Errorf("failed to open serial port %s: %w", s.path, err)
	}
	monitoring.Logf("[ingest] serial source reading %s at %d baud", s.path, mode.BaudRate)

	ctx, cancel := context.WithCancel(ctx)
	s.port = port
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.done)
		defer cancel()
		s.readLoop(ctx, port)
	}()
	// Closing the port is the only way to unblock a pending read.
	go func() {
		<-ctx.Done()
		port.Close()
	}()
	return nil
}

// readLoop ends on the first read error or EOF; a port that stops
// reading has gone away. Overlong lines are dropped and counted.
func (s *SerialSource) readLoop(ctx context.Context, port SerialPort) {
	scan := bufio.NewScanner(port)
	scan.Split(s.splitLines())
	for scan.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scan.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		s.sink.accept(line, s.path)
	}
	if err := scan.Err(); err != nil && ctx.Err() == nil {
		s.sink.stats.AddReadError()
		monitoring.Logf("[ingest] serial read error on %s: %v", s.path, err)
		return
	}
	if ctx.Err() == nil {
		monitoring.Logf("[ingest] serial port %s closed", s.path)
	}
}

// maxLineLen bounds one serial line. A reading is a few bytes.
const maxLineLen = 1024

// splitLines is bufio.ScanLines that drops lines longer than maxLineLen
// whole instead of failing the scanner with bufio.ErrTooLong.
func (s *SerialSource) splitLines() bufio.SplitFunc {
	discarding := false
	drop := func() {
		if !discarding {
			s.sink.stats.AddRejected()
			monitoring.Warnf("[ingest] serial: dropping line longer than %d bytes on %s", maxLineLen, s.path)
		}
	}
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			if discarding || i > maxLineLen {
				drop()
				discarding = false
				return i + 1, nil, nil
			}
			return bufio.ScanLines(data, atEOF)
		}
		if discarding || len(data) > maxLineLen {
			drop()
			discarding = true
			return len(data), nil, nil
		}
		return bufio.ScanLines(data, atEOF)
	}
}

// Stop closes the port and waits for the read loop to exit.
func (s *SerialSource) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

// Done is closed when the read loop has exited.
func (s *SerialSource) Done() <-chan struct{} { return s.done }
