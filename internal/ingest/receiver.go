// Package ingest turns the sensor's datagram stream into the shared
// reading cell polled by the evaluation loop.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// DefaultAddress is the sensor's fixed destination port on all interfaces.
const DefaultAddress = ":8888"

// waitLogEvery is how many consecutive read timeouts pass between
// "still waiting" log lines.
const waitLogEvery = 6

// ReceiverConfig contains configuration options for the UDP receiver.
type ReceiverConfig struct {
	Address       string
	MaxValue      int
	ReadTimeout   time.Duration
	RcvBuf        int
	LogInterval   time.Duration
	Stats         StatsRecorder
	SocketFactory UDPSocketFactory // Optional: factory for creating UDP sockets (for testing)
	Cell          *ReadingCell
}

// Receiver binds the sensor port and writes every valid reading to a
// ReadingCell from its own goroutine.
type Receiver struct {
	address       string
	readTimeout   time.Duration
	rcvBuf        int
	logInterval   time.Duration
	socketFactory UDPSocketFactory
	sink          sink

	mu      sync.Mutex
	conn    UDPSocket
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
	done    chan struct{}
}

// NewReceiver creates a receiver. Zero-valued fields take defaults.
func NewReceiver(config ReceiverConfig) *Receiver {
	stats := config.Stats
	if stats == nil {
		stats = noopStats{}
	}
	address := config.Address
	if address == "" {
		address = DefaultAddress
	}
	readTimeout := config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	logInterval := config.LogInterval
	if logInterval <= 0 {
		logInterval = time.Minute
	}
	maxValue := config.MaxValue
	if maxValue <= 0 {
		maxValue = 6
	}
	socketFactory := config.SocketFactory
	if socketFactory == nil {
		socketFactory = NewRealUDPSocketFactory()
	}
	cell := config.Cell
	if cell == nil {
		cell = &ReadingCell{}
	}

	return &Receiver{
		address:       address,
		readTimeout:   readTimeout,
		rcvBuf:        config.RcvBuf,
		logInterval:   logInterval,
		socketFactory: socketFactory,
		sink:          newSink("udp", cell, stats, maxValue),
		done:          make(chan struct{}),
	}
}

// Cell returns the cell this receiver writes to.
func (r *Receiver) Cell() *ReadingCell { return r.sink.cell }

// Start binds the socket and launches the receive loop. A bind failure is
// returned and nothing is started.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("receiver already started")
	}

	addr, err := net.ResolveUDPAddr("udp", r.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := r.socketFactory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address %s: %w", r.address, err)
	}

	if r.rcvBuf > 0 {
		if err := conn.SetReadBuffer(r.rcvBuf); err != nil {
			monitoring.Warnf("[ingest] failed to set UDP receive buffer size to %d: %v", r.rcvBuf, err)
		}
	}
	monitoring.Logf("[ingest] UDP receiver listening on %s", conn.LocalAddr())

	ctx, cancel := context.WithCancel(ctx)
	r.conn = conn
	r.cancel = cancel
	r.started = true

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		defer close(r.done)
		r.receiveLoop(ctx, conn)
	}()
	go func() {
		defer r.wg.Done()
		r.statsLoop(ctx)
	}()
	return nil
}

// Stop cancels the loop, closes the socket to unblock a pending read and
// waits for the goroutines to exit. It is safe to call more than once.
func (r *Receiver) Stop() {
	r.mu.Lock()
	cancel, conn := r.cancel, r.conn
	r.cancel, r.conn = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		monitoring.Logf("[ingest] error closing UDP socket: %v", err)
	}
	r.wg.Wait()
}

// Done is closed when the receive loop has exited.
func (r *Receiver) Done() <-chan struct{} { return r.done }

func (r *Receiver) receiveLoop(ctx context.Context, conn UDPSocket) {
	buffer := make([]byte, 512)
	var deadlineErrLogged bool
	timeouts := 0

	for {
		if ctx.Err() != nil {
			monitoring.Logf("[ingest] UDP receiver stopping")
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(r.readTimeout)); err != nil && !deadlineErrLogged {
			monitoring.Logf("[ingest] failed to set read deadline: %v", err)
			deadlineErrLogged = true
		}

		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				timeouts++
				if timeouts%waitLogEvery == 0 {
					monitoring.Logf("[ingest] still waiting for readings on %s", r.address)
				}
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				monitoring.Logf("[ingest] UDP receiver stopping")
				return
			}
			r.sink.stats.AddReadError()
			monitoring.Logf("[ingest] UDP read error: %v", err)
			continue
		}

		timeouts = 0
		r.sink.accept(buffer[:n], addr.String())
	}
}

func (r *Receiver) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(r.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sink.stats.LogStats()
		}
	}
}
