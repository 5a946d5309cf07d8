package ingest

import (
	"net"
	"sync"
	"time"
)

// MockUDPSocket implements UDPSocket for testing. It is safe for the
// receive goroutine and a closing goroutine to use concurrently.
type MockUDPSocket struct {
	mu sync.Mutex

	packets        []MockUDPPacket
	readIndex      int
	closed         bool
	readBufferSize int
	readDeadline   time.Time
	readErrors     []error
	localAddress   *net.UDPAddr

	// SetReadBufferError is returned by SetReadBuffer if set.
	SetReadBufferError error
}

// MockUDPPacket represents a packet for mock testing.
type MockUDPPacket struct {
	Data []byte
	Addr *net.UDPAddr
}

// NewMockUDPSocket creates a new MockUDPSocket that will return the given
// payloads in order, then time out on every subsequent read.
func NewMockUDPSocket(payloads ...string) *MockUDPSocket {
	m := &MockUDPSocket{
		localAddress: &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8888},
	}
	for _, p := range payloads {
		m.packets = append(m.packets, MockUDPPacket{
			Data: []byte(p),
			Addr: &net.UDPAddr{IP: net.ParseIP("192.168.4.2"), Port: 4210},
		})
	}
	return m
}

// Push appends a payload to be returned by a later read.
func (m *MockUDPSocket) Push(payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packets = append(m.packets, MockUDPPacket{Data: []byte(payload)})
}

// FailNextRead queues an error to be returned by the next read.
func (m *MockUDPSocket) FailNextRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrors = append(m.readErrors, err)
}

// ReadFromUDP returns the next queued packet. With nothing queued it
// sleeps briefly and reports a timeout, like a socket with a short deadline.
func (m *MockUDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, nil, net.ErrClosed
	}
	if len(m.readErrors) > 0 {
		err := m.readErrors[0]
		m.readErrors = m.readErrors[1:]
		m.mu.Unlock()
		return 0, nil, err
	}
	if m.readIndex >= len(m.packets) {
		m.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: &timeoutError{}}
	}
	pkt := m.packets[m.readIndex]
	m.readIndex++
	m.mu.Unlock()
	return copy(b, pkt.Data), pkt.Addr, nil
}

// Drained reports whether every queued packet has been read.
func (m *MockUDPSocket) Drained() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readIndex >= len(m.packets)
}

// SetReadBuffer records the buffer size.
func (m *MockUDPSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetReadBufferError != nil {
		return m.SetReadBufferError
	}
	m.readBufferSize = bytes
	return nil
}

// ReadBufferSize returns the value last set by SetReadBuffer.
func (m *MockUDPSocket) ReadBufferSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readBufferSize
}

// SetReadDeadline records the deadline.
func (m *MockUDPSocket) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDeadline = t
	return nil
}

// Close marks the socket as closed.
func (m *MockUDPSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockUDPSocket) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// LocalAddr returns the mock local address.
func (m *MockUDPSocket) LocalAddr() net.Addr {
	return m.localAddress
}

// MockUDPSocketFactory implements UDPSocketFactory for testing.
type MockUDPSocketFactory struct {
	// Socket is the socket to return from ListenUDP.
	Socket *MockUDPSocket
	// Error is returned by ListenUDP if set.
	Error error
	// ListenCalls records all ListenUDP calls.
	ListenCalls []MockListenCall
}

// MockListenCall records a call to ListenUDP.
type MockListenCall struct {
	Network string
	Addr    *net.UDPAddr
}

// NewMockUDPSocketFactory creates a new MockUDPSocketFactory.
func NewMockUDPSocketFactory(socket *MockUDPSocket) *MockUDPSocketFactory {
	return &MockUDPSocketFactory{Socket: socket}
}

// ListenUDP returns the configured mock socket.
func (f *MockUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.ListenCalls = append(f.ListenCalls, MockListenCall{Network: network, Addr: laddr})
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Socket, nil
}

// timeoutError implements net.Error for timeout simulation.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
