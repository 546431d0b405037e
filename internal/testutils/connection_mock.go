package testutils

import (
	"bytes"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// ConnectionMock is a mock implementation of net.Conn for testing.
//
// Reads return the canned reply bytes. Once they are consumed, a read
// returns io.EOF, or blocks until the deadline passes when Hang is set.
type ConnectionMock struct {
	// Hang makes reads block once the replies are consumed.
	Hang bool

	// ReadDelay delays every read, deadlines aside: the reply is already
	// there, it is just consumed late.
	ReadDelay time.Duration

	mu       sync.Mutex
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	deadline time.Time
	changed  chan struct{}
	closed   bool
}

// NewConnectionMock creates a new mock connection with pre-configured reply data
func NewConnectionMock(replyData ...string) *ConnectionMock {
	return &ConnectionMock{
		readBuf:  bytes.NewBufferString(strings.Join(replyData, "")),
		writeBuf: &bytes.Buffer{},
		changed:  make(chan struct{}),
	}
}

func (m *ConnectionMock) Read(b []byte) (int, error) {
	if m.ReadDelay > 0 {
		time.Sleep(m.ReadDelay)
	}
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return 0, net.ErrClosed
		}
		if m.readBuf.Len() > 0 {
			defer m.mu.Unlock()
			return m.readBuf.Read(b)
		}
		if !m.Hang {
			m.mu.Unlock()
			return 0, io.EOF
		}
		if !m.deadline.IsZero() && !time.Now().Before(m.deadline) {
			m.mu.Unlock()
			return 0, os.ErrDeadlineExceeded
		}

		changed := m.changed
		var timeout <-chan time.Time
		if !m.deadline.IsZero() {
			timer := time.NewTimer(time.Until(m.deadline))
			defer timer.Stop()
			timeout = timer.C
		}
		m.mu.Unlock()

		select {
		case <-changed:
		case <-timeout:
		}
	}
}

func (m *ConnectionMock) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.notify()
	}
	return nil
}

// Closed reports whether Close was called.
func (m *ConnectionMock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6379}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadline = t
	m.notify()
	return nil
}

func (m *ConnectionMock) SetReadDeadline(t time.Time) error { return m.SetDeadline(t) }

func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// notify wakes up blocked reads. Must be called with the lock held.
func (m *ConnectionMock) notify() {
	close(m.changed)
	m.changed = make(chan struct{})
}

// Written returns the raw request bytes written to the mock connection
func (m *ConnectionMock) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}
