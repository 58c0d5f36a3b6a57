package realtime

import (
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockConn is a scriptable stand-in for the gorilla connection. Frames queued
// with queueFrame are returned by ReadMessage; everything written by the core
// is captured for assertions.
type mockConn struct {
	mu       sync.Mutex
	written  [][]byte
	controls []int
	pings    int
	closed   bool

	writeErr   error
	controlErr error

	// when set, every ping is answered like a healthy peer would
	autoPong bool

	pongHandler func(string) error

	inbound  chan []byte
	done     chan struct{}
	doneOnce sync.Once
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.inbound:
		return websocket.TextMessage, data, nil
	case <-m.done:
		return 0, nil, io.EOF
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return websocket.ErrCloseSent
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	if messageType == websocket.TextMessage {
		m.written = append(m.written, data)
	}
	return nil
}

func (m *mockConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.controlErr != nil {
		return m.controlErr
	}
	m.controls = append(m.controls, messageType)
	if messageType == websocket.PingMessage {
		m.pings++
		if m.autoPong && m.pongHandler != nil {
			go m.pongHandler("")
		}
	}
	return nil
}

func (m *mockConn) sentCloseFrame() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mt := range m.controls {
		if mt == websocket.CloseMessage {
			return true
		}
	}
	return false
}

func (m *mockConn) SetReadLimit(limit int64)           {}
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

func (m *mockConn) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.doneOnce.Do(func() { close(m.done) })
	return nil
}

// queueFrame feeds one frame to the read pump.
func (m *mockConn) queueFrame(t *testing.T, e *Event) {
	t.Helper()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	select {
	case m.inbound <- data:
	case <-time.After(time.Second):
		t.Fatal("timed out queueing frame")
	}
}

// pong simulates the peer answering a ping.
func (m *mockConn) pong() {
	m.mu.Lock()
	h := m.pongHandler
	m.mu.Unlock()
	if h != nil {
		h("")
	}
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) pingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

func (m *mockConn) writtenFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	copy(out, m.written)
	return out
}

// newTestClient builds a joined client that is not wired to any pumps; events
// sent to it pile up in the send buffer where tests read them back.
func newTestClient(userID, userName, roomID string) *Client {
	c := newClient(nil, newMockConn())
	c.bind(userID, userName)
	c.setRoom(roomID)
	return c
}

// nextEvent pops one buffered outbound event from c, failing after a timeout.
func nextEvent(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case data := <-c.send:
		e, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("decode outbound event: %v", err)
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound event")
		return nil
	}
}

// noEvent asserts that c receives nothing within the window.
func noEvent(t *testing.T, c *Client, window time.Duration) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected outbound event: %s", data)
	case <-time.After(window):
	}
}
