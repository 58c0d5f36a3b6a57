package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Maximum frame size allowed from peer
	maxMessageSize = 8192

	// Outgoing frame buffer per connection
	sendBufferSize = 256
)

// Conn is the subset of *websocket.Conn the core touches. Tests substitute
// a mock; production always passes the gorilla connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client owns one live socket for its lifetime. The registry and router hold
// non-owning references to it keyed by user and room.
type Client struct {
	id   string
	hub  *Hub
	conn Conn
	send chan []byte

	mu       sync.RWMutex
	userID   string
	userName string
	roomID   string
	joined   bool

	// liveness flag lowered by the heartbeat cycle, raised by pong
	alive atomic.Bool

	closed     int32
	sendClosed int32
}

func newClient(hub *Hub, conn Conn) *Client {
	c := &Client{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	c.alive.Store(true)
	return c
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) UserName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userName
}

// Room returns the room this connection is bound to, empty before join.
func (c *Client) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// Joined reports whether the connection has completed its join handshake.
// Events arriving before join are protocol violations.
func (c *Client) Joined() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joined
}

func (c *Client) bind(userID, userName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.userName = userName
	c.joined = true
}

func (c *Client) setRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// Alive reports the heartbeat flag.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

func (c *Client) setAlive(v bool) {
	c.alive.Store(v)
}

// ping emits a ping control frame. Safe to call concurrently with writePump;
// gorilla serializes control frames internally.
func (c *Client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.conn.Close()
	}
}

// closeWith sends a close frame with a reason before tearing the socket down.
// Used when a newer connection supersedes this one.
func (c *Client) closeWith(reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.close()
}

func (c *Client) closeSend() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// Send marshals and enqueues an event for the write pump. A full buffer means
// the peer cannot keep up; the connection is dropped rather than blocking the
// caller.
func (c *Client) Send(e *Event) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	data, err := e.Encode()
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw enqueues a pre-encoded frame.
func (c *Client) SendRaw(data []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	select {
	case c.send <- data:
		return nil
	default:
		slog.Warn("Send buffer full, dropping client", "clientID", c.id, "userID", c.UserID())
		c.closeSend()
		return ErrClientDisconnected
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.setAlive(true)
		c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Error("WebSocket read error", "clientID", c.id, "userID", c.UserID(), "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.UserID())
			}
			return
		}

		event, err := DecodeEvent(data)
		if err != nil {
			// protocol violation: log and drop, never crash the connection
			slog.Warn("Dropping malformed event", "clientID", c.id, "userID", c.UserID(), "error", err)
			continue
		}

		select {
		case c.hub.inbound <- &clientEvent{client: c, event: event}:
		case <-c.hub.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		slog.Debug("WritePump finished", "clientID", c.id, "userID", c.UserID())
	}()

	for data := range c.send {
		if c.isClosed() {
			return
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("Write error", "clientID", c.id, "userID", c.UserID(), "error", err)
			c.close()
			return
		}
	}

	// send channel closed, say goodbye
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
	c.close()
}
