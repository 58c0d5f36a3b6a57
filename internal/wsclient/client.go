// Package wsclient is the client-side counterpart of the realtime core: a
// reconnecting WebSocket client with an explicit connection state machine
// and bounded, jittered backoff.
package wsclient

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"skillswap-service/internal/realtime"
)

// State of the connection machine: Disconnected -> Connecting -> Connected,
// and back to Disconnected on any close.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	baseBackoff  = 500 * time.Millisecond
	maxBackoff   = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler consumes one server event.
type Handler func(*realtime.Event)

// Client maintains one persistent connection per active view. On every
// successful (re)connect it replays its join, so a reconnect is invisible
// to the server beyond a fresh registration.
type Client struct {
	url    string
	dialer *websocket.Dialer

	userID   string
	userName string

	mu       sync.RWMutex
	roomID   string
	conn     *websocket.Conn
	handlers map[realtime.EventType]Handler

	state   atomic.Int32
	attempt int
}

func New(url, userID, userName string) *Client {
	return &Client{
		url:      url,
		dialer:   websocket.DefaultDialer,
		userID:   userID,
		userName: userName,
		handlers: make(map[realtime.EventType]Handler),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// On registers the handler for one server event type. Unhandled types are
// dropped silently.
func (c *Client) On(t realtime.EventType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = h
}

// Join records the room and, if connected, sends the join immediately.
// The recorded room is replayed on every reconnect, so calling Join once
// is enough for the life of the client.
func (c *Client) Join(roomID string) error {
	c.mu.Lock()
	c.roomID = roomID
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.sendJoin(conn)
}

// SendMessage submits chat text for the current room.
func (c *Client) SendMessage(content string) error {
	return c.send(&realtime.Event{
		Type:       realtime.EventMessage,
		RoomID:     c.room(),
		SenderID:   c.userID,
		SenderName: c.userName,
		Content:    content,
	})
}

// NotifyFileUploaded announces a file already persisted via the upload call.
func (c *Client) NotifyFileUploaded(filename, filesize, fileURL string) error {
	return c.send(&realtime.Event{
		Type:       realtime.EventFileUploaded,
		RoomID:     c.room(),
		SenderID:   c.userID,
		SenderName: c.userName,
		Filename:   filename,
		Filesize:   filesize,
		FileURL:    fileURL,
	})
}

// RequestVideoInvite asks the server to invite receiverID to a video session.
// The outcome arrives as video-invite-sent or video-invite-failed.
func (c *Client) RequestVideoInvite(receiverID string) error {
	return c.send(&realtime.Event{
		Type:       realtime.EventVideoInviteRequest,
		RoomID:     c.room(),
		SenderID:   c.userID,
		SenderName: c.userName,
		ReceiverID: receiverID,
	})
}

// Run drives the connection machine until ctx is cancelled. It blocks;
// start it in its own goroutine.
func (c *Client) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			c.state.Store(int32(StateDisconnected))
			return
		}

		c.state.Store(int32(StateConnecting))
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.state.Store(int32(StateDisconnected))
			delay := c.nextBackoff()
			slog.Debug("Dial failed, backing off", "url", c.url, "attempt", c.attempt, "delay", delay, "error", err)
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.state.Store(int32(StateConnected))
		c.attempt = 0
		slog.Info("Connected", "url", c.url, "userID", c.userID)

		// idempotent re-join with the last known room
		if c.room() != "" {
			if err := c.sendJoin(conn); err != nil {
				slog.Warn("Re-join failed", "roomID", c.room(), "error", err)
			}
		}

		c.readLoop(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.state.Store(int32(StateDisconnected))
		conn.Close()

		delay := c.nextBackoff()
		slog.Info("Disconnected, reconnecting", "delay", delay)
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("Read loop ended", "error", err)
			return
		}

		event, err := realtime.DecodeEvent(data)
		if err != nil {
			slog.Warn("Dropping undecodable server event", "error", err)
			continue
		}

		c.mu.RLock()
		handler := c.handlers[event.Type]
		c.mu.RUnlock()
		if handler != nil {
			handler(event)
		}
	}
}

func (c *Client) room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Client) sendJoin(conn *websocket.Conn) error {
	return c.write(conn, &realtime.Event{
		Type:       realtime.EventJoin,
		UserID:     c.userID,
		SenderName: c.userName,
		RoomID:     c.room(),
	})
}

func (c *Client) send(e *realtime.Event) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return realtime.ErrClientDisconnected
	}
	return c.write(conn, e)
}

func (c *Client) write(conn *websocket.Conn, e *realtime.Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// nextBackoff grows exponentially from baseBackoff, caps at maxBackoff and
// jitters by ±50% so a herd of clients does not reconnect in lockstep.
// The cap is applied before converting back to a Duration; a long outage
// pushes the exponent far past what int64 nanoseconds can hold.
func (c *Client) nextBackoff() time.Duration {
	delay := float64(baseBackoff) * math.Pow(2, float64(c.attempt))
	if delay > float64(maxBackoff) {
		delay = float64(maxBackoff)
	}
	c.attempt++

	jitter := 0.5 + rand.Float64() // 0.5x .. 1.5x
	return time.Duration(delay * jitter)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
