package realtime

import (
	"context"
	"log/slog"
	"time"
)

const defaultHeartbeatInterval = 30 * time.Second

// PresenceNotifier mirrors presence changes into a shared store so the REST
// layer can answer liveness queries. The in-memory registry stays
// authoritative for invite decisions.
type PresenceNotifier interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

type clientEvent struct {
	client *Client
	event  *Event
}

// Options tunes hub behavior; zero values take defaults.
type Options struct {
	HeartbeatInterval time.Duration
}

// Hub owns the registry, room router, relay and invite broker. A single
// event-loop goroutine consumes registration and inbound traffic, so all
// registry and router mutation is serialized; the only suspending work
// (persistence, token issuance) runs off the loop.
type Hub struct {
	registry *Registry
	router   *RoomRouter
	relay    *MessageRelay
	broker   *VideoInviteBroker
	presence PresenceNotifier // may be nil

	// every open connection, joined or not; heartbeat sweeps this set
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	inbound    chan *clientEvent

	heartbeatInterval time.Duration
	pongWait          time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(store MessageStore, issuer TokenIssuer, presence PresenceNotifier, stream EventPublisher, opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}

	h := &Hub{
		registry:          NewRegistry(),
		presence:          presence,
		clients:           make(map[*Client]bool),
		register:          make(chan *Client),
		unregister:        make(chan *Client, 64),
		inbound:           make(chan *clientEvent),
		heartbeatInterval: interval,
		pongWait:          2*interval + writeWait,
		ctx:               ctx,
		cancel:            cancel,
	}
	h.router = NewRoomRouter(func(c *Client) {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
	})
	h.relay = NewMessageRelay(ctx, store, h.router, stream)
	h.broker = NewVideoInviteBroker(h.registry, issuer)
	return h
}

// Registry exposes the presence registry for read-side collaborators.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// IsUserOnline reports heartbeat-confirmed liveness for userID.
func (h *Hub) IsUserOnline(userID string) bool {
	c, ok := h.registry.Lookup(userID)
	return ok && c.Alive()
}

// Attach wraps an upgraded socket in a Client and hands it to the hub.
// authUserID is the identity the HTTP layer authenticated; the join event
// must agree with it.
func (h *Hub) Attach(conn Conn, authUserID string) *Client {
	c := newClient(h, conn)
	c.mu.Lock()
	c.userID = authUserID
	c.mu.Unlock()

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump()
	return c
}

// Run is the hub event loop. Call it once, in its own goroutine.
func (h *Hub) Run() {
	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			slog.Info("Connection attached", "clientID", c.ID(), "userID", c.UserID())

		case c := <-h.unregister:
			h.dropClient(c)

		case ce := <-h.inbound:
			h.dispatch(ce.client, ce.event)

		case <-heartbeat.C:
			h.sweep()

		case <-h.ctx.Done():
			for c := range h.clients {
				h.dropClient(c)
			}
			slog.Info("Hub shutting down")
			return
		}
	}
}

// Stop tears the hub down and drains the relay.
func (h *Hub) Stop() {
	h.cancel()
	h.relay.Close()
}

// dispatch routes one inbound event to its handler. Unknown or out-of-order
// traffic is a protocol violation: logged and dropped, never a crash.
func (h *Hub) dispatch(c *Client, e *Event) {
	switch e.Type {
	case EventJoin:
		h.handleJoin(c, e)
	case EventMessage, EventFileUploaded:
		h.handleChat(c, e)
	case EventVideoInviteRequest:
		h.handleInviteRequest(c, e)
	default:
		slog.Warn("Dropping unexpected event", "type", e.Type, "clientID", c.ID(), "userID", c.UserID())
	}
}

func (h *Hub) handleJoin(c *Client, e *Event) {
	if e.UserID == "" || e.RoomID == "" {
		slog.Warn("Dropping join without identity", "clientID", c.ID())
		return
	}
	if auth := c.UserID(); auth != "" && auth != e.UserID {
		slog.Warn("Join identity does not match authenticated user", "clientID", c.ID(), "authUserID", auth, "joinUserID", e.UserID)
		return
	}

	name := e.SenderName
	if name == "" {
		name = e.UserID
	}
	c.bind(e.UserID, name)

	// A second connection for the same user supersedes the first; the old
	// socket is closed explicitly rather than left to time out, so a user
	// never receives duplicate deliveries on two live sockets.
	if replaced := h.registry.Register(e.UserID, c); replaced != nil {
		slog.Info("Connection superseded", "userID", e.UserID, "oldClientID", replaced.ID(), "newClientID", c.ID())
		h.router.Leave(replaced)
		delete(h.clients, replaced)
		replaced.closeSend()
		go replaced.closeWith("connection-replaced")
	}

	h.router.Join(c, e.RoomID)
	slog.Info("User joined room", "userID", e.UserID, "roomID", e.RoomID, "clientID", c.ID())

	if h.presence != nil {
		go func(userID string) {
			if err := h.presence.SetUserOnline(h.ctx, userID); err != nil {
				slog.Warn("Failed to mirror presence online", "userID", userID, "error", err)
			}
		}(e.UserID)
	}
}

func (h *Hub) handleChat(c *Client, e *Event) {
	if err := h.relay.Submit(c, e); err != nil {
		slog.Warn("Rejected chat event", "type", e.Type, "roomID", e.RoomID, "clientID", c.ID(), "error", err)
	}
}

func (h *Hub) handleInviteRequest(c *Client, e *Event) {
	if !c.Joined() || c.Room() != e.RoomID {
		slog.Warn("Rejected invite request outside sender's room", "roomID", e.RoomID, "clientID", c.ID())
		return
	}
	if e.ReceiverID == "" {
		slog.Warn("Rejected invite request without receiver", "clientID", c.ID())
		return
	}
	// token issuance suspends; keep it off the event loop
	go h.broker.RequestInvite(h.ctx, c, e.ReceiverID, e.RoomID)
}

// dropClient removes a connection from every index that references it.
// Synchronous with the event loop: entries are never left dangling.
func (h *Hub) dropClient(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	h.router.Leave(c)

	userID := c.UserID()
	if c.Joined() {
		h.registry.Remove(userID, c)
	}
	c.closeSend()
	c.close()
	slog.Info("Connection dropped", "clientID", c.ID(), "userID", userID)

	// only mark offline if no superseding connection took over the user
	if h.presence != nil && userID != "" {
		if _, stillOnline := h.registry.Lookup(userID); !stillOnline {
			go func() {
				if err := h.presence.SetUserOffline(context.Background(), userID); err != nil {
					slog.Warn("Failed to mirror presence offline", "userID", userID, "error", err)
				}
			}()
		}
	}
}

// sweep is one heartbeat cycle: evict every connection whose flag is still
// down from the previous cycle, then lower all flags and ping. A silently
// dropped peer is gone within two intervals.
func (h *Hub) sweep() {
	for c := range h.clients {
		if !c.Alive() {
			slog.Info("Evicting unresponsive connection", "clientID", c.ID(), "userID", c.UserID())
			h.dropClient(c)
			continue
		}
		c.setAlive(false)
		if err := c.ping(); err != nil {
			slog.Debug("Ping failed, evicting", "clientID", c.ID(), "error", err)
			h.dropClient(c)
		}
	}
}
