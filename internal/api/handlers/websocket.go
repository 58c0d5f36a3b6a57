package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"skillswap-service/internal/realtime"
)

// checkOrigin builds the handshake origin policy: non-browser clients and
// localhost always pass, anything else must be configured.
func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return true
		}
		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	}
}

type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
// Identity comes from the ws auth middleware; the client still sends its
// join event to bind a room.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "userID", userID, "error", err)
		return
	}

	slog.Info("WebSocket connection established", "userID", userID)
	h.hub.Attach(conn, userID)
}
