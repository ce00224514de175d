package socket

import (
	"strings"

	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog"
)

const namespace = "/"

// Hub pushes lifecycle events to the sockets that joined a user's room.
type Hub struct {
	Server *socketio.Server
	log    zerolog.Logger
}

// RoomFor is the room every socket of a user joins.
func RoomFor(userID string) string {
	return "user:" + userID
}

// NewSocketServer initializes the Socket.IO server and its join handler.
func NewSocketServer(log zerolog.Logger) *Hub {
	server := socketio.NewServer(nil)
	h := &Hub{Server: server, log: log}

	server.OnConnect(namespace, func(c socketio.Conn) error {
		h.log.Debug().Str("socket_id", c.ID()).Msg("✅ socket connected")
		return nil
	})

	server.OnEvent(namespace, "join", func(c socketio.Conn, data map[string]string) {
		userID := strings.TrimSpace(data["userId"])
		if userID == "" {
			h.log.Warn().Str("socket_id", c.ID()).Msg("❌ join without userId")
			return
		}
		c.Join(RoomFor(userID))
		h.log.Debug().Str("socket_id", c.ID()).Str("user_id", userID).Msg("👥 socket joined")
	})

	server.OnError(namespace, func(c socketio.Conn, err error) {
		h.log.Warn().Err(err).Msg("socket error")
	})

	server.OnDisconnect(namespace, func(c socketio.Conn, reason string) {
		h.log.Debug().Str("socket_id", c.ID()).Str("reason", reason).Msg("❌ socket disconnected")
	})

	return h
}

// Notify emits event to every socket of userID. Delivery is best effort.
func (h *Hub) Notify(userID, event string, payload interface{}) {
	if h == nil || h.Server == nil || userID == "" {
		return
	}
	if !h.Server.BroadcastToRoom(namespace, RoomFor(userID), event, payload) {
		h.log.Debug().Str("user_id", userID).Str("event", event).Msg("no socket listening")
	}
}
