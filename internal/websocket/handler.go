package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs subscribes conn to a session's events. initial, when not nil,
// builds the first frame (usually the current snapshot) while the hub is
// locked. If it fails the connection is closed.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID string, initial func() ([]byte, error)) {
	client := NewClient(hub, conn, sessionID)
	if err := hub.Subscribe(client, initial); err != nil {
		hub.logger.Warn(module, "Subscription refused", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	// A refused client has a closed Send channel: writePump sends the close
	// frame and readPump returns once the peer goes away.
	go client.writePump()
	client.readPump() // blocks in the handler goroutine
}
