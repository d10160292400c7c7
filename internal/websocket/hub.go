package websocket

import (
	"context"
	"errors"
	"sync"

	"ai-learning-assistant-be/internal/pkg/logger"
)

const module = "Hub"

var ErrHubStopped = errors.New("websocket hub stopped")

type Hub struct {
	// Registered clients: SessionID -> subscribers (several tabs may watch one session)
	clients map[string][]*Client

	unregister chan *Client
	stopped    chan struct{}

	mu sync.RWMutex

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		clients:    make(map[string][]*Client),
		logger:     log,
	}
}

// Run serves unregister requests until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			h.closeAll()
			return

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			client.closeSend()
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info(module, "Session has no more subscribers", map[string]interface{}{"session_id": client.SessionID})
	}
}

func (h *Hub) Register(client *Client) {
	_ = h.Subscribe(client, nil)
}

// Subscribe adds client to its session. When initial is not nil its frame is
// queued first, under the same lock SendToSession takes, so no event can slip
// between the frame and the subscription. On error the client's Send channel
// is closed.
func (h *Hub) Subscribe(client *Client, initial func() ([]byte, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.stopped:
		client.closeSend()
		return ErrHubStopped
	default:
	}

	if initial != nil {
		frame, err := initial()
		if err != nil {
			client.closeSend()
			return err
		}
		client.Send <- frame
	}

	h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
	h.logger.Info(module, "Client registered", map[string]interface{}{"session_id": client.SessionID})
	return nil
}

// Unregister returns immediately once Run has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// SendToSession delivers data to every subscriber of a session. Slow clients
// whose buffer is full are dropped. Sends happen under the read lock because
// Send channels are only closed under the write lock.
func (h *Hub) SendToSession(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn(module, "Dropping slow client", map[string]interface{}{"session_id": sessionID})
			go h.Unregister(client)
		}
	}
}

// CloseSession disconnects every subscriber of a deleted or expired session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients[sessionID] {
		client.closeSend()
	}
	delete(h.clients, sessionID)
}

func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, clients := range h.clients {
		for _, client := range clients {
			client.closeSend()
		}
		delete(h.clients, id)
	}
}
