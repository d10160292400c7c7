package handler

import (
	"context"
	"encoding/json"
	"time"

	"ai-learning-assistant-be/internal/dto"
	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/internal/service"
	internalWS "ai-learning-assistant-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// EventSnapshot is the first frame a subscriber receives. Its seq tells the
// client which later events are already reflected in the state.
const EventSnapshot = "assistant.snapshot"

type SessionEventHandler struct {
	service service.IAssistantService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewSessionEventHandler(svc service.IAssistantService, hub *internalWS.Hub, log logger.ILogger) *SessionEventHandler {
	return &SessionEventHandler{
		service: svc,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs streams a session's events. The session must exist before the
// upgrade so unknown ids fail with a plain 404. The snapshot itself is taken
// once the client is being subscribed.
func (h *SessionEventHandler) ServeWs(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	if _, err := h.service.GetSession(c.UserContext(), sessionID); err != nil {
		return err
	}

	ctx := context.WithoutCancel(c.UserContext())
	snapshot := func() ([]byte, error) {
		state, err := h.service.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(dto.SessionEventMessage{
			Type: EventSnapshot,
			Data: map[string]interface{}{
				"session_id": sessionID.String(),
				"seq":        state.Seq,
				"state":      state,
			},
			OccurredAt: time.Now(),
		})
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionEventHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID.String()})
		internalWS.ServeWs(h.hub, conn, sessionID.String(), snapshot)
		h.logger.Info("SessionEventHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID.String()})
	})(c)
}

func (h *SessionEventHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/assistant/v1/sessions/:id/ws", h.ServeWs)
}
