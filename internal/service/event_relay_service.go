package service

import (
	"context"
	"encoding/json"

	"ai-learning-assistant-be/internal/dto"
	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// SessionEventDelivery pushes a serialized event to a session's live viewers.
// Implemented by the WebSocket hub.
type SessionEventDelivery interface {
	SendToSession(sessionID string, data []byte)
}

type IEventRelayService interface {
	Consume(ctx context.Context) error
}

type eventRelayService struct {
	subscriber message.Subscriber
	topicName  string
	delivery   SessionEventDelivery
	mirror     events.Publisher
	logger     logger.ILogger
}

// NewEventRelayService relays bus messages to WebSocket subscribers and, when
// mirror is not nil, to an external sink such as NATS.
func NewEventRelayService(
	subscriber message.Subscriber,
	topicName string,
	delivery SessionEventDelivery,
	mirror events.Publisher,
	log logger.ILogger,
) IEventRelayService {
	return &eventRelayService{
		subscriber: subscriber,
		topicName:  topicName,
		delivery:   delivery,
		mirror:     mirror,
		logger:     log,
	}
}

func (rs *eventRelayService) Consume(ctx context.Context) error {
	messages, err := rs.subscriber.Subscribe(ctx, rs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (rs *eventRelayService) processMessage(ctx context.Context, msg *message.Message) {
	// Every outcome acks: a bad payload would never parse on redelivery.
	defer msg.Ack()

	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		rs.logger.Error("EventRelay", "Failed to unmarshal session event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	sessionID, _ := event.Data["session_id"].(string)
	if sessionID == "" {
		rs.logger.Warn("EventRelay", "Session event without session_id", map[string]interface{}{"type": event.Type})
		return
	}

	out, err := json.Marshal(dto.SessionEventMessage{
		Type:       event.Type,
		Data:       event.Data,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		rs.logger.Error("EventRelay", "Failed to marshal session event", map[string]interface{}{"error": err.Error()})
		return
	}
	if rs.delivery != nil {
		rs.delivery.SendToSession(sessionID, out)
	}

	if rs.mirror != nil {
		if err := rs.mirror.Publish(ctx, event); err != nil {
			rs.logger.Warn("EventRelay", "Failed to mirror session event", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}
}
