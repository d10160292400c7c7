package session

import (
	"ai-learning-assistant-be/pkg/assistant/conversation"
	"ai-learning-assistant-be/pkg/events"
)

const (
	EventDocumentProcessed = "assistant.document_processed"
	EventTurnAppended      = "assistant.turn_appended"
	EventQueryStarted      = "assistant.query_started"
	EventQueryFinished     = "assistant.query_finished"
	EventErrorDismissed    = "assistant.error_dismissed"
)

// Every payload carries session_id and a per-session seq so subscribers can
// order events that arrive out of order.
func newEvent(sessionID string, seq uint64, eventType string, data map[string]interface{}) events.BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["session_id"] = sessionID
	data["seq"] = seq
	return events.New(eventType, data)
}

func turnData(turn conversation.Turn) map[string]interface{} {
	return map[string]interface{}{
		"turn": map[string]interface{}{
			"id":         turn.ID,
			"role":       string(turn.Role),
			"content":    turn.Content,
			"created_at": turn.CreatedAt,
		},
	}
}

func seqOf(evt events.BaseEvent) uint64 {
	seq, _ := evt.Data["seq"].(uint64)
	return seq
}
