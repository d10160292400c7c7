package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id    uuid.UUID `json:"id"`
	Phase string    `json:"phase"`
}

// Blank text is left to the session, which answers with a user-facing message.
type SubmitDocumentRequest struct {
	Text string `json:"text" validate:"max=1048576"`
}

type AskRequest struct {
	Question string `json:"question" validate:"max=8000"`
}

type TurnDTO struct {
	Id        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type DocumentDTO struct {
	Text        string    `json:"text"`
	Length      int       `json:"length"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type SessionStateResponse struct {
	Id                uuid.UUID    `json:"id"`
	Phase             string       `json:"phase"`
	DocumentProcessed bool         `json:"document_processed"`
	Document          *DocumentDTO `json:"document,omitempty"`
	Turns             []TurnDTO    `json:"turns"`
	Pending           bool         `json:"pending"`
	LastError         string       `json:"last_error,omitempty"`
	// Seq of the last event this state reflects. Events with a seq at or
	// below it are already applied.
	Seq uint64 `json:"seq"`
}

type AskResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	Sent      *TurnDTO  `json:"sent"`
	Reply     *TurnDTO  `json:"reply,omitempty"` // nil while an async ask is pending
	Pending   bool      `json:"pending"`
	LastError string    `json:"last_error,omitempty"`
}

// SessionEventMessage is what WebSocket subscribers receive.
type SessionEventMessage struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}
