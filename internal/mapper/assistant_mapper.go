package mapper

import (
	"ai-learning-assistant-be/internal/dto"
	"ai-learning-assistant-be/pkg/assistant/conversation"
	"ai-learning-assistant-be/pkg/assistant/session"

	"github.com/google/uuid"
)

func ToTurnDTO(turn conversation.Turn) dto.TurnDTO {
	return dto.TurnDTO{
		Id:        turn.ID,
		Role:      string(turn.Role),
		Content:   turn.Content,
		CreatedAt: turn.CreatedAt,
	}
}

func ToTurnDTOs(turns []conversation.Turn) []dto.TurnDTO {
	out := make([]dto.TurnDTO, 0, len(turns))
	for _, t := range turns {
		out = append(out, ToTurnDTO(t))
	}
	return out
}

func ToSessionStateResponse(id uuid.UUID, state session.State) *dto.SessionStateResponse {
	res := &dto.SessionStateResponse{
		Id:                id,
		Phase:             string(state.Phase),
		DocumentProcessed: state.DocumentProcessed(),
		Turns:             ToTurnDTOs(state.Turns),
		Pending:           state.Pending,
		LastError:         state.LastError,
		Seq:               state.Seq,
	}
	if state.Document != nil {
		res.Document = &dto.DocumentDTO{
			Text:        state.Document.Text,
			Length:      len(state.Document.Text),
			SubmittedAt: state.Document.SubmittedAt,
		}
	}
	return res
}

// ToAskResponse describes a finished exchange, or an accepted async ask when
// exchange is nil.
func ToAskResponse(id uuid.UUID, sent conversation.Turn, exchange *session.Exchange) *dto.AskResponse {
	sentDTO := ToTurnDTO(sent)
	res := &dto.AskResponse{
		SessionId: id,
		Sent:      &sentDTO,
		Pending:   exchange == nil,
	}
	if exchange != nil {
		reply := ToTurnDTO(exchange.Reply)
		res.Reply = &reply
		if exchange.Err != nil {
			res.LastError = session.ErrorPrefix + exchange.Err.Message
		}
	}
	return res
}
