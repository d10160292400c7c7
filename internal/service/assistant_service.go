package service

import (
	"context"
	"io"
	"sync"

	"ai-learning-assistant-be/internal/dto"
	"ai-learning-assistant-be/internal/mapper"
	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/internal/repository/memory"
	"ai-learning-assistant-be/pkg/assistant/document"
	"ai-learning-assistant-be/pkg/assistant/query"
	"ai-learning-assistant-be/pkg/assistant/session"
	"ai-learning-assistant-be/pkg/events"

	"github.com/google/uuid"
)

type IAssistantService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	GetSession(ctx context.Context, id uuid.UUID) (*dto.SessionStateResponse, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	SubmitDocument(ctx context.Context, id uuid.UUID, req *dto.SubmitDocumentRequest) (*dto.SessionStateResponse, error)
	UploadDocument(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader) (*dto.SessionStateResponse, error)
	Ask(ctx context.Context, id uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error)
	// AskAsync commits the question and answers it in the background. The
	// reply reaches WebSocket subscribers as session events.
	AskAsync(ctx context.Context, id uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error)
	DismissError(ctx context.Context, id uuid.UUID) (*dto.SessionStateResponse, error)
	// Wait blocks until background answers finish or ctx is done.
	Wait(ctx context.Context) error
}

type assistantService struct {
	repo      *memory.SessionRepository
	answerer  query.Answerer
	publisher events.Publisher
	logger    logger.ILogger

	inflight sync.WaitGroup
}

func NewAssistantService(
	repo *memory.SessionRepository,
	answerer query.Answerer,
	publisher events.Publisher,
	log logger.ILogger,
) IAssistantService {
	return &assistantService{
		repo:      repo,
		answerer:  answerer,
		publisher: publisher,
		logger:    log,
	}
}

func (s *assistantService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	id := uuid.New()

	var opts []session.Option
	if s.publisher != nil {
		opts = append(opts, session.WithPublisher(s.publisher))
	}
	ctrl := session.NewController(id.String(), s.answerer, s.logger, opts...)
	s.repo.Save(ctrl)

	s.logger.Info("AssistantService", "Session created", map[string]interface{}{
		"session_id": id.String(),
		"sessions":   s.repo.Count(),
	})

	return &dto.CreateSessionResponse{
		Id:    id,
		Phase: string(ctrl.Phase()),
	}, nil
}

func (s *assistantService) GetSession(ctx context.Context, id uuid.UUID) (*dto.SessionStateResponse, error) {
	ctrl, err := s.repo.Get(id.String())
	if err != nil {
		return nil, err
	}
	return mapper.ToSessionStateResponse(id, ctrl.Snapshot()), nil
}

func (s *assistantService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(id.String()); err != nil {
		return err
	}
	s.logger.Info("AssistantService", "Session deleted", map[string]interface{}{"session_id": id.String()})
	return nil
}

func (s *assistantService) SubmitDocument(ctx context.Context, id uuid.UUID, req *dto.SubmitDocumentRequest) (*dto.SessionStateResponse, error) {
	ctrl, err := s.repo.Get(id.String())
	if err != nil {
		return nil, err
	}
	if _, err := ctrl.SubmitDocument(ctx, req.Text); err != nil {
		return nil, err
	}
	return mapper.ToSessionStateResponse(id, ctrl.Snapshot()), nil
}

func (s *assistantService) UploadDocument(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader) (*dto.SessionStateResponse, error) {
	ctrl, err := s.repo.Get(id.String())
	if err != nil {
		return nil, err
	}

	text, err := document.ReadUpload(filename, contentType, r)
	if err != nil {
		s.logger.Warn("AssistantService", "Rejected document upload", map[string]interface{}{
			"session_id": id.String(),
			"filename":   filename,
			"error":      err.Error(),
		})
		return nil, err
	}

	if _, err := ctrl.SubmitDocument(ctx, text); err != nil {
		return nil, err
	}
	return mapper.ToSessionStateResponse(id, ctrl.Snapshot()), nil
}

func (s *assistantService) Ask(ctx context.Context, id uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error) {
	ctrl, err := s.repo.Get(id.String())
	if err != nil {
		return nil, err
	}

	exchange, err := ctrl.Ask(ctx, req.Question)
	if err != nil {
		return nil, err
	}
	return mapper.ToAskResponse(id, exchange.User, exchange), nil
}

func (s *assistantService) AskAsync(ctx context.Context, id uuid.UUID, req *dto.AskRequest) (*dto.AskResponse, error) {
	ctrl, err := s.repo.Get(id.String())
	if err != nil {
		return nil, err
	}

	inf, err := ctrl.Begin(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	// The request context ends with the response; the answer must not.
	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctrl.Resolve(bg, inf)
	}()

	return mapper.ToAskResponse(id, inf.UserTurn, nil), nil
}

func (s *assistantService) DismissError(ctx context.Context, id uuid.UUID) (*dto.SessionStateResponse, error) {
	ctrl, err := s.repo.Get(id.String())
	if err != nil {
		return nil, err
	}
	ctrl.DismissError(ctx)
	return mapper.ToSessionStateResponse(id, ctrl.Snapshot()), nil
}

func (s *assistantService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
