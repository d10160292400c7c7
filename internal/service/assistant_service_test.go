package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-learning-assistant-be/internal/dto"
	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/internal/repository/memory"
	"ai-learning-assistant-be/pkg/assistant/document"
	"ai-learning-assistant-be/pkg/assistant/query"
	"ai-learning-assistant-be/pkg/assistant/session"
	"ai-learning-assistant-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnswerer struct {
	answer  string
	err     error
	release chan struct{}
}

func (f *fakeAnswerer) Answer(ctx context.Context, _, _ string) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", &query.QueryError{Message: f.err.Error(), Cause: f.err}
	}
	return f.answer, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestAssistantService(a query.Answerer, pub events.Publisher) IAssistantService {
	repo := memory.NewSessionRepository(time.Hour, time.Minute)
	return NewAssistantService(repo, a, pub, logger.NewNopLogger())
}

func TestAssistantServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	svc := newTestAssistantService(&fakeAnswerer{answer: "Blue.\nSource: Provided Document"}, pub)

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(session.PhaseIdle), created.Phase)

	_, err = svc.Ask(ctx, created.Id, &dto.AskRequest{Question: "Why?"})
	assert.ErrorIs(t, err, session.ErrNoDocument)

	state, err := svc.SubmitDocument(ctx, created.Id, &dto.SubmitDocumentRequest{Text: "The sky is blue."})
	require.NoError(t, err)
	assert.True(t, state.DocumentProcessed)
	require.Len(t, state.Turns, 1)
	assert.Equal(t, session.GreetingMessage, state.Turns[0].Content)

	res, err := svc.Ask(ctx, created.Id, &dto.AskRequest{Question: "What color is the sky?"})
	require.NoError(t, err)
	assert.False(t, res.Pending)
	assert.Equal(t, "What color is the sky?", res.Sent.Content)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "Blue.\nSource: Provided Document", res.Reply.Content)
	assert.Empty(t, res.LastError)

	state, err = svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	assert.Len(t, state.Turns, 3)
	assert.Equal(t, string(session.PhaseReady), state.Phase)
	assert.Positive(t, pub.count())

	require.NoError(t, svc.DeleteSession(ctx, created.Id))
	_, err = svc.GetSession(ctx, created.Id)
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
}

func TestAssistantServiceUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssistantService(&fakeAnswerer{}, nil)
	id := uuid.New()

	_, err := svc.GetSession(ctx, id)
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
	_, err = svc.SubmitDocument(ctx, id, &dto.SubmitDocumentRequest{Text: "x"})
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
	_, err = svc.Ask(ctx, id, &dto.AskRequest{Question: "x"})
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
	_, err = svc.AskAsync(ctx, id, &dto.AskRequest{Question: "x"})
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
	_, err = svc.DismissError(ctx, id)
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, id), memory.ErrSessionNotFound)
}

func TestAssistantServiceFailedAskKeepsBanner(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssistantService(&fakeAnswerer{err: errors.New("timeout")}, nil)

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.SubmitDocument(ctx, created.Id, &dto.SubmitDocumentRequest{Text: "doc"})
	require.NoError(t, err)

	res, err := svc.Ask(ctx, created.Id, &dto.AskRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Failed to get response from AI: timeout", res.LastError)
	assert.Equal(t, "Sorry, I encountered an error. timeout", res.Reply.Content)

	state, err := svc.DismissError(ctx, created.Id)
	require.NoError(t, err)
	assert.Empty(t, state.LastError)
	assert.Len(t, state.Turns, 3)
}

func TestAssistantServiceUploadDocument(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssistantService(&fakeAnswerer{}, nil)

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.UploadDocument(ctx, created.Id, "notes.pdf", "application/pdf", strings.NewReader("%PDF"))
	assert.ErrorIs(t, err, document.ErrUnsupportedType)

	state, err := svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	assert.False(t, state.DocumentProcessed)

	state, err = svc.UploadDocument(ctx, created.Id, "notes.md", "", strings.NewReader("# Cells\nCells divide."))
	require.NoError(t, err)
	assert.True(t, state.DocumentProcessed)
	assert.Equal(t, "# Cells\nCells divide.", state.Document.Text)
}

func TestAssistantServiceAskAsync(t *testing.T) {
	answerer := &fakeAnswerer{answer: "Later.", release: make(chan struct{})}
	svc := newTestAssistantService(answerer, nil)

	reqCtx, cancel := context.WithCancel(context.Background())
	created, err := svc.CreateSession(reqCtx)
	require.NoError(t, err)
	_, err = svc.SubmitDocument(reqCtx, created.Id, &dto.SubmitDocumentRequest{Text: "doc"})
	require.NoError(t, err)

	res, err := svc.AskAsync(reqCtx, created.Id, &dto.AskRequest{Question: "When?"})
	require.NoError(t, err)
	assert.True(t, res.Pending)
	assert.Nil(t, res.Reply)
	assert.Equal(t, "When?", res.Sent.Content)

	// The request is over; the answer must still land.
	cancel()

	state, err := svc.GetSession(context.Background(), created.Id)
	require.NoError(t, err)
	assert.Equal(t, string(session.PhaseQuerying), state.Phase)

	_, err = svc.AskAsync(context.Background(), created.Id, &dto.AskRequest{Question: "Again?"})
	assert.ErrorIs(t, err, session.ErrQueryInFlight)

	close(answerer.release)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, svc.Wait(waitCtx))

	state, err = svc.GetSession(context.Background(), created.Id)
	require.NoError(t, err)
	assert.False(t, state.Pending)
	require.Len(t, state.Turns, 3)
	assert.Equal(t, "Later.", state.Turns[2].Content)
	assert.Empty(t, state.LastError)
}

func TestAssistantServiceWaitHonorsContext(t *testing.T) {
	answerer := &fakeAnswerer{answer: "x", release: make(chan struct{})}
	svc := newTestAssistantService(answerer, nil)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.SubmitDocument(ctx, created.Id, &dto.SubmitDocumentRequest{Text: "doc"})
	require.NoError(t, err)
	_, err = svc.AskAsync(ctx, created.Id, &dto.AskRequest{Question: "q"})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(waitCtx), context.DeadlineExceeded)

	close(answerer.release)
	require.NoError(t, svc.Wait(ctx))
}
