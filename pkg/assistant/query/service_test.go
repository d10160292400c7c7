package query

import (
	"context"
	"errors"
	"testing"

	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/pkg/assistant/prompt"
	"ai-learning-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply     string
	err       error
	panicWith interface{}

	prompts []string
	options llm.Options
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (p *stubProvider) Generate(_ context.Context, in string, opts ...llm.Option) (string, error) {
	p.prompts = append(p.prompts, in)
	p.options = llm.ApplyOptions(llm.Options{}, opts...)
	if p.panicWith != nil {
		panic(p.panicWith)
	}
	return p.reply, p.err
}

func newTestService(p llm.LLMProvider, opts ...llm.Option) *Service {
	return NewService(p, logger.NewNopLogger(), nil, opts...)
}

func TestAnswerReturnsProviderTextVerbatim(t *testing.T) {
	provider := &stubProvider{reply: "  The sky is blue.\nSource: Provided Document\n"}
	svc := newTestService(provider)

	answer, err := svc.Answer(context.Background(), "The sky is blue.", "What color is the sky?")

	require.NoError(t, err)
	assert.Equal(t, "  The sky is blue.\nSource: Provided Document\n", answer)
	require.Len(t, provider.prompts, 1)
	assert.Equal(t, prompt.BuildGroundingPrompt("The sky is blue.", "What color is the sky?"), provider.prompts[0])
}

func TestAnswerWithoutCitationIsNotRewritten(t *testing.T) {
	provider := &stubProvider{reply: "Blue."}
	svc := newTestService(provider)

	answer, err := svc.Answer(context.Background(), "doc", "q")

	require.NoError(t, err)
	assert.Equal(t, "Blue.", answer)
}

func TestAnswerPassesProviderOptions(t *testing.T) {
	provider := &stubProvider{reply: "ok"}
	svc := newTestService(provider, llm.WithTemperature(0.2), llm.WithModel("gemini-2.5-pro"))

	_, err := svc.Answer(context.Background(), "doc", "q")

	require.NoError(t, err)
	assert.Equal(t, 0.2, provider.options.Temperature)
	assert.Equal(t, "gemini-2.5-pro", provider.options.Model)
}

func TestAnswerConvertsFailures(t *testing.T) {
	statusErr := &llm.StatusError{Provider: "gemini", StatusCode: 503, Body: "overloaded"}
	quotaErr := &llm.StatusError{
		Provider:   "gemini",
		StatusCode: 429,
		Body:       `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`,
	}

	tests := []struct {
		name      string
		provider  *stubProvider
		wantMsg   string
		wantCause error
	}{
		{
			name:      "network error",
			provider:  &stubProvider{err: errors.New("timeout")},
			wantMsg:   "timeout",
			wantCause: nil,
		},
		{
			name:      "status error",
			provider:  &stubProvider{err: statusErr},
			wantMsg:   "gemini error: status 503",
			wantCause: statusErr,
		},
		{
			name:      "status error keeps raw body out of the message",
			provider:  &stubProvider{err: quotaErr},
			wantMsg:   "gemini error: Resource has been exhausted (e.g. check quota).",
			wantCause: quotaErr,
		},
		{
			name:      "empty response",
			provider:  &stubProvider{err: llm.ErrEmptyResponse},
			wantMsg:   llm.ErrEmptyResponse.Error(),
			wantCause: llm.ErrEmptyResponse,
		},
		{
			name:     "error without message",
			provider: &stubProvider{err: errors.New("")},
			wantMsg:  UnknownErrorMessage,
		},
		{
			name:     "panic with non-error",
			provider: &stubProvider{panicWith: 42},
			wantMsg:  UnknownErrorMessage,
		},
		{
			name:     "panic with error",
			provider: &stubProvider{panicWith: errors.New("socket closed")},
			wantMsg:  "socket closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.provider)

			answer, err := svc.Answer(context.Background(), "doc", "q")

			assert.Empty(t, answer)
			require.Error(t, err)

			var qErr *QueryError
			require.True(t, errors.As(err, &qErr))
			assert.Equal(t, tt.wantMsg, qErr.Message)
			assert.Equal(t, tt.wantMsg, err.Error())
			if tt.wantCause != nil {
				assert.ErrorIs(t, err, tt.wantCause)
			}
		})
	}
}

func TestAsQueryError(t *testing.T) {
	original := &QueryError{Message: "already typed"}
	assert.Same(t, original, AsQueryError(original))

	converted := AsQueryError(errors.New("plain"))
	assert.Equal(t, "plain", converted.Message)

	assert.Equal(t, UnknownErrorMessage, AsQueryError(nil).Message)
}
