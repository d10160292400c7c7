package query

import (
	"context"
	"errors"
	"time"

	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/pkg/assistant/prompt"
	"ai-learning-assistant-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "QueryService"

// UnknownErrorMessage replaces failures that carry no usable description.
const UnknownErrorMessage = "An unknown error occurred while contacting the AI."

// QueryError is the only error Answer returns.
type QueryError struct {
	Message string
	Cause   error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Answerer is what the session controller needs from this package.
type Answerer interface {
	Answer(ctx context.Context, docContext, question string) (string, error)
}

// Service answers one question against one document through the provider.
type Service struct {
	provider  llm.LLMProvider
	logger    logger.ILogger
	llmLogger logger.ILogger
	tracer    trace.Tracer
	options   []llm.Option
}

var _ Answerer = (*Service)(nil)

func NewService(provider llm.LLMProvider, log logger.ILogger, llmLog logger.ILogger, options ...llm.Option) *Service {
	if llmLog == nil {
		llmLog = log
	}
	return &Service{
		provider:  provider,
		logger:    log,
		llmLogger: llmLog,
		tracer:    otel.Tracer("ai-learning-assistant-be/pkg/assistant/query"),
		options:   options,
	}
}

// Answer returns the provider's raw text, or a *QueryError. It never panics
// and never retries.
func (s *Service) Answer(ctx context.Context, docContext, question string) (answer string, err error) {
	ctx, span := s.tracer.Start(ctx, "query.Answer", trace.WithAttributes(
		attribute.String("llm.provider", s.provider.Name()),
		attribute.Int("document.length", len(docContext)),
		attribute.Int("question.length", len(question)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			cause, _ := r.(error)
			answer, err = "", s.fail(span, cause)
		}
	}()

	groundingPrompt := prompt.BuildGroundingPrompt(docContext, question)
	s.llmLogger.Debug(module, "Prompt sent", map[string]interface{}{
		"provider": s.provider.Name(),
		"prompt":   groundingPrompt,
	})

	start := time.Now()
	answer, callErr := s.provider.Generate(ctx, groundingPrompt, s.options...)
	elapsed := time.Since(start)
	if callErr != nil {
		return "", s.fail(span, callErr)
	}

	s.llmLogger.Debug(module, "Answer received", map[string]interface{}{
		"provider":    s.provider.Name(),
		"answer":      answer,
		"duration_ms": elapsed.Milliseconds(),
	})

	if !prompt.HasCitation(answer) {
		s.logger.Warn(module, "Answer is missing the citation line", map[string]interface{}{
			"provider": s.provider.Name(),
		})
	}

	span.SetAttributes(attribute.Int("answer.length", len(answer)))
	return answer, nil
}

func (s *Service) fail(span trace.Span, cause error) *QueryError {
	qErr := &QueryError{Message: messageOf(cause), Cause: cause}

	span.RecordError(qErr)
	span.SetStatus(codes.Error, qErr.Message)
	details := map[string]interface{}{
		"provider": s.provider.Name(),
		"error":    qErr.Message,
	}
	var statusErr *llm.StatusError
	if errors.As(cause, &statusErr) {
		details["status"] = statusErr.StatusCode
		details["body"] = statusErr.Body
	}
	s.logger.Error(module, "Provider call failed", details)
	return qErr
}

func messageOf(err error) string {
	if err == nil || err.Error() == "" {
		return UnknownErrorMessage
	}
	var qErr *QueryError
	if errors.As(err, &qErr) {
		return qErr.Message
	}
	return err.Error()
}

// AsQueryError converts any error into a *QueryError.
func AsQueryError(err error) *QueryError {
	var qErr *QueryError
	if errors.As(err, &qErr) {
		return qErr
	}
	return &QueryError{Message: messageOf(err), Cause: err}
}
