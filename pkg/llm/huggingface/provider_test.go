package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-learning-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Mitochondria."}}]}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf-key", srv.URL+"/", "meta-llama/Llama-3.1-8B-Instruct")
	got, err := p.Generate(context.Background(), "What is the powerhouse of the cell?", llm.WithTemperature(0.2))

	require.NoError(t, err)
	assert.Equal(t, "Mitochondria.", got)
	assert.Equal(t, "Bearer hf-key", gotAuth)
	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", gotReq.Model)
	assert.Equal(t, 1024, gotReq.MaxTokens)
	require.NotNil(t, gotReq.Temperature)
	assert.Equal(t, 0.2, *gotReq.Temperature)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, llm.RoleUser, gotReq.Messages[0].Role)
}

func TestChatMapsModelRole(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("", srv.URL, "m")
	_, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleModel, Content: "hello"},
	})

	require.NoError(t, err)
	assert.Equal(t, llm.RoleAssistant, gotReq.Messages[1].Role)
	assert.Nil(t, gotReq.Temperature)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "bad status",
			status: http.StatusTooManyRequests,
			body:   "rate limited",
			check: func(t *testing.T, err error) {
				var statusErr *llm.StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
				assert.Equal(t, "rate limited", statusErr.Body)
			},
		},
		{
			name:   "api error",
			status: http.StatusOK,
			body:   `{"error":{"message":"model is loading"}}`,
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "huggingface error: model is loading")
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, llm.ErrEmptyResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHuggingFaceProvider("k", srv.URL, "m").Generate(context.Background(), "q")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
