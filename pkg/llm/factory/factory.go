package factory

import (
	"errors"
	"fmt"

	"ai-learning-assistant-be/pkg/llm"
	"ai-learning-assistant-be/pkg/llm/gemini"
	"ai-learning-assistant-be/pkg/llm/huggingface"
	"ai-learning-assistant-be/pkg/llm/ollama"
)

var ErrMissingAPIKey = errors.New("missing API key for LLM provider")

type ProviderConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return gemini.NewGeminiProvider(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case "huggingface":
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
