package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini      = "gemini"
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
)

var (
	ErrMissingAPIKey            = errors.New("GOOGLE_GEMINI_API_KEY (or API_KEY) environment variable not set")
	ErrMissingHuggingFaceAPIKey = errors.New("HUGGINGFACE_API_KEY environment variable not set")
)

type Config struct {
	App       AppConfig
	Keys      APIKeys
	Ai        AIConfig
	Session   SessionConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
}

type APIKeys struct {
	GoogleGemini string
	HuggingFace  string
}

type AIConfig struct {
	LLMProvider        string // "gemini", "ollama" or "huggingface"
	LLMModel           string // e.g. "gemini-2.5-flash", "llama3"
	GeminiBaseURL      string
	OllamaBaseURL      string
	HuggingFaceBaseURL string
	MaxOutputTokens    int // 0 leaves the provider default
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	EventTopic      string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	provider := getEnv("LLM_PROVIDER", ProviderGemini)

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm_query.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", getEnv("API_KEY", "")),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:        provider,
			LLMModel:           getEnv("LLM_MODEL", defaultModel(provider)),
			GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceBaseURL: getEnv("HUGGINGFACE_BASE_URL", "https://router.huggingface.co/v1"),
			MaxOutputTokens:    getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 0),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
			EventTopic:      getEnv("SESSION_EVENT_TOPIC", "ASSISTANT_SESSION_EVENTS"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnv("OTEL_ENABLED", "false") == "true",
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ai-learning-assistant-backend"),
		},
	}
}

// Validate reports configuration that must stop the process at startup.
func (c *Config) Validate() error {
	switch c.Ai.LLMProvider {
	case ProviderGemini:
		if c.Keys.GoogleGemini == "" {
			return ErrMissingAPIKey
		}
	case ProviderHuggingFace:
		if c.Keys.HuggingFace == "" {
			return ErrMissingHuggingFaceAPIKey
		}
	}
	return nil
}

// ProviderEndpoint returns the base URL and credential of the selected provider.
func (c *Config) ProviderEndpoint() (baseURL, apiKey string) {
	switch c.Ai.LLMProvider {
	case ProviderOllama:
		return c.Ai.OllamaBaseURL, ""
	case ProviderHuggingFace:
		return c.Ai.HuggingFaceBaseURL, c.Keys.HuggingFace
	default:
		return c.Ai.GeminiBaseURL, c.Keys.GoogleGemini
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOllama:
		return "llama3"
	case ProviderHuggingFace:
		return "meta-llama/Llama-3.1-8B-Instruct"
	default:
		return "gemini-2.5-flash"
	}
}

// getEnv treats an empty variable as unset.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90m") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
