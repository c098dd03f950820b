package llm

import (
	"fmt"
	"os"
)

// Settings selects and configures a provider.
type Settings struct {
	Type    string
	Model   string
	APIKey  string // falls back to the provider's environment variable
	BaseURL string
}

var apiKeyEnv = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"minimax":    "MINIMAX_API_KEY",
	"google":     "GOOGLE_API_KEY",
}

// NewProvider creates a new LLM provider based on the given settings.
// Supported provider types: "anthropic", "openai", "openrouter", "minimax",
// "google", "ollama".
func NewProvider(s Settings) (Provider, error) {
	if s.Type == "ollama" {
		host := s.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, s.Model), nil
	}

	env, ok := apiKeyEnv[s.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported provider type: %s", s.Type)
	}
	key := s.APIKey
	if key == "" {
		key = os.Getenv(env)
	}
	if key == "" {
		return nil, fmt.Errorf("%s environment variable is not set", env)
	}

	switch s.Type {
	case "anthropic":
		return NewAnthropicProvider(key, s.Model, s.BaseURL), nil
	case "openai":
		return NewOpenAIProvider(key, s.Model, s.BaseURL), nil
	case "openrouter":
		return NewOpenRouterProvider(key, s.Model), nil
	case "minimax":
		return NewMinimaxProvider(key, s.Model), nil
	default:
		return NewGoogleProvider(key, s.Model, s.BaseURL), nil
	}
}

// APIKeyEnv returns the environment variable a provider reads its API key
// from, or "" when it needs none.
func APIKeyEnv(providerType string) string {
	return apiKeyEnv[providerType]
}
