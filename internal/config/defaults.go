package config

import "time"

// DefaultPath is where intake looks for its configuration.
const DefaultPath = "intake.yml"

// defaultModels maps each provider to the model used when none is set.
var defaultModels = map[ProviderType]string{
	ProviderAnthropic:  "claude-haiku-4-5-20251001",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderMiniMax:    "MiniMax-M2.5-highspeed",
	ProviderGoogle:     "gemini-3-flash-preview",
	ProviderOllama:     "llama3",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Model:    defaultModels[ProviderOpenAI],
		LLM: LLMConfig{
			MaxTokens:   1024,
			Temperature: 0.3,
		},
		Server: ServerConfig{Port: 8787},
		Store: StoreConfig{
			Backend:    StoreSQLite,
			TTL:        24 * time.Hour,
			MemorySize: 1024,
		},
		Timeouts: TimeoutConfig{
			AI:         30 * time.Second,
			StoreLoad:  2 * time.Second,
			StoreSave:  2 * time.Second,
			Submission: 10 * time.Second,
			Effects:    5 * time.Second,
			Extraction: 15 * time.Second,
		},
		Log:        LogConfig{Level: "info"},
		DataDir:    ".intake",
		UploadsDir: ".intake/uploads",
	}
}

// DefaultModel returns the default model for provider, or "" if unknown.
func DefaultModel(provider ProviderType) string {
	return defaultModels[provider]
}
