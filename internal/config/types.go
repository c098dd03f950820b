package config

import (
	"time"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/orchestrator"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderMiniMax    ProviderType = "minimax"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
)

// StoreBackend selects where session contexts live.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreSQLite StoreBackend = "sqlite"
)

// Config is the top-level intake configuration, corresponding to intake.yml.
type Config struct {
	Provider          ProviderType                       `yaml:"provider" koanf:"provider"`
	Model             string                             `yaml:"model" koanf:"model"`
	LLM               LLMConfig                          `yaml:"llm" koanf:"llm"`
	Server            ServerConfig                       `yaml:"server" koanf:"server"`
	Store             StoreConfig                        `yaml:"store" koanf:"store"`
	Timeouts          TimeoutConfig                      `yaml:"timeouts" koanf:"timeouts"`
	SerializeSessions bool                               `yaml:"serialize_sessions" koanf:"serialize_sessions"`
	Log               LogConfig                          `yaml:"log" koanf:"log"`
	DataDir           string                             `yaml:"data_dir" koanf:"data_dir"`
	UploadsDir        string                             `yaml:"uploads_dir" koanf:"uploads_dir"`
	ExtractionURL     string                             `yaml:"extraction_url,omitempty" koanf:"extraction_url"`
	Teams             map[string]conversation.TeamConfig `yaml:"teams,omitempty" koanf:"teams"`
	Personas          map[string]orchestrator.Persona    `yaml:"personas,omitempty" koanf:"personas"`
}

// LLMConfig tunes completions.
type LLMConfig struct {
	MaxTokens         int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64 `yaml:"temperature" koanf:"temperature"`
	RequestsPerMinute int     `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	BaseURL           string  `yaml:"base_url,omitempty" koanf:"base_url"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// StoreConfig selects the context store.
type StoreConfig struct {
	Backend    StoreBackend  `yaml:"backend" koanf:"backend"`
	Path       string        `yaml:"path,omitempty" koanf:"path"`
	TTL        time.Duration `yaml:"ttl" koanf:"ttl"`
	MemorySize int           `yaml:"memory_size" koanf:"memory_size"`
}

// TimeoutConfig bounds every collaborator call of a turn.
type TimeoutConfig struct {
	AI         time.Duration `yaml:"ai" koanf:"ai"`
	StoreLoad  time.Duration `yaml:"store_load" koanf:"store_load"`
	StoreSave  time.Duration `yaml:"store_save" koanf:"store_save"`
	Submission time.Duration `yaml:"submission" koanf:"submission"`
	Effects    time.Duration `yaml:"effects" koanf:"effects"`
	Extraction time.Duration `yaml:"extraction" koanf:"extraction"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	JSON  bool   `yaml:"json" koanf:"json"`
}
