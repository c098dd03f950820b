package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/orchestrator"
)

const envPrefix = "INTAKE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (INTAKE_*). A double underscore separates
// nested keys: INTAKE_SERVER__PORT sets server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderAnthropic:  true,
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderMiniMax:    true,
	ProviderGoogle:     true,
	ProviderOllama:     true,
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks that the configuration contains valid values. Every
// failure is a non-retryable configuration error.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errs.Configuration(fmt.Sprintf(format, args...), nil)
	}

	if c.Provider == "" {
		return invalid("provider is required")
	}
	if !validProviders[c.Provider] {
		return invalid("invalid provider %q: must be one of anthropic, openai, openrouter, minimax, google, ollama", c.Provider)
	}
	if c.Model == "" {
		return invalid("model is required")
	}
	if c.LLM.MaxTokens < 0 || c.LLM.RequestsPerMinute < 0 {
		return invalid("llm.max_tokens and llm.requests_per_minute must be non-negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return invalid("llm.temperature must be between 0 and 2")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port %d is out of range", c.Server.Port)
	}

	switch c.Store.Backend {
	case StoreMemory:
		if c.Store.MemorySize <= 0 {
			return invalid("store.memory_size must be positive for the memory backend")
		}
	case StoreSQLite:
		if c.DataDir == "" && c.Store.Path == "" {
			return invalid("data_dir or store.path is required for the sqlite backend")
		}
	default:
		return invalid("invalid store.backend %q: must be memory or sqlite", c.Store.Backend)
	}
	if c.Store.TTL <= 0 {
		return invalid("store.ttl must be positive")
	}

	t := c.Timeouts
	for name, d := range map[string]time.Duration{
		"ai": t.AI, "store_load": t.StoreLoad, "store_save": t.StoreSave,
		"submission": t.Submission, "effects": t.Effects, "extraction": t.Extraction,
	} {
		if d < 0 {
			return invalid("timeouts.%s must not be negative", name)
		}
	}

	if c.Log.Level != "" && !validLogLevels[c.Log.Level] {
		return invalid("invalid log.level %q", c.Log.Level)
	}

	for id, team := range c.Teams {
		if team.TeamID != "" && team.TeamID != id {
			return invalid("team %q declares a different team_id %q", id, team.TeamID)
		}
		if team.Persona != "" {
			if _, ok := c.Personas[team.Persona]; !ok && team.Persona != orchestrator.DefaultPersona {
				return invalid("team %q uses unknown persona %q", id, team.Persona)
			}
		}
	}

	return nil
}

// DBPath returns the SQLite database path.
func (c *Config) DBPath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "intake.db")
}

// Team returns the configuration of teamID. Unknown teams get a bare
// config carrying only their id.
func (c *Config) Team(teamID string) conversation.TeamConfig {
	t, ok := c.Teams[teamID]
	if !ok {
		return conversation.TeamConfig{TeamID: teamID}
	}
	t.TeamID = teamID
	return t
}

// Webhook returns the notification webhook of teamID, or "".
func (c *Config) Webhook(teamID string) string {
	return c.Teams[teamID].NotificationWebhook
}
