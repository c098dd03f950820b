package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/llm"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to intake! Let's configure your assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "anthropic", "openrouter", "minimax", "google", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.Provider),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Context store.
	storePrompt := promptui.Select{
		Label: "Where should conversation context be stored?",
		Items: []string{
			"sqlite (survives restarts)",
			"memory (lost on restart)",
		},
	}
	storeIdx, _, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("store selection: %w", err)
	}
	cfg.Store.Backend = []StoreBackend{StoreSQLite, StoreMemory}[storeIdx]

	// 4. Port.
	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 5. First team.
	teamPrompt := promptui.Prompt{
		Label:   "Team id (leave blank to skip)",
		Default: "",
	}
	teamID, err := teamPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("team id: %w", err)
	}
	if teamID = strings.TrimSpace(teamID); teamID != "" {
		firmPrompt := promptui.Prompt{Label: "Firm name"}
		firm, err := firmPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("firm name: %w", err)
		}
		cfg.Teams = map[string]conversation.TeamConfig{
			teamID: {TeamID: teamID, Branding: conversation.Branding{FirmName: strings.TrimSpace(firm)}},
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := llm.APIKeyEnv(string(cfg.Provider)); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running intake server.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("enter a port between 1 and 65535")
	}
	return nil
}
