package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	minimaxBaseURL    = "https://api.minimax.io/v1"
)

// OpenAIProvider implements Provider for the OpenAI Chat Completions API and
// the hosted services that speak it.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
	// clampTemperature keeps temperature inside (0, 1] for services that
	// reject anything else.
	clampTemperature bool
}

func newOpenAICompatible(name, apiKey, model, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model, name: name}
}

// NewOpenAIProvider creates a new OpenAI provider. An empty baseURL selects
// the public API.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	return newOpenAICompatible("openai", apiKey, model, baseURL)
}

// NewOpenRouterProvider creates a provider for OpenRouter.
func NewOpenRouterProvider(apiKey, model string) *OpenAIProvider {
	return newOpenAICompatible("openrouter", apiKey, model, openRouterBaseURL)
}

// NewMinimaxProvider creates a provider for MiniMax.
func NewMinimaxProvider(apiKey, model string) *OpenAIProvider {
	p := newOpenAICompatible("minimax", apiKey, model, minimaxBaseURL)
	p.clampTemperature = true
	return p
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	temp := req.Temperature
	if p.clampTemperature {
		switch {
		case temp <= 0:
			temp = 0.01
		case temp > 1:
			temp = 1
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       firstNonEmpty(req.Model, p.model),
		Messages:    messages,
		MaxTokens:   orDefault(req.MaxTokens, defaultMaxTokens),
		Temperature: float32(temp),
	})
	if err != nil {
		return nil, err
	}

	out := &CompletionResponse{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}
