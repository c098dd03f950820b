package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
)

// Assistant produces the assistant's next reply for a conversation.
type Assistant interface {
	Complete(ctx context.Context, systemPrompt string, history []conversation.Message) (string, error)
}

// AssistantOptions tune the provider-backed Assistant.
type AssistantOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      *zap.Logger
	// OnCall is invoked after every provider call with its latency and error.
	OnCall func(provider string, d time.Duration, err error)
}

// ProviderAssistant adapts a Provider to Assistant.
type ProviderAssistant struct {
	provider Provider
	opts     AssistantOptions
	log      *zap.Logger
}

// NewAssistant wraps provider.
func NewAssistant(provider Provider, opts AssistantOptions) *ProviderAssistant {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ProviderAssistant{provider: provider, opts: opts, log: log.Named("llm")}
}

// Complete sends the system prompt followed by the conversation history.
func (a *ProviderAssistant) Complete(ctx context.Context, systemPrompt string, history []conversation.Message) (string, error) {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	for _, m := range history {
		role := RoleUser
		switch m.Role {
		case conversation.RoleAssistant:
			role = RoleAssistant
		case conversation.RoleSystem:
			// Stored system notes are not replayed to the model.
			continue
		}
		msgs = append(msgs, Message{Role: role, Content: m.Content})
	}

	start := time.Now()
	resp, err := a.provider.Complete(ctx, CompletionRequest{
		Model:       a.opts.Model,
		Messages:    msgs,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	})
	elapsed := time.Since(start)
	if a.opts.OnCall != nil {
		a.opts.OnCall(a.provider.Name(), elapsed, err)
	}
	if err != nil {
		return "", err
	}

	in, out := Usage(resp, systemPrompt)
	a.log.Debug("completion finished",
		zap.String("provider", a.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", in),
		zap.Int("output_tokens", out),
		zap.Float64("cost_usd", EstimateCost(resp.Model, in, out)),
		zap.Duration("latency", elapsed))
	return resp.Content, nil
}
