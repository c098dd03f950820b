package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func TestAssistantBuildsMessages(t *testing.T) {
	mock := NewMockProvider("test")
	var observed []string
	a := NewAssistant(mock, AssistantOptions{
		Model:     "m",
		MaxTokens: 256,
		OnCall: func(provider string, _ time.Duration, err error) {
			observed = append(observed, fmt.Sprintf("%s:%v", provider, err))
		},
	})

	reply, err := a.Complete(context.Background(), "be helpful", []conversation.Message{
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleSystem, Content: "internal note"},
		{Role: conversation.RoleAssistant, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "mock response" {
		t.Errorf("reply = %q", reply)
	}

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	req := mock.Calls[0]
	if req.Model != "m" || req.MaxTokens != 256 {
		t.Errorf("request options = %+v", req)
	}
	want := []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}
	if len(req.Messages) != len(want) {
		t.Fatalf("messages = %+v", req.Messages)
	}
	for i := range want {
		if req.Messages[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, req.Messages[i], want[i])
		}
	}
	if len(observed) != 1 || observed[0] != "test:<nil>" {
		t.Errorf("OnCall observed %v", observed)
	}
}

func TestAssistantPropagatesError(t *testing.T) {
	mock := NewMockProvider("test")
	mock.Err = errors.New("boom")
	if _, err := NewAssistant(mock, AssistantOptions{}).Complete(context.Background(), "p", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnthropicProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var req anthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.System != "sys" || len(req.Messages) != 1 || req.MaxTokens != defaultMaxTokens {
			t.Errorf("unexpected request: %+v", req)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"hi "},{"type":"text","text":"there"}],"model":"claude","stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	defer server.Close()

	p := NewAnthropicProvider("key", "claude", server.URL)
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hello"},
	}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hi there" || resp.InputTokens != 3 || resp.FinishReason != "end_turn" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestProviderStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		fmt.Fprint(w, `{"error":"slow"}`)
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "llama").Complete(context.Background(), CompletionRequest{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusGatewayTimeout {
		t.Fatalf("err = %v, want StatusError 504", err)
	}
	if !IsTimeout(err) {
		t.Error("504 should be classified as timeout")
	}
}

func TestGoogleProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/gemini-2.0-flash:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req geminiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.SystemInstruction == nil || len(req.Contents) != 2 || req.Contents[1].Role != "model" {
			t.Errorf("unexpected request: %+v", req)
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":1}}`)
	}))
	defer server.Close()

	resp, err := NewGoogleProvider("key", "gemini-2.0-flash", server.URL).Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "q"},
			{Role: RoleAssistant, Content: "a"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" || resp.InputTokens != 5 || resp.Model != "gemini-2.0-flash" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOllamaProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"hey"},"model":"llama","done_reason":"stop","prompt_eval_count":4,"eval_count":1}`)
	}))
	defer server.Close()

	resp, err := NewOllamaProvider(server.URL+"/", "llama").Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hey" || resp.OutputTokens != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenAICompatibleProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Temperature float64 `json:"temperature"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"t=%.2f"},"finish_reason":"stop"}],"usage":{"prompt_tokens":7,"completion_tokens":3}}`, req.Temperature)
	}))
	defer server.Close()

	p := NewOpenAIProvider("key", "gpt-4o-mini", server.URL)
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: 0.5,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "t=0.50" || resp.InputTokens != 7 || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}
	if p.Name() != "openai" {
		t.Errorf("Name = %q", p.Name())
	}
	if NewMinimaxProvider("k", "m").Name() != "minimax" || NewOpenRouterProvider("k", "m").Name() != "openrouter" {
		t.Error("unexpected compatible provider names")
	}
}

func TestFactory(t *testing.T) {
	for _, env := range apiKeyEnv {
		t.Setenv(env, "")
	}
	t.Setenv("OLLAMA_HOST", "")

	if _, err := NewProvider(Settings{Type: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewProvider(Settings{Type: "anthropic"}); err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}

	p, err := NewProvider(Settings{Type: "ollama", Model: "llama"})
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if p.(*OllamaProvider).baseURL != "http://localhost:11434" {
		t.Errorf("ollama default host = %q", p.(*OllamaProvider).baseURL)
	}

	t.Setenv("OPENROUTER_API_KEY", "k")
	tests := []struct {
		settings Settings
		name     string
	}{
		{Settings{Type: "anthropic", APIKey: "k"}, "anthropic"},
		{Settings{Type: "openai", APIKey: "k"}, "openai"},
		{Settings{Type: "openrouter"}, "openrouter"},
		{Settings{Type: "minimax", APIKey: "k"}, "minimax"},
		{Settings{Type: "google", APIKey: "k"}, "google"},
	}
	for _, tt := range tests {
		p, err := NewProvider(tt.settings)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if p.Name() != tt.name {
			t.Errorf("Name = %q, want %q", p.Name(), tt.name)
		}
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	mock := NewMockProvider("test")
	if NewRateLimitedProvider(mock, 0) != Provider(mock) {
		t.Error("rpm 0 should return the provider unwrapped")
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	for i := 0; i < 2; i++ {
		if _, err := rl.Complete(ctx, CompletionRequest{}); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// The third request needs a 30s refill and gives up with the context.
	if _, err := rl.Complete(ctx, CompletionRequest{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("expected 2 provider calls, got %d", mock.CallCount())
	}
}

func TestRateLimiterRefills(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 60).(*RateLimitedProvider)
	base := time.Now()
	rl.now = func() time.Time { return base }
	rl.tokens = 0
	rl.lastFill = base

	if _, ok := rl.reserve(); ok {
		t.Fatal("empty bucket should not reserve")
	}
	rl.now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	if _, ok := rl.reserve(); !ok {
		t.Fatal("bucket should refill one token per second at 60 rpm")
	}
}

func TestIsTimeout(t *testing.T) {
	if IsTimeout(nil) {
		t.Error("nil is not a timeout")
	}
	if !IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) {
		t.Error("deadline exceeded should be a timeout")
	}
	if IsTimeout(&StatusError{Code: http.StatusInternalServerError}) {
		t.Error("500 is not a timeout")
	}
}

func TestEstimateCost(t *testing.T) {
	got := EstimateCost("gpt-4o", 1_000_000, 1_000_000)
	if got != 12.50 {
		t.Errorf("EstimateCost(gpt-4o) = %f, want 12.50", got)
	}
	if EstimateCost("unknown", 100, 100) != 0 {
		t.Error("unknown model should cost 0")
	}
}

func TestUsageEstimatesMissingCounts(t *testing.T) {
	in, out := Usage(&CompletionResponse{Content: "12345678"}, "1234")
	if in != 1 || out != 2 {
		t.Errorf("Usage = %d, %d; want 1, 2", in, out)
	}
	in, out = Usage(&CompletionResponse{InputTokens: 9, OutputTokens: 8}, "")
	if in != 9 || out != 8 {
		t.Errorf("Usage = %d, %d; want 9, 8", in, out)
	}
}
