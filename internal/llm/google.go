package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const googleAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GoogleProvider implements Provider using the Google Gemini API via direct HTTP.
type GoogleProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGoogleProvider creates a new Google Gemini provider. An empty baseURL
// selects the public API.
func NewGoogleProvider(apiKey, model, baseURL string) *GoogleProvider {
	if baseURL == "" {
		baseURL = googleAPIBaseURL
	}
	return &GoogleProvider{apiKey: apiKey, model: model, baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{}}
}

func (p *GoogleProvider) Name() string { return "google" }

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := firstNonEmpty(req.Model, p.model)

	var apiReq geminiRequest
	apiReq.GenerationConfig.Temperature = req.Temperature
	apiReq.GenerationConfig.MaxOutputTokens = orDefault(req.MaxTokens, defaultMaxTokens)

	var system []geminiPart
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, geminiPart{Text: msg.Content})
		case RoleAssistant:
			apiReq.Contents = append(apiReq.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			apiReq.Contents = append(apiReq.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		apiReq.SystemInstruction = &geminiContent{Parts: system}
	}
	// Gemini rejects requests without contents.
	if len(apiReq.Contents) == 0 {
		apiReq.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: ""}}}}
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, url.PathEscape(model), url.QueryEscape(p.apiKey))
	var apiResp geminiResponse
	if err := postJSON(ctx, p.client, p.Name(), endpoint, nil, apiReq, &apiResp); err != nil {
		return nil, err
	}

	out := &CompletionResponse{Model: model}
	if len(apiResp.Candidates) > 0 {
		c := apiResp.Candidates[0]
		out.FinishReason = c.FinishReason
		if c.Content != nil {
			var sb strings.Builder
			for _, part := range c.Content.Parts {
				sb.WriteString(part.Text)
			}
			out.Content = sb.String()
		}
	}
	if apiResp.UsageMetadata != nil {
		out.InputTokens = apiResp.UsageMetadata.PromptTokenCount
		out.OutputTokens = apiResp.UsageMetadata.CandidatesTokenCount
	}
	return out, nil
}
