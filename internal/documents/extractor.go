package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Table is a table recovered from a document.
type Table struct {
	Caption string     `json:"caption,omitempty"`
	Rows    [][]string `json:"rows"`
}

// Element is a structural element such as a heading or list item.
type Element struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Extraction is the result of text extraction.
type Extraction struct {
	Text     string    `json:"text"`
	Tables   []Table   `json:"tables,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Extractor turns document bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (Extraction, error)
}

// ErrUnsupported is returned when an extractor cannot read a mime type.
var ErrUnsupported = errors.New("unsupported document type")

// HTTPExtractor calls an external extraction service.
type HTTPExtractor struct {
	url    string
	client *http.Client
}

// NewHTTPExtractor creates an extractor that POSTs to url.
func NewHTTPExtractor(url string) *HTTPExtractor {
	return &HTTPExtractor{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type extractRequest struct {
	MimeType string `json:"mime_type"`
	Content  []byte `json:"content"`
}

// Extract sends the document to the service and decodes its reply.
func (e *HTTPExtractor) Extract(ctx context.Context, data []byte, mimeType string) (Extraction, error) {
	body, err := json.Marshal(extractRequest{MimeType: mimeType, Content: data})
	if err != nil {
		return Extraction{}, fmt.Errorf("marshalling extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return Extraction{}, fmt.Errorf("creating extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Extraction{}, fmt.Errorf("reading extraction response: %w", err)
	}
	if resp.StatusCode == http.StatusUnsupportedMediaType {
		return Extraction{}, fmt.Errorf("%s: %w", mimeType, ErrUnsupported)
	}
	if resp.StatusCode != http.StatusOK {
		return Extraction{}, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out Extraction
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Extraction{}, fmt.Errorf("decoding extraction response: %w", err)
	}
	return out, nil
}

// TextExtractor reads plain-text documents locally. It is used when no
// extraction service is configured.
type TextExtractor struct{}

// Extract returns the document text for text/* types.
func (TextExtractor) Extract(ctx context.Context, data []byte, mimeType string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	if !strings.HasPrefix(mimeType, "text/") || !utf8.Valid(data) {
		return Extraction{}, fmt.Errorf("%s: %w", mimeType, ErrUnsupported)
	}

	text := string(data)
	var elements []Element
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			elements = append(elements, Element{Type: "heading", Text: strings.TrimSpace(strings.TrimLeft(line, "#"))})
		}
	}
	return Extraction{Text: text, Elements: elements}, nil
}

// NewExtractor returns an HTTPExtractor when url is set, otherwise a
// TextExtractor.
func NewExtractor(url string) Extractor {
	if url == "" {
		return TextExtractor{}
	}
	return NewHTTPExtractor(url)
}
