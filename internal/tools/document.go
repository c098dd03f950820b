package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/documents"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
)

const previewRunes = 300

// analyzeDocument extracts an uploaded file and summarises what was found.
func (h *handlers) analyzeDocument(ctx context.Context, inv toolcall.Invocation, s Session) errs.Result[Outcome] {
	p := inv.Params.(toolcall.AnalyzeDocumentParams)
	diag := map[string]any{"tool": string(inv.Name), "file_id": p.FileID}

	ctx, cancel := context.WithTimeout(ctx, h.deps.Timeouts.Extraction)
	defer cancel()

	f, err := h.deps.Files.Open(ctx, s.Context.TeamID, p.FileID)
	if errors.Is(err, documents.ErrNotFound) {
		return errs.Fail[Outcome](errs.New(errs.CodeFileNotFound,
			"I couldn't find that file. Could you try uploading it again?",
			errs.WithField("file_id"), errs.WithCause(err), errs.WithContext(diag)))
	}
	if err != nil {
		return errs.Fail[Outcome](errs.Infrastructure(errs.CodeExtractionFailed, err, diag))
	}

	ext, err := h.deps.Extractor.Extract(ctx, f.Data, f.MimeType)
	if errors.Is(err, documents.ErrUnsupported) {
		return errs.Fail[Outcome](errs.New(errs.CodeExtractionFailed,
			"I can't read that type of file yet. A PDF or text document works best.",
			errs.WithCause(err), errs.WithContext(diag)))
	}
	if err != nil {
		return errs.Fail[Outcome](errs.Infrastructure(errs.CodeExtractionFailed, err, diag))
	}

	return errs.Ok(Outcome{Reply: describeExtraction(f.Name, ext, p), Context: s.Context.Clone()})
}

func describeExtraction(name string, ext documents.Extraction, p toolcall.AnalyzeDocumentParams) string {
	var sb strings.Builder
	words := len(strings.Fields(ext.Text))
	fmt.Fprintf(&sb, "I've reviewed %s", name)
	if p.AnalysisType != "" {
		fmt.Fprintf(&sb, " (%s)", p.AnalysisType)
	}
	fmt.Fprintf(&sb, ". It contains about %d words", words)
	if n := len(ext.Tables); n > 0 {
		fmt.Fprintf(&sb, " and %d table(s)", n)
	}
	sb.WriteString(".")

	var headings []string
	for _, el := range ext.Elements {
		if el.Type == "heading" && el.Text != "" {
			headings = append(headings, el.Text)
		}
	}
	if len(headings) > 0 {
		fmt.Fprintf(&sb, " Sections: %s.", strings.Join(headings, "; "))
	}

	if preview := strings.TrimSpace(ext.Text); preview != "" {
		if utf8.RuneCountInString(preview) > previewRunes {
			preview = string([]rune(preview)[:previewRunes]) + "…"
		}
		fmt.Fprintf(&sb, "\n\nIt begins: \"%s\"", preview)
	}
	if p.SpecificQuestion != "" {
		fmt.Fprintf(&sb, "\n\nYou asked: %q. A lawyer will review the document with that question in mind.", p.SpecificQuestion)
	}
	return sb.String()
}
