package middleware

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/extractor"
)

const maxKeyFacts = 5

var caseDraftPattern = regexp.MustCompile(`(?i)\b((draft|summari[sz]e|write\s+up|put\s+together)\b[^.?!]{0,30}\b(my|the|this)\s+(case|matter|situation)|case\s+(draft|summary))\b`)

// CaseDraft builds a structured summary of the matter on request.
type CaseDraft struct{}

func (CaseDraft) Name() string { return "case_draft" }

func (CaseDraft) Handle(_ context.Context, in Input) Output {
	if !in.Context.HasMatter() || !caseDraftPattern.MatchString(conversation.LastUserMessage(in.Messages)) {
		return Output{Context: in.Context}
	}

	out := in.Context
	draft := BuildDraft(out, in.Messages)
	out.CaseDraft = &draft
	return Output{Context: out, Response: renderDraft(draft), ShouldStop: true}
}

// BuildDraft assembles a case draft from what the context already knows.
// Key facts are user messages that mention a matter, excluding the
// description itself.
func BuildDraft(c conversation.Context, history []conversation.Message) conversation.CaseDraft {
	summary := c.Description
	if summary == "" {
		summary = fmt.Sprintf("Prospective client seeking help with a %s matter.", c.PrimaryMatter())
	}

	var facts []string
	for _, msg := range conversation.UserMessages(history) {
		msg = strings.TrimSpace(msg)
		if msg == "" || msg == c.Description || len(extractor.Matters(msg)) == 0 {
			continue
		}
		facts = append(facts, truncate(msg, 200))
		if len(facts) == maxKeyFacts {
			break
		}
	}

	return conversation.CaseDraft{
		MatterType:    c.PrimaryMatter(),
		Jurisdiction:  c.Jurisdiction,
		Summary:       summary,
		KeyFacts:      facts,
		OpposingParty: c.OpposingParty,
		Urgency:       c.Urgency,
		CreatedAt:     timeNow().UTC(),
	}
}

func renderDraft(d conversation.CaseDraft) string {
	var sb strings.Builder
	sb.WriteString("Here is a draft summary of your case.\n\n")
	fmt.Fprintf(&sb, "Matter type: %s\n", d.MatterType)
	if d.Jurisdiction != "" {
		fmt.Fprintf(&sb, "Jurisdiction: %s\n", d.Jurisdiction)
	}
	if d.OpposingParty != "" {
		fmt.Fprintf(&sb, "Opposing party: %s\n", d.OpposingParty)
	}
	fmt.Fprintf(&sb, "Summary: %s\n", d.Summary)
	if len(d.KeyFacts) > 0 {
		sb.WriteString("Key facts:\n")
		for _, f := range d.KeyFacts {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}
	sb.WriteString("\nLet me know if anything should change, or ask me to generate a PDF for a downloadable copy.")
	return sb.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
