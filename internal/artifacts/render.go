// Package artifacts renders case drafts into downloadable documents and
// keeps them for later retrieval.
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
)

// Artifact is a rendered document.
type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Renderer turns a case draft into an artifact.
type Renderer interface {
	Render(ctx context.Context, draft conversation.CaseDraft, clientName string, branding conversation.Branding) (Artifact, error)
}

// HTMLRenderer renders case drafts as branded, print-ready HTML. Markdown
// is converted with goldmark; raw HTML in client text is escaped.
type HTMLRenderer struct {
	md   goldmark.Markdown
	page *template.Template
	now  func() time.Time
}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.New("case").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing case template: %w", err)
	}
	return &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		page: tmpl,
		now:  time.Now,
	}, nil
}

type pageData struct {
	Title        string
	FirmName     string
	PrimaryColor string
	LogoURL      string
	GeneratedAt  string
	Content      template.HTML
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{3,8}$`)

// Render builds the case summary document.
func (r *HTMLRenderer) Render(ctx context.Context, draft conversation.CaseDraft, clientName string, branding conversation.Branding) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	var body bytes.Buffer
	if err := r.md.Convert([]byte(Markdown(draft, clientName)), &body); err != nil {
		return Artifact{}, fmt.Errorf("converting markdown: %w", err)
	}

	color := branding.PrimaryColor
	if !colorPattern.MatchString(color) {
		color = "#1f3a5f"
	}
	firm := branding.FirmName
	if firm == "" {
		firm = "Legal Intake"
	}

	var out bytes.Buffer
	err := r.page.Execute(&out, pageData{
		Title:        fmt.Sprintf("%s case summary", draft.MatterType),
		FirmName:     firm,
		PrimaryColor: color,
		LogoURL:      branding.LogoURL,
		GeneratedAt:  r.now().UTC().Format("January 2, 2006"),
		Content:      template.HTML(body.String()),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("executing case template: %w", err)
	}

	return Artifact{
		Filename:    Filename(draft, clientName),
		ContentType: "text/html; charset=utf-8",
		Content:     out.Bytes(),
	}, nil
}

// Markdown renders the draft as a markdown document.
func Markdown(draft conversation.CaseDraft, clientName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s Case Summary\n\n", escapeMD(draft.MatterType))
	if clientName != "" {
		fmt.Fprintf(&sb, "**Client:** %s\n\n", escapeMD(clientName))
	}
	if draft.Jurisdiction != "" {
		fmt.Fprintf(&sb, "**Jurisdiction:** %s\n\n", escapeMD(draft.Jurisdiction))
	}
	if draft.Urgency != "" {
		fmt.Fprintf(&sb, "**Urgency:** %s\n\n", escapeMD(draft.Urgency))
	}
	if draft.OpposingParty != "" {
		fmt.Fprintf(&sb, "**Opposing party:** %s\n\n", escapeMD(draft.OpposingParty))
	}
	sb.WriteString("## Summary\n\n")
	sb.WriteString(escapeMD(draft.Summary))
	sb.WriteString("\n")
	if len(draft.KeyFacts) > 0 {
		sb.WriteString("\n## Key facts\n\n")
		for _, f := range draft.KeyFacts {
			fmt.Fprintf(&sb, "- %s\n", escapeMD(f))
		}
	}
	return sb.String()
}

var mdSpecial = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "#", `\#`, "[", `\[`, "]", `\]`,
	"<", "&lt;", ">", "&gt;", "|", `\|`,
)

func escapeMD(s string) string {
	return mdSpecial.Replace(strings.TrimSpace(s))
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds a download name like "family-law-john-smith.html".
func Filename(draft conversation.CaseDraft, clientName string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(draft.MatterType+" "+clientName), "-"), "-")
	if base == "" {
		base = "case-summary"
	}
	return base + ".html"
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 760px; margin: 2rem auto; color: #222; }
header { border-bottom: 3px solid {{.PrimaryColor}}; margin-bottom: 1.5rem; padding-bottom: .5rem; }
h1, h2 { color: {{.PrimaryColor}}; }
footer { margin-top: 2rem; font-size: .85rem; color: #666; }
</style>
</head>
<body>
<header>
{{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.FirmName}}" height="48">{{end}}
<strong>{{.FirmName}}</strong>
</header>
{{.Content}}
<footer>Prepared {{.GeneratedAt}}. This summary is based on information provided during intake and is not legal advice.</footer>
</body>
</html>
`
