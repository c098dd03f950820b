package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/intakestate"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
)

// DefaultPersona is used when a team names no persona or an unknown one.
const DefaultPersona = "default"

// Persona is a named system prompt template. The template sees a
// PersonaData value; referencing any other field fails at startup.
type Persona struct {
	Name     string `json:"name" yaml:"name" koanf:"name"`
	Template string `json:"template" yaml:"template" koanf:"template"`
}

// PersonaData is what persona templates render against.
type PersonaData struct {
	AssistantName string
	FirmName      string
	PracticeAreas []string
}

const defaultPersonaTemplate = `You are the intake assistant for {{.FirmName}}.
Your job is to understand the visitor's legal situation, gather what a lawyer needs to follow up, and open a matter when the visitor is ready.
{{- if .PracticeAreas}}
The firm handles: {{join .PracticeAreas ", "}}.{{end}}
Be warm, concise and plain-spoken. You do not give legal advice.`

const contextTemplate = `
## What you already know
Intake stage: {{.State}}
{{- range .Known}}
- {{.Label}}: {{.Value}}
{{- else}}
- Nothing yet.
{{- end}}
{{if .Missing}}
## Still needed
{{- range .Missing}}
- {{.}}
{{- end}}
{{else}}
## Still needed
- Nothing. Confirm the details with the visitor and create the matter.
{{end}}`

const rulesTemplate = `
## Rules
- Never ask for something listed under "What you already know".
- Ask one question at a time.
- Always confirm the matter type with the visitor before calling create_matter.
- Only ask for contact details after the visitor has described their situation and it looks like a real legal matter.
- Answer general questions about the law or the firm conversationally, without calling any tool.
`

const toolsTemplate = `
## Tools
To use a tool, end your reply with exactly these two lines:
TOOL_CALL: <tool_name>
PARAMETERS: <JSON object>
Use at most one tool per reply. Only the parameters listed are accepted.
{{- range .}}
- {{.Name}}: required {{if .Required}}{{join .Required ", "}}{{else}}none{{end}}; optional {{join .Optional ", "}}
{{- end}}
`

type toolSpec struct {
	Name     toolcall.Name
	Required []string
	Optional []string
}

var toolSpecs = []toolSpec{
	{toolcall.CreateMatter, []string{"name", "matter_type", "description", "email or phone"}, []string{"phone", "email", "location", "opposing_party"}},
	{toolcall.CollectContactInfo, []string{"name"}, []string{"phone", "email", "location"}},
	{toolcall.RequestLawyerReview, nil, []string{"urgency (low|medium|high|urgent)", "complexity", "matter_type"}},
	{toolcall.AnalyzeDocument, []string{"file_id"}, []string{"analysis_type", "specific_question"}},
}

var funcs = template.FuncMap{"join": strings.Join}

var (
	contextTmpl = template.Must(template.New("context").Funcs(funcs).Parse(contextTemplate))
	rulesText   = strings.TrimRight(rulesTemplate, "\n")
	toolsText   = mustRender(template.Must(template.New("tools").Funcs(funcs).Parse(toolsTemplate)), toolSpecs)
)

type knownField struct {
	Label string
	Value string
}

type contextData struct {
	State   string
	Known   []knownField
	Missing []string
}

// Prompts renders system prompts. Every persona is rendered once when
// Prompts is built so a broken template fails startup instead of a turn.
type Prompts struct {
	personas map[string]compiledPersona
}

type compiledPersona struct {
	name string
	tmpl *template.Template
}

// NewPrompts parses and test-renders every persona. A built-in default is
// added unless personas already defines one.
func NewPrompts(personas map[string]Persona) (*Prompts, error) {
	all := map[string]Persona{DefaultPersona: {Template: defaultPersonaTemplate}}
	for key, p := range personas {
		all[key] = p
	}

	p := &Prompts{personas: make(map[string]compiledPersona, len(all))}
	probe := PersonaData{AssistantName: "Assistant", FirmName: "Firm", PracticeAreas: []string{"Family Law"}}
	for key, persona := range all {
		t, err := template.New(key).Funcs(funcs).Option("missingkey=error").Parse(persona.Template)
		if err != nil {
			return nil, fmt.Errorf("parsing persona %q: %w", key, err)
		}
		out, err := render(t, probe)
		if err != nil {
			return nil, fmt.Errorf("rendering persona %q: %w", key, err)
		}
		if strings.Contains(out, "{{") || strings.Contains(out, "<no value>") {
			return nil, fmt.Errorf("persona %q leaves placeholders unfilled", key)
		}
		name := persona.Name
		if name == "" {
			name = "Intake Assistant"
		}
		p.personas[key] = compiledPersona{name: name, tmpl: t}
	}
	return p, nil
}

// Build renders the full system prompt for a turn.
func (p *Prompts) Build(team conversation.TeamConfig, c conversation.Context) (string, error) {
	cp, ok := p.personas[team.Persona]
	if !ok {
		cp = p.personas[DefaultPersona]
	}

	firm := team.Branding.FirmName
	if firm == "" {
		firm = "the firm"
	}
	persona, err := render(cp.tmpl, PersonaData{AssistantName: cp.name, FirmName: firm, PracticeAreas: team.PracticeAreas})
	if err != nil {
		return "", fmt.Errorf("rendering persona: %w", err)
	}

	ctxSection, err := render(contextTmpl, contextData{
		State:   string(intakestate.For(c)),
		Known:   knownFields(c),
		Missing: intakestate.Missing(c),
	})
	if err != nil {
		return "", fmt.Errorf("rendering context section: %w", err)
	}

	return strings.Join([]string{strings.TrimSpace(persona), strings.TrimRight(ctxSection, "\n"), rulesText, strings.TrimRight(toolsText, "\n")}, "\n"), nil
}

func knownFields(c conversation.Context) []knownField {
	var out []knownField
	add := func(label, value string) {
		if v := sanitize(value); v != "" {
			out = append(out, knownField{Label: label, Value: v})
		}
	}
	if len(c.EstablishedMatters) > 0 {
		status := "not yet confirmed by the visitor"
		if c.LegalIssueConfirmed {
			status = "confirmed"
		}
		add("Matter type", strings.Join(c.EstablishedMatters, ", ")+" ("+status+")")
	}
	add("Description", c.Description)
	add("Jurisdiction", c.Jurisdiction)
	add("Name", c.Contact.Name)
	add("Email", c.Contact.Email)
	add("Phone", c.Contact.Phone)
	add("Location", c.Contact.Location)
	add("Opposing party", c.OpposingParty)
	add("Urgency", c.Urgency)
	if c.Completed {
		add("Matter", "already created (id "+c.MatterID+")")
	}
	return out
}

const maxPromptValue = 300

var directiveMarker = regexp.MustCompile(`(?i)(TOOL_CALL|PARAMETERS)\s*:`)

// sanitize flattens client-supplied text onto one line and defuses anything
// that could read as a tool directive.
func sanitize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = directiveMarker.ReplaceAllString(s, "$1 -")
	if utf8.RuneCountInString(s) > maxPromptValue {
		s = string([]rune(s)[:maxPromptValue]) + "…"
	}
	return s
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func mustRender(t *template.Template, data any) string {
	out, err := render(t, data)
	if err != nil {
		panic(err)
	}
	return out
}
