// Package conversation holds the session-scoped intake context and the
// message and team types shared by every stage of a turn.
package conversation

import "time"

// Intent is the classified purpose of the user.
type Intent string

const (
	IntentIntake        Intent = "intake"
	IntentLawyerContact Intent = "lawyer_contact"
	IntentGeneralInfo   Intent = "general_info"
	IntentUnclear       Intent = "unclear"
)

// Phase is the coarse progress classification computed by the extractor.
type Phase string

const (
	PhaseInitial           Phase = "initial"
	PhaseGatheringInfo     Phase = "gathering_info"
	PhaseQualifying        Phase = "qualifying"
	PhaseContactCollection Phase = "contact_collection"
	PhaseCompleted         Phase = "completed"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of conversation text.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ContactInfo holds the client's contact details. An empty string means
// the field is unknown.
type ContactInfo struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// HasContactMethod reports whether an email or phone is known.
func (c ContactInfo) HasContactMethod() bool {
	return c.Email != "" || c.Phone != ""
}

// Any reports whether any contact field is known.
func (c ContactInfo) Any() bool {
	return c.Name != "" || c.Email != "" || c.Phone != "" || c.Location != ""
}

// CaseDraft is a structured summary of the client's matter.
type CaseDraft struct {
	MatterType    string    `json:"matter_type"`
	Jurisdiction  string    `json:"jurisdiction,omitempty"`
	Summary       string    `json:"summary"`
	KeyFacts      []string  `json:"key_facts,omitempty"`
	OpposingParty string    `json:"opposing_party,omitempty"`
	Urgency       string    `json:"urgency,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocumentChecklist lists the documents a client should gather.
type DocumentChecklist struct {
	MatterType string    `json:"matter_type"`
	Required   []string  `json:"required"`
	Optional   []string  `json:"optional,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ArtifactInfo describes a rendered case artifact.
type ArtifactInfo struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Context is the accumulated understanding of one (session, team)
// conversation. It is persisted between turns.
type Context struct {
	SessionID           string             `json:"session_id"`
	TeamID              string             `json:"team_id"`
	EstablishedMatters  []string           `json:"established_matters"`
	Jurisdiction        string             `json:"jurisdiction,omitempty"`
	Intent              Intent             `json:"intent"`
	Phase               Phase              `json:"phase"`
	State               string             `json:"state"`
	MessageCount        int                `json:"message_count"`
	LastUpdated         time.Time          `json:"last_updated"`
	Contact             ContactInfo        `json:"contact"`
	Description         string             `json:"description,omitempty"`
	LegalIssueConfirmed bool               `json:"legal_issue_confirmed"`
	OpposingParty       string             `json:"opposing_party,omitempty"`
	Urgency             string             `json:"urgency,omitempty"`
	MatterID            string             `json:"matter_id,omitempty"`
	Completed           bool               `json:"completed"`
	CaseDraft           *CaseDraft         `json:"case_draft,omitempty"`
	DocumentChecklist   *DocumentChecklist `json:"document_checklist,omitempty"`
	GeneratedArtifact   *ArtifactInfo      `json:"generated_artifact,omitempty"`
}

// New returns the default context for a session that has no stored state.
func New(sessionID, teamID string) Context {
	return Context{
		SessionID:          sessionID,
		TeamID:             teamID,
		EstablishedMatters: []string{},
		Intent:             IntentUnclear,
		Phase:              PhaseInitial,
		State:              "INITIAL",
	}
}

// HasMatter reports whether at least one matter type is established.
func (c Context) HasMatter() bool {
	return len(c.EstablishedMatters) > 0
}

// PrimaryMatter returns the first established matter type, or "".
func (c Context) PrimaryMatter() string {
	if len(c.EstablishedMatters) == 0 {
		return ""
	}
	return c.EstablishedMatters[0]
}

// Clone returns a deep copy so that stages cannot alias each other's state.
func (c Context) Clone() Context {
	out := c
	out.EstablishedMatters = append([]string{}, c.EstablishedMatters...)
	if c.CaseDraft != nil {
		d := *c.CaseDraft
		d.KeyFacts = append([]string(nil), c.CaseDraft.KeyFacts...)
		out.CaseDraft = &d
	}
	if c.DocumentChecklist != nil {
		d := *c.DocumentChecklist
		d.Required = append([]string(nil), c.DocumentChecklist.Required...)
		d.Optional = append([]string(nil), c.DocumentChecklist.Optional...)
		out.DocumentChecklist = &d
	}
	if c.GeneratedArtifact != nil {
		a := *c.GeneratedArtifact
		out.GeneratedArtifact = &a
	}
	return out
}

// AddMatter appends label to the established set if it is not present.
func (c *Context) AddMatter(label string) {
	for _, m := range c.EstablishedMatters {
		if m == label {
			return
		}
	}
	c.EstablishedMatters = append(c.EstablishedMatters, label)
}

// MergeContact copies non-empty fields of in over c.Contact. Empty fields
// never clear a known value.
func (c *Context) MergeContact(in ContactInfo) {
	Assign(&c.Contact.Name, in.Name)
	Assign(&c.Contact.Email, in.Email)
	Assign(&c.Contact.Phone, in.Phone)
	Assign(&c.Contact.Location, in.Location)
}

// Assign sets *dst to v unless v is empty.
func Assign(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// UserMessages returns the content of user-authored messages in order.
func UserMessages(history []Message) []string {
	out := make([]string, 0, len(history))
	for _, m := range history {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// LastUserMessage returns the most recent user message, or "".
func LastUserMessage(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}
