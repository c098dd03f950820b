// Package intakestate maps the flags of a conversation context onto a single
// intake progress state.
package intakestate

import "github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"

// State is the progress of an intake conversation toward a matter.
type State string

const (
	Initial              State = "INITIAL"
	GatheringInformation State = "GATHERING_INFORMATION"
	Qualifying           State = "QUALIFYING"
	ContactCollection    State = "CONTACT_COLLECTION"
	ReadyToCreateMatter  State = "READY_TO_CREATE_MATTER"
	Completed            State = "COMPLETED"
)

// All lists every state in progression order.
var All = []State{
	Initial, GatheringInformation, Qualifying, ContactCollection, ReadyToCreateMatter, Completed,
}

// Flags are the context signals the state depends on.
type Flags struct {
	HasName          bool
	LegalIssue       bool
	HasDescription   bool
	HasContactMethod bool
	HasLocation      bool
	HasMatter        bool
	Phase            conversation.Phase
	Completed        bool
}

// FlagsFor reads the flags from a context.
func FlagsFor(c conversation.Context) Flags {
	return Flags{
		HasName:          c.Contact.Name != "",
		LegalIssue:       c.LegalIssueConfirmed,
		HasDescription:   c.Description != "",
		HasContactMethod: c.Contact.HasContactMethod(),
		HasLocation:      c.Contact.Location != "",
		HasMatter:        c.HasMatter(),
		Phase:            c.Phase,
		Completed:        c.Completed,
	}
}

// Ready reports whether every field needed to open a matter is known.
func (f Flags) Ready() bool {
	return f.HasName && f.LegalIssue && f.HasDescription && f.HasContactMethod && f.HasLocation
}

func (f Flags) anySignal() bool {
	return f.HasName || f.LegalIssue || f.HasDescription || f.HasContactMethod || f.HasLocation ||
		f.HasMatter || (f.Phase != "" && f.Phase != conversation.PhaseInitial)
}

// Derive returns the state for f. Every combination of flags maps to
// exactly one state.
func Derive(f Flags) State {
	switch {
	case f.Completed:
		return Completed
	case f.Ready():
		return ReadyToCreateMatter
	case f.Phase == conversation.PhaseContactCollection:
		return ContactCollection
	case f.HasMatter && f.Phase == conversation.PhaseGatheringInfo:
		return GatheringInformation
	case f.HasMatter:
		return Qualifying
	case f.anySignal():
		return GatheringInformation
	default:
		return Initial
	}
}

// For is shorthand for Derive(FlagsFor(c)).
func For(c conversation.Context) State {
	return Derive(FlagsFor(c))
}

// Missing lists the human-readable names of fields still needed before a
// matter can be opened, in the order they should be asked for.
func Missing(c conversation.Context) []string {
	f := FlagsFor(c)
	var out []string
	if !f.HasDescription {
		out = append(out, "description of the legal issue")
	}
	if !f.LegalIssue {
		out = append(out, "confirmation of the matter type")
	}
	if !f.HasName {
		out = append(out, "full name")
	}
	if !f.HasContactMethod {
		out = append(out, "email or phone number")
	}
	if !f.HasLocation {
		out = append(out, "location (city and state)")
	}
	return out
}
