// Package extractor derives a conversation.Context from the message history
// using keyword and pattern heuristics. Extract is pure: the same prior
// context and history always produce the same result.
package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/gazetteer"
)

// gatheringThreshold is the user message count above which a conversation
// without an established matter is considered to be gathering information.
const gatheringThreshold = 2

// maxDescriptionLen bounds the description captured from a user message.
const maxDescriptionLen = 500

// Extract returns prior updated with everything the user-authored messages
// of history reveal. Populated fields are only replaced by a newer value,
// never cleared.
func Extract(prior conversation.Context, history []conversation.Message) conversation.Context {
	out := prior.Clone()
	if out.EstablishedMatters == nil {
		out.EstablishedMatters = []string{}
	}

	userMsgs := conversation.UserMessages(history)
	fullText := strings.Join(userMsgs, "\n")

	for _, label := range Matters(fullText) {
		out.AddMatter(label)
	}

	out.MergeContact(Contact(unseen(prior, userMsgs)))

	if st, ok := gazetteer.FindState(fullText); ok {
		out.Jurisdiction = st.Name
	}

	if out.Description == "" {
		out.Description = description(userMsgs)
	}
	if !out.LegalIssueConfirmed {
		out.LegalIssueConfirmed = confirmed(history)
	}

	out.Intent = classifyIntent(prior.Intent, fullText, out.HasMatter())
	out.MessageCount = max(prior.MessageCount, len(userMsgs))
	out.Phase = classifyPhase(out)
	return out
}

// Matters returns every matter label whose classifier matches text, in
// classifier order.
func Matters(text string) []string {
	var out []string
	for _, c := range matterClassifiers {
		if c.Pattern.MatchString(text) {
			out = append(out, c.Label)
		}
	}
	return out
}

// unseen returns the user messages prior has not been extracted from yet.
// Contact fields are mined from these only, so a value set explicitly since
// the last turn is not overwritten by an older mention. A history no longer
// than the count already seen is a resent or reset window, and only its
// latest message can be new.
func unseen(prior conversation.Context, userMsgs []string) []string {
	switch {
	case len(userMsgs) == 0:
		return nil
	case prior.MessageCount < len(userMsgs):
		return userMsgs[prior.MessageCount:]
	default:
		return userMsgs[len(userMsgs)-1:]
	}
}

// Contact scans messages in order; a later mention of a field replaces an
// earlier one.
func Contact(messages []string) conversation.ContactInfo {
	var c conversation.ContactInfo
	for _, msg := range messages {
		if m := emailPattern.FindAllString(msg, -1); len(m) > 0 {
			c.Email = m[len(m)-1]
		}
		if m := phonePattern.FindAllString(msg, -1); len(m) > 0 {
			c.Phone = strings.TrimSpace(m[len(m)-1])
		}
		if name := captureName(msg); name != "" {
			c.Name = name
		}
		if loc := captureLocation(msg); loc != "" {
			c.Location = loc
		}
	}
	return c
}

func captureName(msg string) string {
	var name string
	for _, m := range namePattern.FindAllStringSubmatch(msg, -1) {
		words := strings.Fields(m[1])
		if _, stop := nameStopWords[strings.ToLower(words[0])]; stop {
			continue
		}
		for len(words) > 1 {
			if _, stop := nameStopWords[strings.ToLower(words[len(words)-1])]; !stop {
				break
			}
			words = words[:len(words)-1]
		}
		name = strings.Join(words, " ")
	}
	return name
}

func captureLocation(msg string) string {
	var loc string
	for _, m := range locationPattern.FindAllStringSubmatch(msg, -1) {
		loc = strings.TrimRight(strings.TrimSpace(m[1]), ".,")
	}
	return loc
}

func classifyIntent(prior conversation.Intent, fullText string, hasMatter bool) conversation.Intent {
	switch {
	case prior == conversation.IntentLawyerContact, lawyerContactPattern.MatchString(fullText):
		return conversation.IntentLawyerContact
	case generalInfoPattern.MatchString(fullText):
		return conversation.IntentGeneralInfo
	case hasMatter:
		return conversation.IntentIntake
	case problemPattern.MatchString(fullText):
		return conversation.IntentIntake
	default:
		return conversation.IntentUnclear
	}
}

func classifyPhase(c conversation.Context) conversation.Phase {
	switch {
	case c.Completed:
		return conversation.PhaseCompleted
	case c.HasMatter() && c.Contact.Any():
		return conversation.PhaseContactCollection
	case c.HasMatter() && c.MessageCount >= 2:
		return conversation.PhaseQualifying
	case c.HasMatter(), c.MessageCount > gatheringThreshold:
		return conversation.PhaseGatheringInfo
	default:
		return conversation.PhaseInitial
	}
}

// description picks the first user message that names a matter or a problem.
func description(messages []string) string {
	for _, msg := range messages {
		if len(Matters(msg)) > 0 || problemPattern.MatchString(msg) {
			return truncateRunes(strings.TrimSpace(msg), maxDescriptionLen)
		}
	}
	return ""
}

// confirmed reports whether the user affirmed an assistant message that
// named a matter type, or asked outright for a matter to be opened.
func confirmed(history []conversation.Message) bool {
	labels := MatterLabels()
	var lastAssistant string
	for _, m := range history {
		switch m.Role {
		case conversation.RoleAssistant:
			lastAssistant = strings.ToLower(m.Content)
		case conversation.RoleUser:
			if IsCreationRequest(m.Content) {
				return true
			}
			if lastAssistant != "" && IsAffirmation(m.Content) {
				for _, l := range labels {
					if strings.Contains(lastAssistant, strings.ToLower(l)) {
						return true
					}
				}
			}
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
