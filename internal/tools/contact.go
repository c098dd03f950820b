package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/intakestate"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/notifications"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
)

// collectContactInfo replaces the stored contact fields with the supplied
// ones. Fields the assistant left empty keep their stored value.
func (h *handlers) collectContactInfo(ctx context.Context, inv toolcall.Invocation, s Session) errs.Result[Outcome] {
	p := inv.Params.(toolcall.CollectContactInfoParams)

	c := s.Context.Clone()
	c.MergeContact(conversation.ContactInfo{Name: p.Name, Email: p.Email, Phone: p.Phone, Location: p.Location})
	if !c.Completed && c.HasMatter() {
		c.Phase = conversation.PhaseContactCollection
	}

	h.notify(ctx, notifications.TypeContactCollected, notifications.MatterInfo{
		TeamID:     c.TeamID,
		SessionID:  c.SessionID,
		MatterType: c.PrimaryMatter(),
	}, clientInfo(c.Contact))

	reply := fmt.Sprintf("Thanks, %s. I've saved your contact details.", p.Name)
	if missing := intakestate.Missing(c); len(missing) > 0 {
		reply += " To open your matter I still need your " + joinList(missing) + "."
	} else {
		reply += " I have everything I need to open your matter. Shall I go ahead?"
	}
	return errs.Ok(Outcome{Reply: reply, Context: c})
}

// requestLawyerReview escalates the conversation to the firm.
func (h *handlers) requestLawyerReview(ctx context.Context, inv toolcall.Invocation, s Session) errs.Result[Outcome] {
	p := inv.Params.(toolcall.RequestLawyerReviewParams)

	c := s.Context.Clone()
	c.Intent = conversation.IntentLawyerContact
	conversation.Assign(&c.Urgency, p.Urgency)

	matterType := p.MatterType
	if matterType == "" {
		matterType = c.PrimaryMatter()
	}

	h.notify(ctx, notifications.TypeLawyerReviewRequested, notifications.MatterInfo{
		ID:         c.MatterID,
		TeamID:     c.TeamID,
		SessionID:  c.SessionID,
		MatterType: matterType,
		Summary:    c.Description,
		Urgency:    c.Urgency,
		Complexity: p.Complexity,
	}, clientInfo(c.Contact))

	reply := "I've asked a lawyer to review your situation"
	if c.Urgency != "" {
		reply += fmt.Sprintf(" and marked it as %s priority", c.Urgency)
	}
	reply += "."
	if !c.Contact.HasContactMethod() {
		reply += " So they can reach you, please share an email address or phone number."
	} else {
		reply += " Someone from the firm will be in touch soon."
	}
	return errs.Ok(Outcome{Reply: reply, Context: c})
}

// joinList renders items as "a", "a and b" or "a, b and c".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
