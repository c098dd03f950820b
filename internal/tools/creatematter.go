package tools

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/matters"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/middleware"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/notifications"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
)

// Summary composes the matter summary shown to the client and stored with
// the matter.
func Summary(p toolcall.CreateMatterParams) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "Type: %s\n", p.MatterType)
	fmt.Fprintf(&sb, "Description: %s\n", p.Description)
	if p.Email != "" {
		fmt.Fprintf(&sb, "Email: %s\n", p.Email)
	}
	if p.Phone != "" {
		fmt.Fprintf(&sb, "Phone: %s\n", p.Phone)
	}
	if p.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", p.Location)
	}
	if p.OpposingParty != "" {
		fmt.Fprintf(&sb, "Opposing party: %s\n", p.OpposingParty)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// createMatter submits the matter. The submission is the deliverable: if it
// fails the turn fails. Notification and artifact rendering run afterwards
// in parallel and never fail the turn.
func (h *handlers) createMatter(ctx context.Context, inv toolcall.Invocation, s Session) errs.Result[Outcome] {
	p := inv.Params.(toolcall.CreateMatterParams)
	summary := Summary(p)

	sctx, cancel := context.WithTimeout(ctx, h.deps.Timeouts.Submission)
	m, err := h.deps.Matters.Submit(sctx, matters.Matter{
		TeamID:        s.Context.TeamID,
		SessionID:     s.Context.SessionID,
		ClientName:    p.Name,
		MatterType:    p.MatterType,
		Description:   p.Description,
		Email:         p.Email,
		Phone:         p.Phone,
		Location:      p.Location,
		OpposingParty: p.OpposingParty,
		Summary:       summary,
	})
	cancel()
	if err != nil {
		return errs.Fail[Outcome](errs.Infrastructure(errs.CodeSubmissionFailed, err, map[string]any{
			"tool":       string(inv.Name),
			"session_id": s.Context.SessionID,
		}))
	}

	c := s.Context.Clone()
	c.MergeContact(conversation.ContactInfo{Name: p.Name, Email: p.Email, Phone: p.Phone, Location: p.Location})
	c.AddMatter(p.MatterType)
	if c.Description == "" {
		c.Description = p.Description
	}
	if p.OpposingParty != "" {
		c.OpposingParty = p.OpposingParty
	}
	c.LegalIssueConfirmed = true
	c.MatterID = m.ID
	c.Completed = true
	c.Phase = conversation.PhaseCompleted

	artifact := h.runMatterEffects(ctx, c, s, m)
	if artifact != nil {
		c.GeneratedArtifact = artifact
	}

	reply := fmt.Sprintf("Thank you, %s. Your matter has been created and a lawyer will review it shortly.\n\n%s", p.Name, summary)
	if artifact != nil {
		reply += fmt.Sprintf("\n\nA copy of your case summary is available at /api/artifacts/%s.", artifact.ID)
	}

	return errs.Ok(Outcome{Reply: reply, Context: c, Completed: true, MatterID: m.ID})
}

// runMatterEffects notifies the firm and renders the case artifact under one
// effects deadline. It returns the artifact metadata when rendering
// succeeded.
func (h *handlers) runMatterEffects(ctx context.Context, c conversation.Context, s Session, m matters.Matter) *conversation.ArtifactInfo {
	ctx, cancel := context.WithTimeout(ctx, h.deps.Timeouts.Effects)
	defer cancel()

	var (
		g        errgroup.Group
		artifact *conversation.ArtifactInfo
	)

	g.Go(func() error {
		h.notify(ctx, notifications.TypeMatterCreated, notifications.MatterInfo{
			ID:         m.ID,
			TeamID:     m.TeamID,
			SessionID:  m.SessionID,
			MatterType: m.MatterType,
			Summary:    m.Summary,
			Urgency:    c.Urgency,
		}, clientInfo(c.Contact))
		return nil
	})

	if h.deps.Artifacts != nil {
		g.Go(func() error {
			draft := middleware.BuildDraft(c, s.Messages)
			if c.CaseDraft != nil {
				draft = *c.CaseDraft
			}
			draft.MatterType = m.MatterType
			info, err := h.deps.Artifacts.Generate(ctx, c.SessionID, c.TeamID, draft, c.Contact.Name, s.Team.Branding)
			if err != nil {
				errs.Log(h.log, errs.Infrastructure(errs.CodeArtifactFailed, err, map[string]any{
					"session_id": c.SessionID,
				}), "artifact generation failed")
				return nil
			}
			artifact = &info
			return nil
		})
	}

	_ = g.Wait()
	h.log.Debug("matter effects finished", zap.String("matter_id", m.ID))
	return artifact
}
