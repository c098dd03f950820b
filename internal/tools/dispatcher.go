// Package tools executes validated tool invocations on behalf of the
// assistant.
package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/documents"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/matters"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/notifications"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/validation"
)

// Session is the conversation a tool runs against.
type Session struct {
	Context  conversation.Context
	Team     conversation.TeamConfig
	Messages []conversation.Message
}

// Outcome is what a successful handler produces.
type Outcome struct {
	Reply     string
	Context   conversation.Context
	Completed bool
	MatterID  string
}

// Handler executes one tool. The invocation has already been validated.
type Handler func(ctx context.Context, inv toolcall.Invocation, s Session) errs.Result[Outcome]

// MatterSubmitter records a new matter.
type MatterSubmitter interface {
	Submit(ctx context.Context, m matters.Matter) (matters.Matter, error)
}

// ArtifactGenerator renders and stores a case artifact.
type ArtifactGenerator interface {
	Generate(ctx context.Context, sessionID, teamID string, draft conversation.CaseDraft, clientName string, branding conversation.Branding) (conversation.ArtifactInfo, error)
}

// Timeouts bound the collaborators a handler calls.
type Timeouts struct {
	Submission time.Duration
	Effects    time.Duration
	Extraction time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Submission <= 0 {
		t.Submission = 10 * time.Second
	}
	if t.Effects <= 0 {
		t.Effects = 5 * time.Second
	}
	if t.Extraction <= 0 {
		t.Extraction = 15 * time.Second
	}
	return t
}

// Deps are the collaborators handlers use. Notifier and Artifacts are
// optional. create_matter needs Matters; analyze_document needs Files and
// Extractor.
type Deps struct {
	Matters   MatterSubmitter
	Notifier  notifications.Notifier
	Artifacts ArtifactGenerator
	Files     documents.FileSource
	Extractor documents.Extractor
	Timeouts  Timeouts
	Logger    *zap.Logger
}

// Dispatcher maps tool names to handlers.
type Dispatcher struct {
	handlers map[toolcall.Name]Handler
	log      *zap.Logger
	// OnDispatch is called with the tool name and "ok", "invalid" or "failed".
	OnDispatch func(tool toolcall.Name, outcome string)
}

// NewDispatcher registers the built-in handlers whose dependencies are
// present.
func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Timeouts = deps.Timeouts.withDefaults()
	h := &handlers{deps: deps, log: deps.Logger.Named("tools")}

	d := &Dispatcher{
		handlers: map[toolcall.Name]Handler{
			toolcall.CollectContactInfo:  h.collectContactInfo,
			toolcall.RequestLawyerReview: h.requestLawyerReview,
		},
		log: h.log,
	}
	if deps.Matters != nil {
		d.handlers[toolcall.CreateMatter] = h.createMatter
	}
	if deps.Files != nil && deps.Extractor != nil {
		d.handlers[toolcall.AnalyzeDocument] = h.analyzeDocument
	}
	return d
}

// Register adds or replaces a handler.
func (d *Dispatcher) Register(name toolcall.Name, h Handler) {
	d.handlers[name] = h
}

// Dispatch validates inv and runs its handler. Nothing runs when validation
// fails.
func (d *Dispatcher) Dispatch(ctx context.Context, inv toolcall.Invocation, s Session) errs.Result[Outcome] {
	valid := validation.Validate(inv)
	if !valid.Success() {
		errs.Log(d.log, valid.Err(), "tool parameters rejected")
		d.observe(inv.Name, "invalid")
		return errs.Fail[Outcome](valid.Err())
	}

	h, ok := d.handlers[inv.Name]
	if !ok {
		e := errs.New(errs.CodeUnknownTool, "I'm not able to do that here.",
			errs.WithContext(map[string]any{"tool": string(inv.Name)}))
		errs.Log(d.log, e, "no handler for tool")
		d.observe(inv.Name, "invalid")
		return errs.Fail[Outcome](e)
	}

	res := h(ctx, valid.Data(), s)
	if res.Success() {
		d.observe(inv.Name, "ok")
	} else {
		d.observe(inv.Name, "failed")
	}
	return res
}

func (d *Dispatcher) observe(name toolcall.Name, outcome string) {
	if d.OnDispatch != nil {
		d.OnDispatch(name, outcome)
	}
}

type handlers struct {
	deps Deps
	log  *zap.Logger
}

// notify sends an event under the effects timeout. Failures are logged and
// swallowed.
func (h *handlers) notify(ctx context.Context, event notifications.EventType, m notifications.MatterInfo, c notifications.ClientInfo) {
	if h.deps.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.deps.Timeouts.Effects)
	defer cancel()

	if err := h.deps.Notifier.Notify(ctx, event, m, c); err != nil {
		errs.Log(h.log, errs.Infrastructure(errs.CodeNotificationFailed, err, map[string]any{
			"event":      string(event),
			"session_id": m.SessionID,
		}), "notification failed")
	}
}

func clientInfo(c conversation.ContactInfo) notifications.ClientInfo {
	return notifications.ClientInfo{Name: c.Name, Email: c.Email, Phone: c.Phone, Location: c.Location}
}
