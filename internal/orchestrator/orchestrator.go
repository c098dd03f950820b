// Package orchestrator runs one conversational intake turn: it loads the
// session context, updates it from the conversation, and answers either
// from middleware, from a direct matter creation, or from the assistant.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/contextstore"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/extractor"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/intakestate"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/llm"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/middleware"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/tools"
)

// Turn outcomes reported to the Observer.
const (
	OutcomeMiddleware = "middleware"
	OutcomeBypass     = "bypass"
	OutcomeAssistant  = "assistant"
	OutcomeTool       = "tool"
	OutcomeError      = "error"
)

const defaultAITimeout = 30 * time.Second

var timeNow = time.Now

// TurnRequest is one inbound turn. Messages is the full history, oldest
// first, ending with the user's newest message.
type TurnRequest struct {
	Messages  []conversation.Message `json:"messages"`
	SessionID string                 `json:"session_id"`
	TeamID    string                 `json:"team_id"`
	// Team overrides the configured team when set.
	Team *conversation.TeamConfig `json:"team,omitempty"`
}

// TurnResult is the answer to a turn. Error is set when a collaborator or
// tool failed; ResponseText is then already safe to show.
type TurnResult struct {
	ResponseText string               `json:"response"`
	ToolInvoked  *toolcall.Name       `json:"tool_invoked,omitempty"`
	Context      conversation.Context `json:"context"`
	Error        *errs.Error          `json:"-"`
}

// Observer receives turn level measurements. *metrics.Metrics satisfies it.
type Observer interface {
	Turn(outcome string, d time.Duration)
	StoreSaveFailed()
}

// TeamResolver returns the configuration for a team.
type TeamResolver func(teamID string) conversation.TeamConfig

// Deps are the collaborators of a turn. Store, Assistant and Tools are
// required.
type Deps struct {
	Store     contextstore.Store
	Assistant llm.Assistant
	Pipeline  *middleware.Pipeline
	Tools     *tools.Dispatcher
	Teams     TeamResolver
	Observer  Observer
	Logger    *zap.Logger
}

// Options tune the orchestrator.
type Options struct {
	AITimeout time.Duration
	// SerializeSessions makes concurrent turns of one session run one after
	// the other. Without it the last save wins.
	SerializeSessions bool
	Personas          map[string]Persona
}

// Orchestrator handles turns. It is safe for concurrent use.
type Orchestrator struct {
	deps    Deps
	opts    Options
	prompts *Prompts
	locks   *sessionLocks
	log     *zap.Logger
}

// New validates the dependencies and renders every persona once. Errors are
// configuration errors and should stop startup.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errs.Configuration("orchestrator needs a context store", nil)
	case deps.Assistant == nil:
		return nil, errs.Configuration("orchestrator needs an assistant", nil)
	case deps.Tools == nil:
		return nil, errs.Configuration("orchestrator needs a tool dispatcher", nil)
	}
	if deps.Pipeline == nil {
		deps.Pipeline = middleware.New(deps.Logger)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = defaultAITimeout
	}

	prompts, err := NewPrompts(opts.Personas)
	if err != nil {
		return nil, errs.Configuration("invalid persona template", err)
	}

	o := &Orchestrator{deps: deps, opts: opts, prompts: prompts, log: deps.Logger.Named("orchestrator")}
	if opts.SerializeSessions {
		o.locks = newSessionLocks()
	}
	return o, nil
}

// LoadContext returns the stored context of a session without running a
// turn.
func (o *Orchestrator) LoadContext(ctx context.Context, sessionID, teamID string) conversation.Context {
	return o.deps.Store.Load(ctx, sessionID, teamID)
}

// HandleTurn runs one turn. Only a malformed request fails the Result;
// collaborator failures produce a polite reply with TurnResult.Error set.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) errs.Result[TurnResult] {
	start := timeNow()
	if e := validateRequest(req); e != nil {
		return errs.Fail[TurnResult](e)
	}

	if o.locks != nil {
		unlock, err := o.locks.acquire(ctx, contextstore.Key(req.SessionID, req.TeamID))
		if err != nil {
			return errs.Fail[TurnResult](errs.Infrastructure(errs.CodeStoreUnavailable, err,
				map[string]any{"session_id": req.SessionID}))
		}
		defer unlock()
	}

	team := o.team(req)
	c := o.deps.Store.Load(ctx, req.SessionID, req.TeamID)
	c = extractor.Extract(c, req.Messages)
	c.State = string(intakestate.For(c))
	c.LastUpdated = timeNow()

	result, outcome := o.respond(ctx, req, team, c)

	result.Context.State = string(intakestate.For(result.Context))
	result.Context.LastUpdated = timeNow()
	o.save(ctx, result.Context)

	if result.Error != nil {
		outcome = OutcomeError
	}
	if o.deps.Observer != nil {
		o.deps.Observer.Turn(outcome, timeNow().Sub(start))
	}
	o.log.Debug("turn handled",
		zap.String("session_id", req.SessionID),
		zap.String("outcome", outcome),
		zap.String("state", result.Context.State))
	return errs.Ok(result)
}

func (o *Orchestrator) respond(ctx context.Context, req TurnRequest, team conversation.TeamConfig, c conversation.Context) (TurnResult, string) {
	mw := o.deps.Pipeline.Run(ctx, middleware.Input{Messages: req.Messages, Context: c, Team: team})
	c = mw.Context
	if mw.Stopped() {
		return TurnResult{ResponseText: mw.Response, Context: c}, OutcomeMiddleware
	}

	session := tools.Session{Context: c, Team: team, Messages: req.Messages}

	if shouldBypass(c, req.Messages) {
		inv := toolcall.Invocation{Name: toolcall.CreateMatter, Params: paramsFromContext(c)}
		return o.dispatch(ctx, inv, session), OutcomeBypass
	}

	prompt, err := o.prompts.Build(team, c)
	if err != nil {
		e := errs.New(errs.CodeInternal, errs.GenericApology, errs.WithCause(err))
		errs.Log(o.log, e, "system prompt failed to render")
		return TurnResult{ResponseText: e.Message(), Context: c, Error: e}, OutcomeError
	}

	reply, e := o.complete(ctx, prompt, req.Messages, req.SessionID)
	if e != nil {
		return TurnResult{ResponseText: e.Message(), Context: c, Error: e}, OutcomeError
	}

	inv, ok := toolcall.Parse(reply)
	if !ok {
		return TurnResult{ResponseText: strings.TrimSpace(reply), Context: c}, OutcomeAssistant
	}
	res := o.dispatch(ctx, inv, session)
	if res.ToolInvoked != nil && inv.Preamble != "" {
		res.ResponseText = inv.Preamble + "\n\n" + res.ResponseText
	}
	return res, OutcomeTool
}

// complete calls the assistant under the AI timeout. The caller's
// cancellation reaches the provider.
func (o *Orchestrator) complete(ctx context.Context, prompt string, history []conversation.Message, sessionID string) (string, *errs.Error) {
	aiCtx, cancel := context.WithTimeout(ctx, o.opts.AITimeout)
	defer cancel()

	reply, err := o.deps.Assistant.Complete(aiCtx, prompt, history)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("assistant returned an empty reply")
	}
	if err == nil {
		return reply, nil
	}

	code := errs.CodeAIUnavailable
	if llm.IsTimeout(err) || errors.Is(aiCtx.Err(), context.DeadlineExceeded) {
		code = errs.CodeAITimeout
	}
	e := errs.Infrastructure(code, err, map[string]any{"session_id": sessionID})
	errs.Log(o.log, e, "assistant call failed")
	return "", e
}

// dispatch runs a tool. On success the tool's context replaces the turn's;
// on failure the context is left as it was and the error message is the
// reply.
func (o *Orchestrator) dispatch(ctx context.Context, inv toolcall.Invocation, s tools.Session) TurnResult {
	if inv.Name == toolcall.CreateMatter && s.Context.Completed {
		// A completed intake is terminal: one matter per session.
		o.log.Info("create_matter ignored, matter already open",
			zap.String("session_id", s.Context.SessionID),
			zap.String("matter_id", s.Context.MatterID))
		return TurnResult{ResponseText: alreadyOpenReply(s.Context), Context: s.Context}
	}

	res := o.deps.Tools.Dispatch(ctx, inv, s)
	if !res.Success() {
		return TurnResult{ResponseText: res.Err().Message(), Context: s.Context, Error: res.Err()}
	}

	out := res.Data()
	c := out.Context
	if out.Completed {
		c.Completed = true
		c.Phase = conversation.PhaseCompleted
		if out.MatterID != "" {
			c.MatterID = out.MatterID
		}
	}
	name := inv.Name
	return TurnResult{ResponseText: out.Reply, ToolInvoked: &name, Context: c}
}

func alreadyOpenReply(c conversation.Context) string {
	if c.MatterID == "" {
		return "Your matter is already open with the firm, and a member of the team will be in touch. Is there anything else I can help you with?"
	}
	return fmt.Sprintf("Your matter (reference %s) is already open with the firm, and a member of the team will be in touch. Is there anything else I can help you with?", c.MatterID)
}

// save persists c even when the caller has gone away. A failed save only
// costs this turn's updates.
func (o *Orchestrator) save(ctx context.Context, c conversation.Context) {
	if o.deps.Store.Save(context.WithoutCancel(ctx), c) {
		return
	}
	if o.deps.Observer != nil {
		o.deps.Observer.StoreSaveFailed()
	}
	o.log.Warn("context not saved, continuing with in-memory context",
		zap.String("session_id", c.SessionID))
}

func (o *Orchestrator) team(req TurnRequest) conversation.TeamConfig {
	if req.Team != nil {
		t := *req.Team
		if t.TeamID == "" {
			t.TeamID = req.TeamID
		}
		return t
	}
	if o.deps.Teams != nil {
		if t := o.deps.Teams(req.TeamID); t.TeamID != "" {
			return t
		}
	}
	return conversation.TeamConfig{TeamID: req.TeamID}
}

func validateRequest(req TurnRequest) *errs.Error {
	switch {
	case strings.TrimSpace(req.SessionID) == "":
		return errs.Validation(errs.CodeInvalidRequest, "session_id", "A session id is required.")
	case strings.TrimSpace(req.TeamID) == "":
		return errs.Validation(errs.CodeInvalidRequest, "team_id", "A team id is required.")
	case len(req.Messages) == 0:
		return errs.Validation(errs.CodeInvalidRequest, "messages", "At least one message is required.")
	case req.Messages[len(req.Messages)-1].Role != conversation.RoleUser:
		return errs.Validation(errs.CodeInvalidRequest, "messages", "The last message must come from the user.")
	}
	return nil
}

// shouldBypass reports whether the matter can be opened without asking the
// assistant: everything is known and the user just said yes or asked for it.
func shouldBypass(c conversation.Context, history []conversation.Message) bool {
	if intakestate.For(c) != intakestate.ReadyToCreateMatter || !c.HasMatter() {
		return false
	}
	last := conversation.LastUserMessage(history)
	return extractor.IsAffirmation(last) || extractor.IsCreationRequest(last)
}

func paramsFromContext(c conversation.Context) toolcall.CreateMatterParams {
	return toolcall.CreateMatterParams{
		Name:          c.Contact.Name,
		MatterType:    c.PrimaryMatter(),
		Description:   c.Description,
		Email:         c.Contact.Email,
		Phone:         c.Contact.Phone,
		Location:      c.Contact.Location,
		OpposingParty: c.OpposingParty,
	}
}
