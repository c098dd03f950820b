// Package middleware runs deterministic responders before the assistant is
// consulted. The first unit that stops the pipeline answers the turn.
package middleware

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
)

// Input is what every unit sees.
type Input struct {
	Messages []conversation.Message
	Context  conversation.Context
	Team     conversation.TeamConfig
}

// Output is what a unit returns. Context is always set, even when the unit
// does not match.
type Output struct {
	Context    conversation.Context
	Response   string
	ShouldStop bool
}

// Unit is one responder in the pipeline.
type Unit interface {
	Name() string
	Handle(ctx context.Context, in Input) Output
}

// Result is the outcome of a pipeline run.
type Result struct {
	Context conversation.Context
	// Response and StoppedBy are set only when a unit stopped the run.
	Response  string
	StoppedBy string
}

// Stopped reports whether a unit answered the turn.
func (r Result) Stopped() bool { return r.StoppedBy != "" }

// Pipeline runs units in order.
type Pipeline struct {
	units []Unit
	log   *zap.Logger
	// OnStop is called with the unit name when a unit stops the run.
	OnStop func(unit string)
}

// New creates a pipeline. Units run in the order given.
func New(logger *zap.Logger, units ...Unit) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{units: units, log: logger.Named("middleware")}
}

// Units returns the unit names in run order.
func (p *Pipeline) Units() []string {
	out := make([]string, len(p.units))
	for i, u := range p.units {
		out[i] = u.Name()
	}
	return out
}

// Run passes the context through each unit. Downstream units see the
// context returned by upstream ones.
func (p *Pipeline) Run(ctx context.Context, in Input) Result {
	current := in.Context
	for _, u := range p.units {
		out, ok := p.handle(ctx, u, Input{Messages: in.Messages, Context: current.Clone(), Team: in.Team})
		if !ok {
			continue
		}
		current = out.Context
		if out.ShouldStop {
			p.log.Debug("middleware stopped turn", zap.String("unit_name", u.Name()))
			if p.OnStop != nil {
				p.OnStop(u.Name())
			}
			return Result{Context: current, Response: out.Response, StoppedBy: u.Name()}
		}
	}
	return Result{Context: current}
}

// handle runs one unit. A panic is logged and treated as no match, leaving
// the context unchanged.
func (p *Pipeline) handle(ctx context.Context, u Unit, in Input) (out Output, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("middleware unit panicked",
				zap.String("unit_name", u.Name()),
				zap.String("panic", fmt.Sprint(r)))
			out, ok = Output{}, false
		}
	}()
	out = u.Handle(ctx, in)
	if out.Context.SessionID == "" && out.Context.TeamID == "" {
		// A unit that forgot to return the context does not wipe it.
		out.Context = in.Context
	}
	return out, true
}

// Standard returns the built-in units in their fixed order.
func Standard(gen ArtifactGenerator, effectsTimeout time.Duration, logger *zap.Logger) []Unit {
	return []Unit{
		DocumentChecklist{},
		ArtifactGeneration{Generator: gen, Timeout: effectsTimeout, Logger: logger},
		CaseDraft{},
	}
}
