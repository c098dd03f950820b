package middleware

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
)

// ArtifactGenerator renders and stores a case artifact.
type ArtifactGenerator interface {
	Generate(ctx context.Context, sessionID, teamID string, draft conversation.CaseDraft, clientName string, branding conversation.Branding) (conversation.ArtifactInfo, error)
}

var artifactPattern = regexp.MustCompile(`(?i)\b((generate|create|make|export|send|give)\b[^.?!]{0,40}\b(pdf|printable|downloadable|download)|download\s+(my|the)\s+(case|summary|draft))\b`)

// ArtifactGeneration renders the existing case draft into a downloadable
// document. Without a draft, or when rendering fails, it does not match.
type ArtifactGeneration struct {
	Generator ArtifactGenerator
	Timeout   time.Duration
	Logger    *zap.Logger
}

func (ArtifactGeneration) Name() string { return "artifact_generation" }

func (a ArtifactGeneration) Handle(ctx context.Context, in Input) Output {
	if a.Generator == nil || in.Context.CaseDraft == nil ||
		!artifactPattern.MatchString(conversation.LastUserMessage(in.Messages)) {
		return Output{Context: in.Context}
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	info, err := a.Generator.Generate(ctx, in.Context.SessionID, in.Context.TeamID,
		*in.Context.CaseDraft, in.Context.Contact.Name, in.Team.Branding)
	if err != nil {
		if a.Logger != nil {
			a.Logger.Warn("artifact generation failed",
				zap.String("session_id", in.Context.SessionID),
				zap.Error(err))
		}
		return Output{Context: in.Context}
	}

	out := in.Context
	out.GeneratedArtifact = &info
	return Output{
		Context: out,
		Response: fmt.Sprintf("Your case summary is ready: %s. You can download it from /api/artifacts/%s.",
			info.Filename, info.ID),
		ShouldStop: true,
	}
}
