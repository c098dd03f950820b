package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
)

func msgs(texts ...string) []conversation.Message {
	out := make([]conversation.Message, len(texts))
	for i, t := range texts {
		out[i] = conversation.Message{Role: conversation.RoleUser, Content: t}
	}
	return out
}

func familyContext() conversation.Context {
	c := conversation.New("s1", "t1")
	c.AddMatter("Family Law")
	return c
}

func TestDocumentChecklistShortCircuits(t *testing.T) {
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = time.Now })

	p := New(zap.NewNop(), Standard(nil, 0, nil)...)
	res := p.Run(context.Background(), Input{
		Messages: msgs("I need help with a divorce", "what documents do I need"),
		Context:  familyContext(),
	})

	require.True(t, res.Stopped())
	assert.Equal(t, "document_checklist", res.StoppedBy)
	require.NotNil(t, res.Context.DocumentChecklist)
	assert.Equal(t, "Family Law", res.Context.DocumentChecklist.MatterType)
	assert.Contains(t, res.Context.DocumentChecklist.Required, "Marriage certificate")
	assert.NotEmpty(t, res.Context.DocumentChecklist.Optional)
	assert.Equal(t, fixed, res.Context.DocumentChecklist.CreatedAt)
	assert.Contains(t, res.Response, "Required documents:")
	assert.Contains(t, res.Response, "Helpful if you have them:")
}

func TestDocumentChecklistFallsBackToGeneral(t *testing.T) {
	res := New(nil, DocumentChecklist{}).Run(context.Background(), Input{
		Messages: msgs("which forms should I fill in?"),
		Context:  conversation.New("s", "t"),
	})
	require.True(t, res.Stopped())
	assert.Equal(t, GeneralConsultation, res.Context.DocumentChecklist.MatterType)
}

func TestNoMatchPassesContextThrough(t *testing.T) {
	in := familyContext()
	res := New(nil, Standard(nil, 0, nil)...).Run(context.Background(), Input{
		Messages: msgs("my husband moved out last month"),
		Context:  in,
	})
	assert.False(t, res.Stopped())
	assert.Equal(t, in, res.Context)
	assert.Empty(t, res.Response)
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }
func (panicky) Handle(context.Context, Input) Output {
	panic("boom")
}

type tagger struct{ seen *conversation.Context }

func (tagger) Name() string { return "tagger" }
func (t tagger) Handle(_ context.Context, in Input) Output {
	*t.seen = in.Context
	out := in.Context
	out.Urgency = "high"
	return Output{Context: out}
}

func TestPanicIsRecoveredAsNoMatch(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	var seen conversation.Context
	p := New(zap.New(core), panicky{}, tagger{seen: &seen}, DocumentChecklist{})

	res := p.Run(context.Background(), Input{Messages: msgs("what documents do I need"), Context: familyContext()})

	require.True(t, res.Stopped())
	assert.Equal(t, "document_checklist", res.StoppedBy)
	assert.Equal(t, 1, logs.FilterMessage("middleware unit panicked").Len())
	assert.Equal(t, []string{"Family Law"}, seen.EstablishedMatters)
	// The checklist unit saw the tagger's update.
	assert.Equal(t, "high", res.Context.Urgency)
}

func TestFirstStopWins(t *testing.T) {
	var stopped []string
	p := New(nil, DocumentChecklist{}, CaseDraft{})
	p.OnStop = func(unit string) { stopped = append(stopped, unit) }

	res := p.Run(context.Background(), Input{
		Messages: msgs("what documents do I need to draft my case?"),
		Context:  familyContext(),
	})
	assert.Equal(t, "document_checklist", res.StoppedBy)
	assert.Nil(t, res.Context.CaseDraft)
	assert.Equal(t, []string{"document_checklist"}, stopped)
	assert.Equal(t, []string{"document_checklist", "case_draft"}, p.Units())
}

func TestCaseDraftBuildsFromContext(t *testing.T) {
	c := familyContext()
	c.Jurisdiction = "Texas"
	c.Description = "I need help with a divorce"
	c.OpposingParty = "Jane Smith"

	res := New(nil, CaseDraft{}).Run(context.Background(), Input{
		Messages: msgs("I need help with a divorce", "we have joint custody questions too", "can you draft my case?"),
		Context:  c,
	})

	require.True(t, res.Stopped())
	d := res.Context.CaseDraft
	require.NotNil(t, d)
	assert.Equal(t, "Family Law", d.MatterType)
	assert.Equal(t, "Texas", d.Jurisdiction)
	assert.Equal(t, "I need help with a divorce", d.Summary)
	assert.Equal(t, []string{"we have joint custody questions too"}, d.KeyFacts)
	assert.Contains(t, res.Response, "Opposing party: Jane Smith")
}

func TestCaseDraftNeedsMatter(t *testing.T) {
	res := New(nil, CaseDraft{}).Run(context.Background(), Input{
		Messages: msgs("summarize my case"),
		Context:  conversation.New("s", "t"),
	})
	assert.False(t, res.Stopped())
}

type fakeGenerator struct {
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, sessionID, _ string, draft conversation.CaseDraft, _ string, _ conversation.Branding) (conversation.ArtifactInfo, error) {
	f.calls++
	if f.err != nil {
		return conversation.ArtifactInfo{}, f.err
	}
	return conversation.ArtifactInfo{ID: "a1", Filename: "family-law.html", ContentType: "text/html", Size: 10}, nil
}

func TestArtifactGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	c := familyContext()
	c.CaseDraft = &conversation.CaseDraft{MatterType: "Family Law", Summary: "x"}

	res := New(nil, Standard(gen, time.Second, nil)...).Run(context.Background(), Input{
		Messages: msgs("please generate a PDF of my case"),
		Context:  c,
	})
	require.True(t, res.Stopped())
	assert.Equal(t, "artifact_generation", res.StoppedBy)
	require.NotNil(t, res.Context.GeneratedArtifact)
	assert.Equal(t, "a1", res.Context.GeneratedArtifact.ID)
	assert.Contains(t, res.Response, "/api/artifacts/a1")
}

func TestArtifactGenerationWithoutDraftOrOnFailure(t *testing.T) {
	gen := &fakeGenerator{}
	res := New(nil, ArtifactGeneration{Generator: gen}).Run(context.Background(), Input{
		Messages: msgs("generate a pdf"),
		Context:  familyContext(),
	})
	assert.False(t, res.Stopped())
	assert.Zero(t, gen.calls)

	failing := &fakeGenerator{err: errors.New("renderer down")}
	c := familyContext()
	c.CaseDraft = &conversation.CaseDraft{MatterType: "Family Law"}
	res = New(nil, ArtifactGeneration{Generator: failing}).Run(context.Background(), Input{
		Messages: msgs("generate a pdf"),
		Context:  c,
	})
	assert.False(t, res.Stopped())
	assert.Equal(t, 1, failing.calls)
	assert.Nil(t, res.Context.GeneratedArtifact)
}
