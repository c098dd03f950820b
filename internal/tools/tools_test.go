package tools

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/documents"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/matters"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/notifications"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSubmitter struct {
	err       error
	submitted []matters.Matter
}

func (f *fakeSubmitter) Submit(_ context.Context, m matters.Matter) (matters.Matter, error) {
	if f.err != nil {
		return matters.Matter{}, f.err
	}
	m.ID = "matter-1"
	f.submitted = append(f.submitted, m)
	return m, nil
}

type notification struct {
	event  notifications.EventType
	matter notifications.MatterInfo
	client notifications.ClientInfo
}

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	block bool
	sent  []notification
}

func (f *fakeNotifier) Notify(ctx context.Context, event notifications.EventType, m notifications.MatterInfo, c notifications.ClientInfo) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{event, m, c})
	return f.err
}

func (f *fakeNotifier) events() []notifications.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notifications.EventType
	for _, n := range f.sent {
		out = append(out, n.event)
	}
	return out
}

type fakeArtifacts struct {
	err   error
	draft conversation.CaseDraft
}

func (f *fakeArtifacts) Generate(_ context.Context, _, _ string, draft conversation.CaseDraft, _ string, _ conversation.Branding) (conversation.ArtifactInfo, error) {
	f.draft = draft
	if f.err != nil {
		return conversation.ArtifactInfo{}, f.err
	}
	return conversation.ArtifactInfo{ID: "art-1", Filename: "family-law-john-smith.html"}, nil
}

type fakeFiles struct {
	files map[string]*documents.File
}

func (f fakeFiles) Open(_ context.Context, _, fileID string) (*documents.File, error) {
	if file, ok := f.files[fileID]; ok {
		return file, nil
	}
	return nil, documents.ErrNotFound
}

type fakeExtractor struct {
	out documents.Extraction
	err error
}

func (f fakeExtractor) Extract(context.Context, []byte, string) (documents.Extraction, error) {
	return f.out, f.err
}

func session() Session {
	c := conversation.New("s1", "t1")
	c.AddMatter("Family Law")
	c.Description = "I need help with a divorce"
	return Session{
		Context:  c,
		Messages: []conversation.Message{{Role: conversation.RoleUser, Content: "I need help with a divorce"}},
	}
}

func createMatterInvocation() toolcall.Invocation {
	return toolcall.Invocation{
		Name: toolcall.CreateMatter,
		Params: toolcall.CreateMatterParams{
			Name:        "John Smith",
			MatterType:  "Family Law",
			Description: "Divorce after ten years",
			Email:       "john@example.com",
			Location:    "Austin, TX",
		},
	}
}

func TestCreateMatterSubmitsAndNotifies(t *testing.T) {
	sub := &fakeSubmitter{}
	notifier := &fakeNotifier{}
	art := &fakeArtifacts{}
	d := NewDispatcher(Deps{Matters: sub, Notifier: notifier, Artifacts: art})

	var observed []string
	d.OnDispatch = func(tool toolcall.Name, outcome string) { observed = append(observed, string(tool)+":"+outcome) }

	res := d.Dispatch(context.Background(), createMatterInvocation(), session())
	require.True(t, res.Success(), "dispatch failed: %v", res.Err())

	out := res.Data()
	assert.True(t, out.Completed)
	assert.Equal(t, "matter-1", out.MatterID)
	assert.Contains(t, out.Reply, "Name: John Smith")
	assert.Contains(t, out.Reply, "Type: Family Law")
	assert.Contains(t, out.Reply, "/api/artifacts/art-1")

	assert.True(t, out.Context.Completed)
	assert.Equal(t, conversation.PhaseCompleted, out.Context.Phase)
	assert.Equal(t, "matter-1", out.Context.MatterID)
	assert.Equal(t, "john@example.com", out.Context.Contact.Email)
	require.NotNil(t, out.Context.GeneratedArtifact)
	assert.Equal(t, "Family Law", art.draft.MatterType)

	require.Len(t, sub.submitted, 1)
	assert.Equal(t, "t1", sub.submitted[0].TeamID)
	assert.Contains(t, sub.submitted[0].Summary, "Email: john@example.com")
	assert.Equal(t, []notifications.EventType{notifications.TypeMatterCreated}, notifier.events())
	assert.Equal(t, []string{"create_matter:ok"}, observed)
}

func TestCreateMatterSubmissionFailureIsRetryable(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDispatcher(Deps{Matters: &fakeSubmitter{err: errors.New("db down")}, Notifier: notifier})

	res := d.Dispatch(context.Background(), createMatterInvocation(), session())
	require.False(t, res.Success())
	assert.Equal(t, errs.CodeSubmissionFailed, res.Err().Code())
	assert.True(t, res.Err().IsRetryable())
	assert.Equal(t, errs.GenericApology, res.Err().Message())
	assert.Empty(t, notifier.events(), "no notification before the matter exists")
}

func TestCreateMatterEffectsFailSoft(t *testing.T) {
	d := NewDispatcher(Deps{
		Matters:   &fakeSubmitter{},
		Notifier:  &fakeNotifier{block: true},
		Artifacts: &fakeArtifacts{err: errors.New("renderer down")},
		Timeouts:  Timeouts{Effects: 20 * time.Millisecond},
	})

	start := time.Now()
	res := d.Dispatch(context.Background(), createMatterInvocation(), session())
	require.True(t, res.Success())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Nil(t, res.Data().Context.GeneratedArtifact)
	assert.NotContains(t, res.Data().Reply, "/api/artifacts/")
}

func TestValidationFailureRunsNothing(t *testing.T) {
	sub := &fakeSubmitter{}
	d := NewDispatcher(Deps{Matters: sub})

	inv := createMatterInvocation()
	p := inv.Params.(toolcall.CreateMatterParams)
	p.Email = ""
	inv.Params = p

	res := d.Dispatch(context.Background(), inv, session())
	require.False(t, res.Success())
	assert.Equal(t, errs.CodeMissingContactMethod, res.Err().Code())
	assert.Empty(t, sub.submitted)
}

func TestMissingHandler(t *testing.T) {
	d := NewDispatcher(Deps{})
	res := d.Dispatch(context.Background(), createMatterInvocation(), session())
	require.False(t, res.Success())
	assert.Equal(t, errs.CodeUnknownTool, res.Err().Code())
}

func TestCollectContactInfo(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDispatcher(Deps{Notifier: notifier})

	s := session()
	s.Context.Contact.Email = "old@example.com"

	res := d.Dispatch(context.Background(), toolcall.Invocation{
		Name:   toolcall.CollectContactInfo,
		Params: toolcall.CollectContactInfoParams{Name: "John Smith", Email: "new@example.com"},
	}, s)
	require.True(t, res.Success(), "dispatch failed: %v", res.Err())

	c := res.Data().Context
	assert.Equal(t, "John Smith", c.Contact.Name)
	assert.Equal(t, "new@example.com", c.Contact.Email)
	assert.Equal(t, conversation.PhaseContactCollection, c.Phase)
	assert.Contains(t, res.Data().Reply, "location (city and state)")
	assert.Equal(t, []notifications.EventType{notifications.TypeContactCollected}, notifier.events())
	assert.Equal(t, "old@example.com", s.Context.Contact.Email, "input context must not be mutated")
}

func TestCollectContactInfoNotificationFailureIsSoft(t *testing.T) {
	d := NewDispatcher(Deps{Notifier: &fakeNotifier{err: errors.New("webhook down")}})
	res := d.Dispatch(context.Background(), toolcall.Invocation{
		Name:   toolcall.CollectContactInfo,
		Params: toolcall.CollectContactInfoParams{Name: "John Smith", Phone: "(512) 555-0142"},
	}, session())
	require.True(t, res.Success())
}

func TestRequestLawyerReview(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDispatcher(Deps{Notifier: notifier})

	res := d.Dispatch(context.Background(), toolcall.Invocation{
		Name:   toolcall.RequestLawyerReview,
		Params: toolcall.RequestLawyerReviewParams{Urgency: "HIGH"},
	}, session())
	require.True(t, res.Success(), "dispatch failed: %v", res.Err())

	c := res.Data().Context
	assert.Equal(t, conversation.IntentLawyerContact, c.Intent)
	assert.Equal(t, "high", c.Urgency)
	assert.Contains(t, res.Data().Reply, "high priority")
	assert.Contains(t, res.Data().Reply, "email address or phone number")

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Family Law", notifier.sent[0].matter.MatterType)
}

func TestAnalyzeDocument(t *testing.T) {
	d := NewDispatcher(Deps{
		Files: fakeFiles{files: map[string]*documents.File{
			"lease-1": {ID: "lease-1", Name: "lease.pdf", MimeType: "application/pdf", Data: []byte("%PDF")},
		}},
		Extractor: fakeExtractor{out: documents.Extraction{
			Text:     "This lease agreement is made between the landlord and tenant.",
			Tables:   []documents.Table{{Rows: [][]string{{"Rent", "$1200"}}}},
			Elements: []documents.Element{{Type: "heading", Text: "Term"}},
		}},
	})

	res := d.Dispatch(context.Background(), toolcall.Invocation{
		Name:   toolcall.AnalyzeDocument,
		Params: toolcall.AnalyzeDocumentParams{FileID: "lease-1", SpecificQuestion: "Can I break the lease?"},
	}, session())
	require.True(t, res.Success(), "dispatch failed: %v", res.Err())
	reply := res.Data().Reply
	assert.Contains(t, reply, "lease.pdf")
	assert.Contains(t, reply, "1 table(s)")
	assert.Contains(t, reply, "Sections: Term.")
	assert.Contains(t, reply, "Can I break the lease?")
}

func TestAnalyzeDocumentFailures(t *testing.T) {
	files := fakeFiles{files: map[string]*documents.File{"doc-1": {Name: "doc.bin", Data: []byte{1}}}}

	tests := []struct {
		name      string
		fileID    string
		extractor fakeExtractor
		code      errs.Code
		retryable bool
	}{
		{"missing file", "nope", fakeExtractor{}, errs.CodeFileNotFound, false},
		{"unsupported", "doc-1", fakeExtractor{err: documents.ErrUnsupported}, errs.CodeExtractionFailed, false},
		{"service down", "doc-1", fakeExtractor{err: errors.New("502")}, errs.CodeExtractionFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(Deps{Files: files, Extractor: tt.extractor})
			res := d.Dispatch(context.Background(), toolcall.Invocation{
				Name:   toolcall.AnalyzeDocument,
				Params: toolcall.AnalyzeDocumentParams{FileID: tt.fileID},
			}, session())
			require.False(t, res.Success())
			assert.Equal(t, tt.code, res.Err().Code())
			assert.Equal(t, tt.retryable, res.Err().IsRetryable())
		})
	}
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", joinList(nil))
	assert.Equal(t, "a", joinList([]string{"a"}))
	assert.Equal(t, "a and b", joinList([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", joinList([]string{"a", "b", "c"}))
}
