package artifacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/db"
)

func testDraft() conversation.CaseDraft {
	return conversation.CaseDraft{
		MatterType:    "Family Law",
		Jurisdiction:  "Texas",
		Summary:       "Client is seeking a divorce after <b>ten</b> years.",
		KeyFacts:      []string{"Two children", "Shared house"},
		OpposingParty: "Jane Smith",
	}
}

func TestHTMLRendererEscapesAndBrands(t *testing.T) {
	r, err := NewHTMLRenderer()
	if err != nil {
		t.Fatalf("NewHTMLRenderer() error: %v", err)
	}
	r.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	a, err := r.Render(context.Background(), testDraft(), "John Smith", conversation.Branding{
		FirmName:     "Smith & Co",
		PrimaryColor: "#aa0000",
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	html := string(a.Content)
	for _, want := range []string{"Family Law Case Summary", "John Smith", "Two children", "#aa0000", "Smith &amp; Co", "March 1, 2026"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered artifact missing %q", want)
		}
	}
	if strings.Contains(html, "<b>ten</b>") {
		t.Error("raw HTML from client text was not escaped")
	}
	if a.Filename != "family-law-john-smith.html" {
		t.Errorf("Filename = %q", a.Filename)
	}
}

func TestHTMLRendererRejectsBadColor(t *testing.T) {
	r, err := NewHTMLRenderer()
	if err != nil {
		t.Fatalf("NewHTMLRenderer() error: %v", err)
	}
	a, err := r.Render(context.Background(), testDraft(), "", conversation.Branding{PrimaryColor: "red;}body{display:none"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(string(a.Content), "display:none") {
		t.Error("unsafe colour leaked into stylesheet")
	}
}

func TestServiceStoresAndRoutesServe(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer database.Close()

	renderer, err := NewHTMLRenderer()
	if err != nil {
		t.Fatalf("NewHTMLRenderer() error: %v", err)
	}
	store := NewStore(database)
	svc := NewService(renderer, store)

	info, err := svc.Generate(context.Background(), "s1", "t1", testDraft(), "John Smith", conversation.Branding{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if info.ID == "" || info.Size == 0 {
		t.Fatalf("unexpected artifact info: %+v", info)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/artifacts/"+info.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), info.Filename) {
		t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/artifacts/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing artifact status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/artifacts/?team_id=t1&session_id=s1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), info.ID) {
		t.Errorf("list status = %d body = %s", w.Code, w.Body.String())
	}
}
