package documents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeUpload(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDirSourceFindsUploadAtAnyDepth(t *testing.T) {
	root := t.TempDir()
	writeUpload(t, root, "team-a/session-1/lease-123.txt", "Lease agreement")
	writeUpload(t, root, "team-b/lease-999.txt", "Other team")

	src := NewDirSource(root)
	f, err := src.Open(context.Background(), "team-a", "lease-123")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Name != "lease-123.txt" {
		t.Errorf("Name = %q", f.Name)
	}
	if string(f.Data) != "Lease agreement" {
		t.Errorf("Data = %q", f.Data)
	}
	if f.MimeType == "" || f.MimeType[:5] != "text/" {
		t.Errorf("MimeType = %q", f.MimeType)
	}
}

func TestDirSourceScopesToTeam(t *testing.T) {
	root := t.TempDir()
	writeUpload(t, root, "team-b/lease-999.txt", "Other team")

	_, err := NewDirSource(root).Open(context.Background(), "team-a", "lease-999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDirSourceRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	for _, id := range []string{"../secret", "a/b", "*", ""} {
		if _, err := NewDirSource(root).Open(context.Background(), "team-a", id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestHTTPExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.MimeType == "image/gif" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		json.NewEncoder(w).Encode(Extraction{
			Text:   string(req.Content),
			Tables: []Table{{Rows: [][]string{{"a", "b"}}}},
		})
	}))
	defer server.Close()

	ex := NewExtractor(server.URL)
	got, err := ex.Extract(context.Background(), []byte("hello"), "application/pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Text != "hello" || len(got.Tables) != 1 {
		t.Errorf("Extract = %+v", got)
	}

	if _, err := ex.Extract(context.Background(), []byte("x"), "image/gif"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestHTTPExtractorServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := NewHTTPExtractor(server.URL).Extract(context.Background(), []byte("x"), "application/pdf"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTextExtractor(t *testing.T) {
	got, err := NewExtractor("").Extract(context.Background(), []byte("# Notice\nPay rent"), "text/markdown")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got.Elements) != 1 || got.Elements[0].Text != "Notice" {
		t.Errorf("Elements = %+v", got.Elements)
	}

	if _, err := (TextExtractor{}).Extract(context.Background(), []byte{0xff}, "application/pdf"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}
