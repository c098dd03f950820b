package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testMatter() MatterInfo {
	return MatterInfo{
		ID:         "m-1",
		TeamID:     "team-a",
		SessionID:  "s-1",
		MatterType: "Family Law",
		Summary:    "Divorce with two children",
	}
}

func testClient() ClientInfo {
	return ClientInfo{Name: "John Smith", Email: "john@example.com", Phone: "555-123-4567", Location: "Austin, TX"}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Notification{
		TeamID: "team-a",
		Type:   TypeMatterCreated,
		Title:  "New Family Law matter",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}
	if created.Severity != SeverityInfo {
		t.Errorf("Severity = %q, want info default", created.Severity)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Title != created.Title || got.TeamID != "team-a" {
		t.Fatalf("GetByID = %+v", got)
	}
	if got.Delivered {
		t.Error("expected Delivered = false")
	}
}

func TestStoreGetByIDNotFound(t *testing.T) {
	store := setupTestStore(t)
	got, err := store.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestStoreListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, n := range []Notification{
		{TeamID: "team-a", Type: TypeMatterCreated, Title: "a1"},
		{TeamID: "team-a", Type: TypeContactCollected, Title: "a2", Delivered: true},
		{TeamID: "team-b", Type: TypeMatterCreated, Title: "b1"},
	} {
		if _, err := store.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   int
	}{
		{"all", ListFilter{}, 3},
		{"team", ListFilter{TeamID: "team-a"}, 2},
		{"type", ListFilter{Type: TypeMatterCreated}, 2},
		{"team and type", ListFilter{TeamID: "team-a", Type: TypeMatterCreated}, 1},
		{"limit", ListFilter{Limit: 1}, 1},
		{"since future", ListFilter{Since: time.Now().Add(time.Hour)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d notifications, want %d", len(got), tt.want)
			}
		})
	}

	pending, err := store.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("expected 2 pending, got %d", len(pending))
	}
}

func TestStoreMarkDeliveredNotFound(t *testing.T) {
	store := setupTestStore(t)
	if err := store.MarkDelivered(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing notification")
	}
}

func TestDispatcherNotifyDeliversWebhook(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var payload webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding webhook payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(store, func(teamID string) string {
		if teamID == "team-a" {
			return server.URL
		}
		return ""
	}, nil)

	if err := d.Notify(ctx, TypeMatterCreated, testMatter(), testClient()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if payload.Notification.Title != "New Family Law matter" {
		t.Errorf("payload title = %q", payload.Notification.Title)
	}
	if payload.Client.Email != "john@example.com" {
		t.Errorf("payload client email = %q", payload.Client.Email)
	}

	stored, err := store.List(ctx, ListFilter{TeamID: "team-a"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored notification, got %d", len(stored))
	}
	if !stored[0].Delivered {
		t.Error("expected notification marked delivered")
	}
	if stored[0].MatterID != "m-1" {
		t.Errorf("MatterID = %q", stored[0].MatterID)
	}
	if strings.Contains(stored[0].Message, "john@example.com") {
		t.Error("stored message should not carry contact details")
	}
}

func TestDispatcherNotifyWebhookFailure(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewDispatcher(store, func(string) string { return server.URL }, nil)
	if err := d.Notify(ctx, TypeLawyerReviewRequested, testMatter(), testClient()); err == nil {
		t.Fatal("expected error from failing webhook")
	}

	pending, err := store.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected the notification to be stored as pending, got %d", len(pending))
	}
}

func TestDispatcherNotifyWithoutWebhook(t *testing.T) {
	store := setupTestStore(t)
	d := NewDispatcher(store, nil, nil)
	if err := d.Notify(context.Background(), TypeContactCollected, testMatter(), ClientInfo{}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	all, _ := store.List(context.Background(), ListFilter{})
	if len(all) != 1 || all[0].Delivered {
		t.Fatalf("expected one undelivered notification, got %+v", all)
	}
	if !strings.HasPrefix(all[0].Message, "A prospective client") {
		t.Errorf("Message = %q", all[0].Message)
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		event   EventType
		urgency string
		want    Severity
	}{
		{TypeMatterCreated, "", SeverityInfo},
		{TypeMatterCreated, "urgent", SeverityCritical},
		{TypeContactCollected, "High", SeverityWarning},
		{TypeLawyerReviewRequested, "low", SeverityWarning},
	}
	for _, tt := range tests {
		if got := severityFor(tt.event, tt.urgency); got != tt.want {
			t.Errorf("severityFor(%s, %q) = %s, want %s", tt.event, tt.urgency, got, tt.want)
		}
	}
}

func TestHTTPHandlers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, err := store.Create(ctx, Notification{TeamID: "team-a", Type: TypeMatterCreated, Title: "t"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/?team_id=team-a", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var got []Notification
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 notification, got %d", len(got))
		}
	})

	t.Run("list empty", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/?team_id=other", nil))
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Errorf("body = %q, want []", w.Body.String())
		}
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/"+n.ID, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/missing", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("deliver", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/notifications/"+n.ID+"/deliver", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/pending", nil))
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Errorf("pending after deliver = %s", w.Body.String())
		}
	})
}
