package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(nil)

	m.Turn("assistant", 100*time.Millisecond)
	m.Turn("assistant", 50*time.Millisecond)
	m.ToolDispatch("create_matter", "ok")
	m.MiddlewareStop("document_checklist")
	m.StoreSaveFailed()

	if got := testutil.ToFloat64(m.turns.WithLabelValues("assistant")); got != 2 {
		t.Errorf("turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.toolDispatches.WithLabelValues("create_matter", "ok")); got != 1 {
		t.Errorf("tool dispatches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.middlewareStop.WithLabelValues("document_checklist")); got != 1 {
		t.Errorf("middleware stops = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.storeFailures); got != 1 {
		t.Errorf("store failures = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(nil)
	m.AICall("openai", time.Second, errors.New("boom"))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `intake_ai_request_duration_seconds_count{provider="openai",status="error"} 1`) {
		t.Errorf("metrics output missing AI latency sample:\n%s", body)
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	New(nil)
	New(nil)
}
