package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Actions.WithLabelValues("submit-move", "ok").Inc()
	m.Actions.WithLabelValues("submit-move", "ok").Inc()
	m.Actions.WithLabelValues("submit-move", "rejected").Inc()
	m.Connections.Set(3)

	if got := testutil.ToFloat64(m.Actions.WithLabelValues("submit-move", "ok")); got != 2 {
		t.Fatalf("actions ok: want 2 got %v", got)
	}
	if got := testutil.ToFloat64(m.Connections); got != 3 {
		t.Fatalf("connections: want 3 got %v", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.Rounds.Inc()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if rec.Code != 200 || !strings.Contains(body, "blotto_rounds_resolved_total 1") {
		t.Fatalf("unexpected metrics output (code %d):\n%s", rec.Code, body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("go collector missing")
	}
}
